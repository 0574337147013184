package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// discrepancyHeader 差异页表头
var discrepancyHeader = []string{"Table", "Field", "Kind", "Detail"}

// violationHeader 行级违规页表头
var violationHeader = []string{"Table", "Detail"}

// canonicalHeader 规范字段页表头
var canonicalHeader = []string{"Entity", "Scope", "Field", "Type", "Unit", "Not Null", "Default"}

// Excel 导出完整报告为 xlsx：三个工作表，差异、违规、规范模型
func (r *Report) Excel() ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	var discrepancyRows [][]any
	for _, d := range r.Discrepancies {
		discrepancyRows = append(discrepancyRows, []any{d.Table, d.Field, string(d.Kind), d.Detail})
	}
	var violationRows [][]any
	for _, c := range r.Conflicts {
		violationRows = append(violationRows, []any{c.Table, c.Error()})
	}
	for _, v := range r.Violations {
		violationRows = append(violationRows, []any{v.Table, v.Detail})
	}
	var canonicalRows [][]any
	for _, e := range r.Canonical.Entities {
		for _, field := range e.Fields {
			def := ""
			if field.Default != nil {
				def = *field.Default
			}
			canonicalRows = append(canonicalRows, []any{
				e.Name, e.Scope, field.Name, field.Type, field.Unit, field.NotNull, def,
			})
		}
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
		widths []float64
	}{
		{"Discrepancies", discrepancyHeader, discrepancyRows, []float64{18, 22, 18, 80}},
		{"Violations", violationHeader, violationRows, []float64{18, 100}},
		{"Canonical", canonicalHeader, canonicalRows, []float64{18, 14, 24, 12, 8, 10, 20}},
	}

	for i, sheet := range sheets {
		index, err := f.NewSheet(sheet.name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet.name, err)
		}
		if i == 0 {
			f.DeleteSheet("Sheet1")
			f.SetActiveSheet(index)
		}
		for col, header := range sheet.header {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheet.name, cell, header); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
			}
			if err := f.SetCellStyle(sheet.name, cell, cell, headerStyle); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set header style: %w", err)
			}
			colName, _ := excelize.ColumnNumberToName(col + 1)
			_ = f.SetColWidth(sheet.name, colName, colName, sheet.widths[col])
		}
		for rowIdx, row := range sheet.rows {
			for col, val := range row {
				cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
				if err != nil {
					f.Close()
					return nil, fmt.Errorf("failed to convert coordinates: %w", err)
				}
				if err := f.SetCellValue(sheet.name, cell, val); err != nil {
					f.Close()
					return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
				}
			}
		}
		// 冻结表头行
		_ = f.SetPanes(sheet.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}
