package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"optimasol-schema/internal/schema"
)

// splitStatements 按语句切分 dump，跳过注释行，引号内的分号不算结束
func splitStatements(content string) []string {
	var stmts []string
	var b strings.Builder
	inQuote := byte(0)
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if inQuote == 0 && (strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "#")) {
			continue
		}
		for i := 0; i < len(line); i++ {
			ch := line[i]
			if inQuote != 0 {
				b.WriteByte(ch)
				if ch == inQuote {
					inQuote = 0
				}
				continue
			}
			switch ch {
			case '\'', '"', '`':
				inQuote = ch
				b.WriteByte(ch)
			case ';':
				if s := strings.TrimSpace(b.String()); s != "" {
					stmts = append(stmts, s)
				}
				b.Reset()
			default:
				b.WriteByte(ch)
			}
		}
		b.WriteByte('\n')
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}

// parseCreateTable 解析单条 CREATE TABLE
func parseCreateTable(stmt string, d schema.Dialect) (*schema.Table, error) {
	open := strings.Index(stmt, "(")
	if open < 0 {
		return nil, fmt.Errorf("malformed CREATE TABLE: %q", firstLine(stmt))
	}
	head := stmt[:open]
	name := lastField(head)

	close := strings.LastIndex(stmt, ")")
	if close < open {
		return nil, fmt.Errorf("unbalanced parentheses in CREATE TABLE %s", name)
	}
	body := stmt[open+1 : close]

	t := &schema.Table{Name: unquote(name)}
	for _, item := range splitTopLevel(body, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if err := parseTableItem(t, item, d); err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
	}
	return t, nil
}

// parseTableItem 区分表级约束和列定义
func parseTableItem(t *schema.Table, item string, d schema.Dialect) error {
	upper := strings.ToUpper(item)

	// CONSTRAINT name ... 前缀剥掉再看实际约束类型
	if strings.HasPrefix(upper, "CONSTRAINT ") {
		fields := strings.Fields(item)
		if len(fields) < 3 {
			return fmt.Errorf("malformed constraint: %q", item)
		}
		item = strings.Join(fields[2:], " ")
		upper = strings.ToUpper(item)
	}

	switch {
	case strings.HasPrefix(upper, "PRIMARY KEY"):
		cols, err := parenList(item)
		if err != nil {
			return err
		}
		t.PrimaryKey = cols
		return nil
	case strings.HasPrefix(upper, "FOREIGN KEY"):
		return parseForeignKey(t, item)
	case strings.HasPrefix(upper, "UNIQUE"):
		cols, err := parenList(item)
		if err != nil {
			return err
		}
		t.Uniques = append(t.Uniques, cols)
		return nil
	case strings.HasPrefix(upper, "CHECK"):
		expr := innerParens(item)
		if expr == "" {
			return fmt.Errorf("malformed check: %q", item)
		}
		t.Checks = append(t.Checks, schema.Check{Expr: cleanExpr(expr)})
		return nil
	case strings.HasPrefix(upper, "KEY ") || strings.HasPrefix(upper, "INDEX "):
		// MySQL 表内 KEY 定义，对等价性分析没有意义
		return nil
	}
	return parseColumn(t, item, d)
}

func parseForeignKey(t *schema.Table, item string) error {
	upper := strings.ToUpper(item)
	refIdx := strings.Index(upper, "REFERENCES")
	if refIdx < 0 {
		return fmt.Errorf("foreign key without REFERENCES: %q", item)
	}
	cols, err := parenList(item[:refIdx])
	if err != nil {
		return err
	}
	rest := item[refIdx+len("REFERENCES"):]
	refCols, err := parenList(rest)
	if err != nil {
		return err
	}
	refTable := strings.TrimSpace(rest[:strings.Index(rest, "(")])
	fk := schema.ForeignKey{
		Columns:    cols,
		RefTable:   unquote(refTable),
		RefColumns: refCols,
	}
	if strings.Contains(strings.ToUpper(rest), "ON DELETE CASCADE") {
		fk.OnDeleteCascade = true
	}
	t.ForeignKeys = append(t.ForeignKeys, fk)
	return nil
}

// parseColumn 解析列定义：名字、类型、修饰符
func parseColumn(t *schema.Table, item string, d schema.Dialect) error {
	fields := strings.Fields(item)
	if len(fields) < 2 {
		return fmt.Errorf("malformed column definition: %q", item)
	}
	col := schema.Column{Name: unquote(fields[0])}

	// 类型可能带括号参数且含空格（如 enum('a', 'b')），从原文里整体取出
	rest := strings.TrimSpace(item[len(fields[0]):])
	typ, remainder := takeType(rest)
	col.Type = strings.ToLower(typ)

	parseTypeParams(&col)

	upper := strings.ToUpper(remainder)
	if strings.Contains(upper, "NOT NULL") {
		col.NotNull = true
	}
	if strings.Contains(upper, "AUTOINCREMENT") || strings.Contains(upper, "AUTO_INCREMENT") {
		col.AutoIncrement = true
	}
	if strings.Contains(upper, "PRIMARY KEY") {
		t.PrimaryKey = []string{col.Name}
	}
	if idx := strings.Index(upper, "DEFAULT "); idx >= 0 {
		val := strings.Fields(remainder[idx+len("DEFAULT "):])
		if len(val) > 0 {
			def := strings.Trim(val[0], "'")
			col.Default = &def
		}
	}
	if idx := strings.Index(upper, "CHECK"); idx >= 0 {
		expr := innerParens(remainder[idx:])
		if expr != "" {
			t.Checks = append(t.Checks, schema.Check{Expr: cleanExpr(expr)})
		}
	}
	if idx := strings.Index(upper, "REFERENCES"); idx >= 0 {
		rest := remainder[idx+len("REFERENCES"):]
		refCols, err := parenList(rest)
		if err == nil {
			refTable := strings.TrimSpace(rest[:strings.Index(rest, "(")])
			fk := schema.ForeignKey{
				Columns:         []string{col.Name},
				RefTable:        unquote(refTable),
				RefColumns:      refCols,
				OnDeleteCascade: strings.Contains(strings.ToUpper(rest), "ON DELETE CASCADE"),
			}
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}
	}

	t.Columns = append(t.Columns, col)
	return nil
}

// takeType 取出完整类型串（含括号参数），返回类型和剩余修饰符
func takeType(rest string) (string, string) {
	depth := 0
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ' ', '\t', '\n':
			if depth == 0 {
				return rest[:i], rest[i:]
			}
		}
	}
	return rest, ""
}

// parseTypeParams 从类型串提取 decimal 精度和 enum 值集
func parseTypeParams(col *schema.Column) {
	typ := col.Type
	open := strings.Index(typ, "(")
	if open < 0 {
		return
	}
	base := typ[:open]
	params := innerParens(typ)

	switch base {
	case "decimal", "numeric":
		parts := strings.Split(params, ",")
		if len(parts) >= 1 {
			if p, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
				col.Precision = &p
			}
		}
		if len(parts) >= 2 {
			if s, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
				col.Scale = &s
			}
		}
	case "enum", "set":
		for _, v := range splitTopLevel(params, ',') {
			col.EnumValues = append(col.EnumValues, strings.Trim(strings.TrimSpace(v), "'"))
		}
	}
}

// parseInsert 解析 INSERT INTO t (cols) VALUES (...),(...)
// 列清单缺省时按表定义的列顺序对位
func parseInsert(stmt string, s *schema.Schema) ([]schema.Row, error) {
	upper := strings.ToUpper(stmt)
	intoIdx := strings.Index(upper, "INTO ")
	valuesIdx := strings.Index(upper, "VALUES")
	if intoIdx < 0 || valuesIdx < 0 {
		return nil, fmt.Errorf("malformed INSERT: %q", firstLine(stmt))
	}
	head := strings.TrimSpace(stmt[intoIdx+len("INTO ") : valuesIdx])

	var table string
	var cols []string
	if open := strings.Index(head, "("); open >= 0 {
		table = unquote(strings.TrimSpace(head[:open]))
		list, err := parenList(head)
		if err != nil {
			return nil, err
		}
		cols = list
	} else {
		table = unquote(head)
		t := s.FindTable(table)
		if t == nil {
			return nil, fmt.Errorf("INSERT into unknown table %q", table)
		}
		cols = t.ColumnNames()
	}

	var rows []schema.Row
	tail := stmt[valuesIdx+len("VALUES"):]
	for _, group := range splitTopLevel(tail, ',') {
		group = strings.TrimSpace(group)
		if !strings.HasPrefix(group, "(") {
			continue
		}
		vals := splitTopLevel(innerParens(group), ',')
		if len(vals) != len(cols) {
			return nil, fmt.Errorf("INSERT into %s: %d values for %d columns", table, len(vals), len(cols))
		}
		row := schema.Row{Table: table, Values: map[string]any{}}
		for i, raw := range vals {
			row.Values[cols[i]] = parseLiteral(strings.TrimSpace(raw))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseLiteral(raw string) any {
	if strings.EqualFold(raw, "NULL") {
		return nil
	}
	if strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") {
		return strings.ReplaceAll(raw[1:len(raw)-1], "''", "'")
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}

// ---- 文本小工具 ----

// splitTopLevel 按括号深度为 0 的分隔符切分，引号内不切
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inQuote := byte(0)
	last := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inQuote != 0 {
			if ch == inQuote {
				inQuote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			inQuote = ch
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}

// innerParens 取第一对括号内的内容（配对计数）
func innerParens(s string) string {
	open := strings.Index(s, "(")
	if open < 0 {
		return ""
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[open+1 : i]
			}
		}
	}
	return ""
}

func parenList(s string) ([]string, error) {
	inner := innerParens(s)
	if inner == "" {
		return nil, fmt.Errorf("expected parenthesized list in %q", firstLine(s))
	}
	var cols []string
	for _, c := range strings.Split(inner, ",") {
		cols = append(cols, unquote(strings.TrimSpace(c)))
	}
	return cols, nil
}

// cleanExpr 压掉表达式内部的换行和多余空白
func cleanExpr(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func unquote(s string) string {
	return strings.Trim(s, "`\"'")
}

func lastField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	// CREATE TABLE IF NOT EXISTS name -> 最后一个字段就是表名
	return fields[len(fields)-1]
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}
