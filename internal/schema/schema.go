package schema

import (
	"math"
	"sort"
	"strings"
)

// Dialect 源方言标识
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// Schema 单个来源（dump 或活库）解析后的表结构集合
// 解析层负责把方言差异吸收掉，这里只保留中立的描述
type Schema struct {
	Dialect Dialect `json:"dialect"`
	Source  string  `json:"source"` // 文件路径、URL 或 DSN 标识
	Tables  []Table `json:"tables"`
	Rows    []Row   `json:"rows,omitempty"` // dump 中的种子数据（INSERT 语句）
}

// Table 一张表的结构描述
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
	Uniques     [][]string   `json:"uniques,omitempty"`
	Checks      []Check      `json:"checks,omitempty"`
}

// Column 列定义
// Precision/Scale 只在 decimal(p,s) 这类声明时有值
type Column struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"` // 原始声明类型（小写）
	NotNull       bool     `json:"not_null,omitempty"`
	Default       *string  `json:"default,omitempty"`
	Precision     *int     `json:"precision,omitempty"`
	Scale         *int     `json:"scale,omitempty"`
	AutoIncrement bool     `json:"auto_increment,omitempty"`
	EnumValues    []string `json:"enum_values,omitempty"` // MySQL enum('a','b') 列类型
}

// ForeignKey 外键定义
type ForeignKey struct {
	Columns         []string `json:"columns"`
	RefTable        string   `json:"ref_table"`
	RefColumns      []string `json:"ref_columns"`
	OnDeleteCascade bool     `json:"on_delete_cascade,omitempty"`
}

// Check CHECK 约束（保留原始表达式，规则解析见 rules.go）
type Check struct {
	Expr string `json:"expr"`
}

// Row dump 中的一行种子数据
type Row struct {
	Table  string         `json:"table"`
	Values map[string]any `json:"values"`
}

// FindTable 按名字找表（大小写不敏感）
func (s *Schema) FindTable(name string) *Table {
	for i := range s.Tables {
		if strings.EqualFold(s.Tables[i].Name, name) {
			return &s.Tables[i]
		}
	}
	return nil
}

// FindColumn 按名字找列（大小写不敏感）
func (t *Table) FindColumn(name string) *Column {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// HasColumn 是否存在列
func (t *Table) HasColumn(name string) bool {
	return t.FindColumn(name) != nil
}

// ColumnNames 列名列表（保持声明顺序）
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// SortTables 按表名排序（调和结果与输入顺序无关时使用）
func SortTables(tables []Table) {
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
}

// MaxRepresentable decimal(p,s) 能表达的最大值
// 例：decimal(2,2) -> 0.99，decimal(5,2) -> 999.99
// 没有精度声明时返回 (0, false)
func (c *Column) MaxRepresentable() (float64, bool) {
	if c.Precision == nil || c.Scale == nil {
		return 0, false
	}
	p, s := *c.Precision, *c.Scale
	if p <= 0 || s < 0 || s > p {
		return 0, false
	}
	// 全 9 的 p 位数再右移 s 位：decimal(2,2) -> 99/100 = 0.99
	return (math.Pow(10, float64(p)) - 1) / math.Pow(10, float64(s)), true
}
