package reconcile

import "strings"

// Concept 同一语义字段在不同变体里的别名与单位
// 这是两个真实 dump 对照出来的对应表：一边用法语缩写+单位后缀，
// 另一边用英文名。规范名取英文名，单位取 SQLite 变体的单位（L / W）
type Concept struct {
	Table     string
	Canonical string
	Unit      string            // 规范单位
	Aliases   map[string]string // 别名 -> 该别名使用的单位
	Convert   string            // 别名单位到规范单位的换算说明
}

var concepts = []Concept{
	{
		Table:     "water_heaters",
		Canonical: "volume",
		Unit:      "L",
		Aliases:   map[string]string{"capacite_litres": "L"},
	},
	{
		Table:     "water_heaters",
		Canonical: "power",
		Unit:      "W",
		Aliases:   map[string]string{"puissance_kw": "kW"},
		Convert:   "kW -> W (x1000)",
	},
}

// conceptFor 查列所属概念；没有词典条目的列，其概念就是自己的名字
func conceptFor(table, column string) *Concept {
	table = strings.ToLower(table)
	column = strings.ToLower(column)
	for i := range concepts {
		c := &concepts[i]
		if c.Table != table {
			continue
		}
		if c.Canonical == column {
			return c
		}
		if _, ok := c.Aliases[column]; ok {
			return c
		}
	}
	return nil
}

// canonicalName 列的规范字段名
func canonicalName(table, column string) string {
	if c := conceptFor(table, column); c != nil {
		return c.Canonical
	}
	return strings.ToLower(column)
}

// unitOf 列在其源变体下的单位（词典没记录的列视为无单位语义）
func unitOf(table, column string) string {
	c := conceptFor(table, column)
	if c == nil {
		return ""
	}
	col := strings.ToLower(column)
	if col == c.Canonical {
		return c.Unit
	}
	return c.Aliases[col]
}
