package reconcile

import (
	"sort"
	"strings"

	"optimasol-schema/internal/schema"
)

// Canonical 调和后的规范 schema 文档
// 这是消费方唯一应该依赖的形状，任何一个源变体的形状都不允许泄漏出去
type Canonical struct {
	Entities []Entity `json:"entities"`
}

// Entity 规范实体（对应一张逻辑表）
type Entity struct {
	Name       string         `json:"name"`
	Scope      string         `json:"scope"` // "per-client"、"per-constraint" 或 "global"
	PrimaryKey []string       `json:"primary_key,omitempty"`
	Fields     []Field        `json:"fields"`
	Rules      []schema.Rule  `json:"rules,omitempty"`
	Mappings   []FieldMapping `json:"mappings,omitempty"`
}

// Field 规范字段
type Field struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"` // integer/real/text/time/timestamp/json
	Unit      string  `json:"unit,omitempty"`
	NotNull   bool    `json:"not_null,omitempty"`
	Default   *string `json:"default,omitempty"`
	Precision *int    `json:"precision,omitempty"` // 变体声明过 decimal(p,s) 时保留，供缺陷检查
	Scale     *int    `json:"scale,omitempty"`
}

// FieldMapping 源列到规范字段的映射
type FieldMapping struct {
	Dialect schema.Dialect `json:"dialect"`
	Table   string         `json:"table"`
	Column  string         `json:"column"`
	Field   string         `json:"field"`
	Note    string         `json:"note,omitempty"` // 单位换算等备注
}

// FindEntity 按名字找实体
func (c *Canonical) FindEntity(name string) *Entity {
	for i := range c.Entities {
		if strings.EqualFold(c.Entities[i].Name, name) {
			return &c.Entities[i]
		}
	}
	return nil
}

// FindField 按名字找字段
func (e *Entity) FindField(name string) *Field {
	for i := range e.Fields {
		if strings.EqualFold(e.Fields[i].Name, name) {
			return &e.Fields[i]
		}
	}
	return nil
}

// normalize 保证序列化与比较不受输入顺序影响
func (c *Canonical) normalize() {
	for i := range c.Entities {
		e := &c.Entities[i]
		sort.Slice(e.Fields, func(a, b int) bool { return e.Fields[a].Name < e.Fields[b].Name })
		sort.Slice(e.Rules, func(a, b int) bool { return e.Rules[a].Key() < e.Rules[b].Key() })
		sort.Slice(e.Mappings, func(a, b int) bool {
			ma, mb := e.Mappings[a], e.Mappings[b]
			if ma.Dialect != mb.Dialect {
				return ma.Dialect < mb.Dialect
			}
			if ma.Table != mb.Table {
				return ma.Table < mb.Table
			}
			return ma.Column < mb.Column
		})
	}
	sort.Slice(c.Entities, func(a, b int) bool { return c.Entities[a].Name < c.Entities[b].Name })
}

// logicalType 把原始声明类型压到少数几个逻辑类型
// 排序值用于在两个变体声明不一致时确定性地选更具体的那个
func logicalType(raw string) (string, int) {
	base := raw
	if idx := strings.Index(base, "("); idx >= 0 {
		base = base[:idx]
	}
	base = strings.ToLower(strings.TrimSpace(base))
	switch base {
	case "int", "integer", "tinyint", "smallint", "mediumint", "bigint":
		return "integer", 1
	case "real", "double", "float", "decimal", "numeric":
		return "real", 2
	case "time":
		return "time", 4
	case "timestamp", "datetime":
		return "timestamp", 4
	case "json", "jsonb":
		return "json", 5
	default:
		// text / varchar / char / enum / set 以及不认识的都落到 text
		return "text", 0
	}
}

// typesCompatible 两个逻辑类型能否描述同一个概念
// 数值之间兼容、时间可以存成文本；json 和数值/时间之间没有调和余地
func typesCompatible(a, b string) bool {
	if a == b {
		return true
	}
	numeric := func(t string) bool { return t == "integer" || t == "real" }
	textual := func(t string) bool { return t == "text" || t == "time" || t == "timestamp" }
	if numeric(a) && numeric(b) {
		return true
	}
	if textual(a) && textual(b) {
		return true
	}
	// tinyint(1) 布尔习惯用法：整数与文本枚举之外的组合不再放行
	return false
}
