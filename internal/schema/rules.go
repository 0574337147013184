package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// RuleKind 从 CHECK/UNIQUE/enum 派生出来的规则类型
type RuleKind string

const (
	RuleEnum     RuleKind = "enum"     // 列值必须属于封闭枚举
	RuleRange    RuleKind = "range"    // 数值上下界
	RuleInterval RuleKind = "interval" // 两列构成的时间区间，start 必须早于 end
	RuleUnique   RuleKind = "unique"   // 组合唯一
)

// Rule 与底层存储引擎无关的行级约束
// 同一条规则不管来自 SQLite 的 CHECK 还是 MySQL 的 enum 列型，行为必须一致
type Rule struct {
	Kind    RuleKind `json:"kind"`
	Column  string   `json:"column,omitempty"` // enum/range
	Values  []string `json:"values,omitempty"` // enum
	Min     *float64 `json:"min,omitempty"`    // range
	Max     *float64 `json:"max,omitempty"`    // range
	MinExcl bool     `json:"min_excl,omitempty"`
	MaxExcl bool     `json:"max_excl,omitempty"`
	Start   string   `json:"start,omitempty"`   // interval
	End     string   `json:"end,omitempty"`     // interval
	Columns []string `json:"columns,omitempty"` // unique
}

// Key 规则的稳定标识，用于跨变体比较两条规则是否表达同一件事
func (r Rule) Key() string {
	switch r.Kind {
	case RuleEnum:
		return "enum:" + strings.ToLower(r.Column)
	case RuleRange:
		return "range:" + strings.ToLower(r.Column)
	case RuleInterval:
		return "interval:" + strings.ToLower(r.Start) + "<" + strings.ToLower(r.End)
	case RuleUnique:
		cols := make([]string, len(r.Columns))
		for i, c := range r.Columns {
			cols[i] = strings.ToLower(c)
		}
		return "unique:" + strings.Join(cols, ",")
	}
	return string(r.Kind)
}

func (r Rule) String() string {
	switch r.Kind {
	case RuleEnum:
		return fmt.Sprintf("%s IN (%s)", r.Column, strings.Join(r.Values, ", "))
	case RuleRange:
		var parts []string
		if r.Min != nil {
			op := ">="
			if r.MinExcl {
				op = ">"
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", r.Column, op, trimFloat(*r.Min)))
		}
		if r.Max != nil {
			op := "<="
			if r.MaxExcl {
				op = "<"
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", r.Column, op, trimFloat(*r.Max)))
		}
		return strings.Join(parts, " AND ")
	case RuleInterval:
		return fmt.Sprintf("%s < %s", r.Start, r.End)
	case RuleUnique:
		return fmt.Sprintf("UNIQUE (%s)", strings.Join(r.Columns, ", "))
	}
	return string(r.Kind)
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// DeriveRules 把一张表上观察到的全部约束物化为规则列表
// CHECK 表达式、enum 列型、UNIQUE 约束统一收敛到 Rule
func DeriveRules(t *Table) ([]Rule, error) {
	var rules []Rule
	byColumn := map[string]*Rule{} // range 合并用

	for _, chk := range t.Checks {
		parsed, err := ParseCheck(chk.Expr)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		for _, r := range parsed {
			if r.Kind == RuleRange {
				key := strings.ToLower(r.Column)
				if prev, ok := byColumn[key]; ok {
					mergeRange(prev, r)
					continue
				}
				rr := r
				byColumn[key] = &rr
				continue
			}
			rules = append(rules, r)
		}
	}
	for _, c := range t.Columns {
		if len(c.EnumValues) > 0 {
			rules = append(rules, Rule{Kind: RuleEnum, Column: c.Name, Values: c.EnumValues})
		}
	}
	for _, u := range t.Uniques {
		rules = append(rules, Rule{Kind: RuleUnique, Columns: u})
	}
	for _, r := range byColumn {
		rules = append(rules, *r)
	}
	return rules, nil
}

func mergeRange(dst *Rule, src Rule) {
	if src.Min != nil {
		dst.Min = src.Min
		dst.MinExcl = src.MinExcl
	}
	if src.Max != nil {
		dst.Max = src.Max
		dst.MaxExcl = src.MaxExcl
	}
}

// ParseCheck 解析两个 dump 中实际出现的 CHECK 表达式子集：
//
//	col IN ('a', 'b')          -> enum
//	col >= 0 AND col <= 6      -> range（同列自动合并）
//	col > 0                    -> range 单边
//	col_a < col_b              -> interval
//
// 不认识的表达式直接报错，宁可失败也不要静默吞掉一条约束
func ParseCheck(expr string) ([]Rule, error) {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimPrefix(expr, "(")
	expr = strings.TrimSuffix(expr, ")")

	var rules []Rule
	for _, term := range splitTopLevelAnd(expr) {
		r, err := parseTerm(term)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// splitTopLevelAnd 按括号深度为 0 的 AND 切分
func splitTopLevelAnd(expr string) []string {
	var parts []string
	depth := 0
	upper := strings.ToUpper(expr)
	last := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && i+5 <= len(expr) && upper[i:i+5] == " AND " {
			parts = append(parts, strings.TrimSpace(expr[last:i]))
			last = i + 5
			i += 4
		}
	}
	parts = append(parts, strings.TrimSpace(expr[last:]))
	return parts
}

func parseTerm(term string) (Rule, error) {
	upper := strings.ToUpper(term)

	if idx := strings.Index(upper, " IN "); idx > 0 {
		col := strings.TrimSpace(term[:idx])
		rest := strings.TrimSpace(term[idx+4:])
		rest = strings.TrimPrefix(rest, "(")
		rest = strings.TrimSuffix(rest, ")")
		var values []string
		for _, v := range strings.Split(rest, ",") {
			values = append(values, strings.Trim(strings.TrimSpace(v), "'"))
		}
		return Rule{Kind: RuleEnum, Column: unquoteIdent(col), Values: values}, nil
	}

	for _, op := range []string{"<=", ">=", "<", ">", "="} {
		idx := strings.Index(term, op)
		if idx <= 0 {
			continue
		}
		left := unquoteIdent(strings.TrimSpace(term[:idx]))
		right := strings.TrimSpace(term[idx+len(op):])
		if n, err := strconv.ParseFloat(right, 64); err == nil {
			r := Rule{Kind: RuleRange, Column: left}
			switch op {
			case "<":
				r.Max, r.MaxExcl = &n, true
			case "<=":
				r.Max = &n
			case ">":
				r.Min, r.MinExcl = &n, true
			case ">=":
				r.Min = &n
			case "=":
				r.Min, r.Max = &n, &n
			}
			return r, nil
		}
		// 右侧是标识符：列与列比较，即区间顺序约束
		right = unquoteIdent(right)
		if op == "<" || op == "<=" {
			return Rule{Kind: RuleInterval, Start: left, End: right}, nil
		}
		if op == ">" || op == ">=" {
			return Rule{Kind: RuleInterval, Start: right, End: left}, nil
		}
	}
	return Rule{}, fmt.Errorf("unsupported check expression: %q", term)
}

func unquoteIdent(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`\"")
	return s
}
