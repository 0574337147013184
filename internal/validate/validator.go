package validate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"optimasol-schema/internal/domain"
	"optimasol-schema/internal/reconcile"
	"optimasol-schema/internal/schema"
)

// ConstraintViolationError 行数据违反某条派生规则
// 始终点名具体规则和违规值，绝不只说"校验失败"
type ConstraintViolationError struct {
	Table string `json:"table"`
	Rule  string `json:"rule"`
	Value any    `json:"value"`
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint violation: %s: rule %q rejected value %v", e.Table, e.Rule, e.Value)
}

// PrecisionDefectError 值本身合法，但声明精度存不下它
// 这是 schema 的缺陷而不是数据的问题，单独分类上报
type PrecisionDefectError struct {
	Table     string  `json:"table"`
	Column    string  `json:"column"`
	Precision int     `json:"precision"`
	Scale     int     `json:"scale"`
	Value     float64 `json:"value"`
}

func (e *PrecisionDefectError) Error() string {
	return fmt.Sprintf("precision defect: %s.%s: decimal(%d,%d) cannot store %v",
		e.Table, e.Column, e.Precision, e.Scale, e.Value)
}

// Row 一行待校验数据，键为规范字段名
type Row map[string]any

// Rows 对一批行做全量校验：逐行规则 + 批内唯一性
// 与底层引擎无关，不管行来自哪个变体，这里统一执行两个 dump
// 观察到的全部 CHECK 语义。所有发现都累积返回，不在第一条就停
func Rows(e *reconcile.Entity, rows []Row) []error {
	var errs []error
	for _, row := range rows {
		errs = append(errs, Single(e, row)...)
	}
	errs = append(errs, uniqueness(e, rows)...)
	return errs
}

// Single 校验单行（不含需要整批才能判断的唯一性）
func Single(e *reconcile.Entity, row Row) []error {
	var errs []error
	for _, rule := range e.Rules {
		switch rule.Kind {
		case schema.RuleEnum:
			if err := checkEnum(e, rule, row); err != nil {
				errs = append(errs, err)
			}
		case schema.RuleRange:
			if err := checkRange(e, rule, row); err != nil {
				errs = append(errs, err)
			}
		case schema.RuleInterval:
			if err := checkInterval(e, rule, row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	errs = append(errs, checkNotNull(e, row)...)
	errs = append(errs, checkPrecision(e, row)...)
	return errs
}

func checkEnum(e *reconcile.Entity, rule schema.Rule, row Row) error {
	v, ok := row[rule.Column]
	if !ok || v == nil {
		return nil
	}
	s := asString(v)
	for _, allowed := range rule.Values {
		if s == allowed {
			return nil
		}
	}
	return &ConstraintViolationError{Table: e.Name, Rule: rule.String(), Value: v}
}

func checkRange(e *reconcile.Entity, rule schema.Rule, row Row) error {
	v, ok := row[rule.Column]
	if !ok || v == nil {
		return nil
	}
	n, ok := asFloat(v)
	if !ok {
		return &ConstraintViolationError{Table: e.Name, Rule: rule.String(), Value: v}
	}
	if rule.Min != nil {
		if n < *rule.Min || (rule.MinExcl && n == *rule.Min) {
			return &ConstraintViolationError{Table: e.Name, Rule: rule.String(), Value: v}
		}
	}
	if rule.Max != nil {
		if n > *rule.Max || (rule.MaxExcl && n == *rule.Max) {
			return &ConstraintViolationError{Table: e.Name, Rule: rule.String(), Value: v}
		}
	}
	return nil
}

// checkInterval 起止两列构成的时间区间，start >= end 一律拒绝
func checkInterval(e *reconcile.Entity, rule schema.Rule, row Row) error {
	sv, sok := row[rule.Start]
	ev, eok := row[rule.End]
	if !sok || !eok || sv == nil || ev == nil {
		return nil
	}
	if _, err := domain.ParseTimeSlot(asString(sv), asString(ev)); err != nil {
		return &ConstraintViolationError{
			Table: e.Name, Rule: rule.String(),
			Value: fmt.Sprintf("%v >= %v", sv, ev),
		}
	}
	return nil
}

func checkNotNull(e *reconcile.Entity, row Row) []error {
	var errs []error
	for _, f := range e.Fields {
		if !f.NotNull {
			continue
		}
		if v, ok := row[f.Name]; ok && v == nil {
			errs = append(errs, &ConstraintViolationError{
				Table: e.Name, Rule: f.Name + " NOT NULL", Value: nil,
			})
		}
	}
	return errs
}

// checkPrecision 值超出字段声明精度能表达的上界
func checkPrecision(e *reconcile.Entity, row Row) []error {
	var errs []error
	for _, f := range e.Fields {
		if f.Precision == nil || f.Scale == nil {
			continue
		}
		v, ok := row[f.Name]
		if !ok || v == nil {
			continue
		}
		n, ok := asFloat(v)
		if !ok {
			continue
		}
		col := schema.Column{Precision: f.Precision, Scale: f.Scale}
		if max, ok := col.MaxRepresentable(); ok && n > max {
			errs = append(errs, &PrecisionDefectError{
				Table: e.Name, Column: f.Name,
				Precision: *f.Precision, Scale: *f.Scale, Value: n,
			})
		}
	}
	return errs
}

// uniqueness 批内组合唯一性
func uniqueness(e *reconcile.Entity, rows []Row) []error {
	var errs []error
	for _, rule := range e.Rules {
		if rule.Kind != schema.RuleUnique {
			continue
		}
		seen := map[string]bool{}
		for _, row := range rows {
			parts := make([]string, 0, len(rule.Columns))
			missing := false
			for _, col := range rule.Columns {
				v, ok := row[col]
				if !ok || v == nil {
					missing = true
					break
				}
				parts = append(parts, asString(v))
			}
			if missing {
				continue
			}
			key := strings.Join(parts, "\x1f")
			if seen[key] {
				errs = append(errs, &ConstraintViolationError{
					Table: e.Name, Rule: rule.String(), Value: strings.Join(parts, ", "),
				})
				continue
			}
			seen[key] = true
		}
	}
	return errs
}

// SortErrors 让报告输出稳定
func SortErrors(errs []error) {
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", x)
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		n, err := strconv.ParseFloat(x, 64)
		return n, err == nil
	}
	return 0, false
}
