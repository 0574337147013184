package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"optimasol-schema/internal/schema"
)

// DiscrepancyKind 差异分类
type DiscrepancyKind string

const (
	KindRenamedField      DiscrepancyKind = "renamed-field"
	KindUnitMismatch      DiscrepancyKind = "unit-mismatch"
	KindPrecisionDefect   DiscrepancyKind = "precision-defect"
	KindMissingCascade    DiscrepancyKind = "missing-cascade"
	KindMissingConstraint DiscrepancyKind = "missing-constraint"
	KindScopeMismatch     DiscrepancyKind = "scope-mismatch"
)

// Discrepancy 一条差异记录：表、字段、类别、说明
type Discrepancy struct {
	Table  string          `json:"table"`
	Field  string          `json:"field,omitempty"`
	Kind   DiscrepancyKind `json:"kind"`
	Detail string          `json:"detail"`
}

// Result 调和的完整产物
// Conflicts 单独列出：它们是比 Discrepancy 更严重的发现，但同样不中断批处理
type Result struct {
	Canonical     *Canonical            `json:"canonical"`
	Discrepancies []Discrepancy         `json:"discrepancies,omitempty"`
	Conflicts     []SchemaConflictError `json:"conflicts,omitempty"`
}

// Reconcile 把两个变体的 schema 合并为规范模型
// 纯分析，不碰任何外部状态；结果与参数顺序无关
// 返回 error 仅代表输入本身解析不了（如无法识别的 CHECK 表达式），
// 语义差异一律进 Result，绝不提前中断
func Reconcile(a, b *schema.Schema) (*Result, error) {
	variants := []*schema.Schema{a, b}
	sort.Slice(variants, func(i, j int) bool {
		if variants[i].Dialect != variants[j].Dialect {
			return variants[i].Dialect < variants[j].Dialect
		}
		return variants[i].Source < variants[j].Source
	})

	res := &Result{Canonical: &Canonical{}}

	names := tableNameUnion(variants)
	for _, name := range names {
		ta := variants[0].FindTable(name)
		tb := variants[1].FindTable(name)
		switch {
		case ta != nil && tb != nil:
			if err := res.reconcileTable(name, variants[0], ta, variants[1], tb); err != nil {
				return nil, err
			}
		case ta != nil:
			if err := res.adoptTable(name, variants[0], ta); err != nil {
				return nil, err
			}
		default:
			if err := res.adoptTable(name, variants[1], tb); err != nil {
				return nil, err
			}
		}
	}

	res.Canonical.normalize()
	sort.Slice(res.Discrepancies, func(i, j int) bool {
		di, dj := res.Discrepancies[i], res.Discrepancies[j]
		if di.Table != dj.Table {
			return di.Table < dj.Table
		}
		if di.Field != dj.Field {
			return di.Field < dj.Field
		}
		return di.Kind < dj.Kind
	})
	sort.Slice(res.Conflicts, func(i, j int) bool {
		ci, cj := res.Conflicts[i], res.Conflicts[j]
		if ci.Table != cj.Table {
			return ci.Table < cj.Table
		}
		return ci.Field < cj.Field
	})
	return res, nil
}

func tableNameUnion(variants []*schema.Schema) []string {
	seen := map[string]bool{}
	var names []string
	for _, v := range variants {
		for _, t := range v.Tables {
			key := strings.ToLower(t.Name)
			if !seen[key] {
				seen[key] = true
				names = append(names, key)
			}
		}
	}
	sort.Strings(names)
	return names
}

// adoptTable 只在单个变体里出现的表原样纳入规范模型
func (r *Result) adoptTable(name string, v *schema.Schema, t *schema.Table) error {
	e := Entity{Name: name}
	for _, c := range t.Columns {
		canon := canonicalName(name, c.Name)
		e.Fields = append(e.Fields, fieldFromColumn(canon, name, &c))
		e.Mappings = append(e.Mappings, FieldMapping{
			Dialect: v.Dialect, Table: t.Name, Column: c.Name, Field: canon,
		})
	}
	rules, err := mappedRules(name, t)
	if err != nil {
		return err
	}
	e.Rules = rules
	e.PrimaryKey = canonicalColumns(name, t.PrimaryKey)
	e.Rules = appendPrimaryKeyRule(e.Rules, e.PrimaryKey)
	e.Scope = scopeOf(&e)
	r.Canonical.Entities = append(r.Canonical.Entities, e)
	return nil
}

// reconcileTable 两个变体都有的表：逐概念合并列，再比对规则与外键
func (r *Result) reconcileTable(name string, va *schema.Schema, ta *schema.Table, vb *schema.Schema, tb *schema.Table) error {
	e := Entity{Name: name}

	type pair struct {
		a, b *schema.Column
	}
	groups := map[string]*pair{}
	var order []string
	add := func(col *schema.Column, second bool) {
		canon := canonicalName(name, col.Name)
		g, ok := groups[canon]
		if !ok {
			g = &pair{}
			groups[canon] = g
			order = append(order, canon)
		}
		if second {
			g.b = col
		} else {
			g.a = col
		}
	}
	for i := range ta.Columns {
		add(&ta.Columns[i], false)
	}
	for i := range tb.Columns {
		add(&tb.Columns[i], true)
	}
	sort.Strings(order)

	for _, canon := range order {
		g := groups[canon]
		switch {
		case g.a != nil && g.b != nil:
			r.mergeColumns(&e, name, va, g.a, vb, g.b, canon)
		case g.a != nil:
			r.oneSidedColumn(&e, name, va, ta, g.a, vb, tb, canon)
		default:
			r.oneSidedColumn(&e, name, vb, tb, g.b, va, ta, canon)
		}
	}

	rulesA, err := mappedRules(name, ta)
	if err != nil {
		return err
	}
	rulesB, err := mappedRules(name, tb)
	if err != nil {
		return err
	}
	r.mergeRules(&e, name, va.Dialect, rulesA, vb.Dialect, rulesB)

	r.mergePrimaryKey(&e, name,
		va.Dialect, canonicalColumns(name, ta.PrimaryKey),
		vb.Dialect, canonicalColumns(name, tb.PrimaryKey))
	e.Rules = appendPrimaryKeyRule(e.Rules, e.PrimaryKey)

	r.compareForeignKeys(name, va, ta, vb, tb)
	r.flagPrecisionDefects(&e, name)

	e.Scope = scopeOf(&e)
	r.Canonical.Entities = append(r.Canonical.Entities, e)
	return nil
}

// mergeColumns 两边都有的概念：合并成一个规范字段，顺带标出改名和单位差异
func (r *Result) mergeColumns(e *Entity, table string, va *schema.Schema, ca *schema.Column, vb *schema.Schema, cb *schema.Column, canon string) {
	if !strings.EqualFold(ca.Name, cb.Name) {
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Table: table, Field: canon, Kind: KindRenamedField,
			Detail: fmt.Sprintf("%s: %s / %s: %s", va.Dialect, ca.Name, vb.Dialect, cb.Name),
		})
	}

	ua, ub := unitOf(table, ca.Name), unitOf(table, cb.Name)
	noteA, noteB := "", ""
	if ua != ub && ua != "" && ub != "" {
		c := conceptFor(table, ca.Name)
		// 换算备注挂在偏离规范单位的那一侧
		if ua != c.Unit {
			noteA = c.Convert
		} else {
			noteB = c.Convert
		}
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Table: table, Field: canon, Kind: KindUnitMismatch,
			Detail: fmt.Sprintf("%s stores %s, %s stores %s (%s)", va.Dialect, ua, vb.Dialect, ub, c.Convert),
		})
	}

	la, ranka := logicalType(ca.Type)
	lb, rankb := logicalType(cb.Type)
	if !typesCompatible(la, lb) {
		r.Conflicts = append(r.Conflicts, SchemaConflictError{
			Table: table, Field: canon,
			Detail: fmt.Sprintf("incompatible types: %s declares %s, %s declares %s", va.Dialect, ca.Type, vb.Dialect, cb.Type),
		})
	}

	f := Field{Name: canon, NotNull: ca.NotNull || cb.NotNull}
	if ranka >= rankb {
		f.Type = la
	} else {
		f.Type = lb
	}
	if c := conceptFor(table, canon); c != nil {
		f.Unit = c.Unit
	}
	f.Default = mergeDefault(ca.Default, cb.Default)
	f.Precision, f.Scale = tighterPrecision(ca, cb)

	e.Fields = append(e.Fields, f)
	e.Mappings = append(e.Mappings,
		FieldMapping{Dialect: va.Dialect, Table: table, Column: ca.Name, Field: canon, Note: noteA},
		FieldMapping{Dialect: vb.Dialect, Table: table, Column: cb.Name, Field: canon, Note: noteB},
	)
}

// oneSidedColumn 概念只在一个变体出现
// 所有权列（指向父表的外键列）缺席意味着两边对表的归属建模不同：scope-mismatch
// 其余列直接并入规范模型（并集策略，不丢字段）
func (r *Result) oneSidedColumn(e *Entity, table string, v *schema.Schema, t *schema.Table, col *schema.Column, other *schema.Schema, otherTable *schema.Table, canon string) {
	if ref := ownerRef(t, col.Name); ref != "" {
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Table: table, Field: canon, Kind: KindScopeMismatch,
			Detail: fmt.Sprintf("%s keys rows per %s via %s, %s models the table as global", v.Dialect, ref, col.Name, other.Dialect),
		})
	}
	e.Fields = append(e.Fields, fieldFromColumn(canon, table, col))
	e.Mappings = append(e.Mappings, FieldMapping{
		Dialect: v.Dialect, Table: t.Name, Column: col.Name, Field: canon,
	})
}

// mergeRules 比对两边派生出的规则集
// 同键不同内容的枚举：交集为空即冲突；否则取交集并记 missing-constraint
// 单边规则照单全收，但记下未强制执行它的变体
func (r *Result) mergeRules(e *Entity, table string, da schema.Dialect, rulesA []schema.Rule, db schema.Dialect, rulesB []schema.Rule) {
	byKeyA := ruleIndex(rulesA)
	byKeyB := ruleIndex(rulesB)

	keys := map[string]bool{}
	for k := range byKeyA {
		keys[k] = true
	}
	for k := range byKeyB {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		ra, inA := byKeyA[k]
		rb, inB := byKeyB[k]
		switch {
		case inA && inB:
			merged, d, conflict := mergeRulePair(table, da, ra, db, rb)
			if conflict != nil {
				r.Conflicts = append(r.Conflicts, *conflict)
				continue
			}
			if d != nil {
				r.Discrepancies = append(r.Discrepancies, *d)
			}
			e.Rules = append(e.Rules, merged)
		case inA:
			r.Discrepancies = append(r.Discrepancies, Discrepancy{
				Table: table, Field: ra.Column, Kind: KindMissingConstraint,
				Detail: fmt.Sprintf("%s variant does not enforce %q", db, ra.String()),
			})
			e.Rules = append(e.Rules, ra)
		default:
			r.Discrepancies = append(r.Discrepancies, Discrepancy{
				Table: table, Field: rb.Column, Kind: KindMissingConstraint,
				Detail: fmt.Sprintf("%s variant does not enforce %q", da, rb.String()),
			})
			e.Rules = append(e.Rules, rb)
		}
	}
}

// mergeRulePair 同键规则合并
func mergeRulePair(table string, da schema.Dialect, ra schema.Rule, db schema.Dialect, rb schema.Rule) (schema.Rule, *Discrepancy, *SchemaConflictError) {
	if ra.Kind == schema.RuleEnum {
		inter := intersect(ra.Values, rb.Values)
		if len(inter) == 0 {
			return schema.Rule{}, nil, &SchemaConflictError{
				Table: table, Field: ra.Column,
				Detail: fmt.Sprintf("disjoint enumerations: %s allows (%s), %s allows (%s)",
					da, strings.Join(ra.Values, ", "), db, strings.Join(rb.Values, ", ")),
			}
		}
		if len(inter) != len(ra.Values) || len(inter) != len(rb.Values) {
			merged := ra
			merged.Values = inter
			return merged, &Discrepancy{
				Table: table, Field: ra.Column, Kind: KindMissingConstraint,
				Detail: fmt.Sprintf("enumeration domains differ: %s (%s) vs %s (%s), canonical keeps the intersection",
					da, strings.Join(ra.Values, ", "), db, strings.Join(rb.Values, ", ")),
			}, nil
		}
		return ra, nil, nil
	}

	if ra.Kind == schema.RuleRange && !sameRange(ra, rb) {
		merged := stricterRange(ra, rb)
		return merged, &Discrepancy{
			Table: table, Field: ra.Column, Kind: KindMissingConstraint,
			Detail: fmt.Sprintf("range bounds differ: %s %q vs %s %q, canonical keeps the stricter bounds",
				da, ra.String(), db, rb.String()),
		}, nil
	}
	return ra, nil, nil
}

// mergePrimaryKey 主键声明合并
// 一侧未声明或声明了另一侧的子集时，规范模型保留更宽的键并记 missing-constraint；
// 互不包含的两个主键无从调和，按冲突上报
func (r *Result) mergePrimaryKey(e *Entity, table string, da schema.Dialect, pka []string, db schema.Dialect, pkb []string) {
	switch {
	case len(pka) == 0 && len(pkb) == 0:
		return
	case len(pkb) == 0:
		e.PrimaryKey = pka
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Table: table, Field: strings.Join(pka, ","), Kind: KindMissingConstraint,
			Detail: fmt.Sprintf("%s variant declares no primary key", db),
		})
		return
	case len(pka) == 0:
		e.PrimaryKey = pkb
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Table: table, Field: strings.Join(pkb, ","), Kind: KindMissingConstraint,
			Detail: fmt.Sprintf("%s variant declares no primary key", da),
		})
		return
	}
	if equalFold(pka, pkb) {
		e.PrimaryKey = pka
		return
	}
	switch {
	case subsetFold(pkb, pka):
		e.PrimaryKey = pka
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Table: table, Field: strings.Join(pka, ","), Kind: KindMissingConstraint,
			Detail: fmt.Sprintf("primary keys differ: %s (%s) vs %s (%s), canonical keeps the wider key",
				da, strings.Join(pka, ", "), db, strings.Join(pkb, ", ")),
		})
	case subsetFold(pka, pkb):
		e.PrimaryKey = pkb
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Table: table, Field: strings.Join(pkb, ","), Kind: KindMissingConstraint,
			Detail: fmt.Sprintf("primary keys differ: %s (%s) vs %s (%s), canonical keeps the wider key",
				db, strings.Join(pkb, ", "), da, strings.Join(pka, ", ")),
		})
	default:
		e.PrimaryKey = pka
		r.Conflicts = append(r.Conflicts, SchemaConflictError{
			Table: table, Field: strings.Join(pka, ","),
			Detail: fmt.Sprintf("divergent primary keys: %s declares (%s), %s declares (%s)",
				da, strings.Join(pka, ", "), db, strings.Join(pkb, ", ")),
		})
	}
}

// compareForeignKeys 外键级联语义对照
// 两边都有的外键只比较 ON DELETE CASCADE；删除级联缺席是已知的数据完整性缺口
func (r *Result) compareForeignKeys(table string, va *schema.Schema, ta *schema.Table, vb *schema.Schema, tb *schema.Table) {
	for _, fa := range ta.ForeignKeys {
		fb := findForeignKey(tb, fa)
		if fb == nil {
			// 对侧连这根外键的列都没有时已经按 scope-mismatch 上报过
			if len(fa.Columns) == 1 && !tb.HasColumn(fa.Columns[0]) {
				continue
			}
			r.Discrepancies = append(r.Discrepancies, Discrepancy{
				Table: table, Field: strings.Join(fa.Columns, ","), Kind: KindMissingConstraint,
				Detail: fmt.Sprintf("%s variant does not declare the foreign key to %s", vb.Dialect, fa.RefTable),
			})
			continue
		}
		if fa.OnDeleteCascade != fb.OnDeleteCascade {
			lacking := vb.Dialect
			if fb.OnDeleteCascade {
				lacking = va.Dialect
			}
			r.Discrepancies = append(r.Discrepancies, Discrepancy{
				Table: table, Field: strings.Join(fa.Columns, ","), Kind: KindMissingCascade,
				Detail: fmt.Sprintf("%s variant omits ON DELETE CASCADE on the foreign key to %s", lacking, fa.RefTable),
			})
		}
	}

	// 反向：只在 b 侧声明的外键
	for _, fb := range tb.ForeignKeys {
		if findForeignKey(ta, fb) != nil {
			continue
		}
		if len(fb.Columns) == 1 && !ta.HasColumn(fb.Columns[0]) {
			continue
		}
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Table: table, Field: strings.Join(fb.Columns, ","), Kind: KindMissingConstraint,
			Detail: fmt.Sprintf("%s variant does not declare the foreign key to %s", va.Dialect, fb.RefTable),
		})
	}
}

// flagPrecisionDefects 声明精度装不下规则允许的上界就是缺陷
// 典型：decimal(2,2) 最大只能存 0.99，而 temperature_minimale 的合法域到 95
func (r *Result) flagPrecisionDefects(e *Entity, table string) {
	for _, f := range e.Fields {
		if f.Precision == nil || f.Scale == nil {
			continue
		}
		col := schema.Column{Precision: f.Precision, Scale: f.Scale}
		max, ok := col.MaxRepresentable()
		if !ok {
			continue
		}
		for _, rule := range e.Rules {
			if rule.Kind != schema.RuleRange || !strings.EqualFold(rule.Column, f.Name) || rule.Max == nil {
				continue
			}
			bound := *rule.Max
			if bound > max {
				r.Discrepancies = append(r.Discrepancies, Discrepancy{
					Table: table, Field: f.Name, Kind: KindPrecisionDefect,
					Detail: fmt.Sprintf("decimal(%d,%d) caps at %v but the documented range reaches %v",
						*f.Precision, *f.Scale, max, bound),
				})
			}
		}
	}
}

// ---- 辅助 ----

func fieldFromColumn(canon, table string, c *schema.Column) Field {
	lt, _ := logicalType(c.Type)
	f := Field{Name: canon, Type: lt, NotNull: c.NotNull, Default: dropNullDefault(c.Default), Precision: c.Precision, Scale: c.Scale}
	if concept := conceptFor(table, canon); concept != nil {
		f.Unit = concept.Unit
	}
	return f
}

// dropNullDefault 字面量 DEFAULT NULL 等于没有默认值，丢掉它
// 否则与另一侧的 NOT NULL 合并会产出自相矛盾的列定义
func dropNullDefault(d *string) *string {
	if d == nil || strings.EqualFold(strings.TrimSpace(*d), "NULL") {
		return nil
	}
	return d
}

// mergeDefault 两侧默认值合并，先到先得但 NULL 不算数
func mergeDefault(a, b *string) *string {
	if d := dropNullDefault(a); d != nil {
		return d
	}
	return dropNullDefault(b)
}

// canonicalColumns 列名列表整体映射到规范名
func canonicalColumns(table string, cols []string) []string {
	if len(cols) == 0 {
		return nil
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = canonicalName(table, c)
	}
	return out
}

// appendPrimaryKeyRule 主键本身就是一条组合唯一约束，喂给行校验器
func appendPrimaryKeyRule(rules []schema.Rule, pk []string) []schema.Rule {
	if len(pk) == 0 {
		return rules
	}
	pkRule := schema.Rule{Kind: schema.RuleUnique, Columns: pk}
	for _, r := range rules {
		if r.Key() == pkRule.Key() {
			return rules
		}
	}
	return append(rules, pkRule)
}

// tighterPrecision 两边都声明了精度时取能表达范围更窄的那组
func tighterPrecision(a, b *schema.Column) (*int, *int) {
	maxA, okA := a.MaxRepresentable()
	maxB, okB := b.MaxRepresentable()
	switch {
	case okA && okB:
		if maxA <= maxB {
			return a.Precision, a.Scale
		}
		return b.Precision, b.Scale
	case okA:
		return a.Precision, a.Scale
	case okB:
		return b.Precision, b.Scale
	}
	return nil, nil
}

// mappedRules 派生规则并把列名替换为规范名
func mappedRules(table string, t *schema.Table) ([]schema.Rule, error) {
	rules, err := schema.DeriveRules(t)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		r := &rules[i]
		if r.Column != "" {
			r.Column = canonicalName(table, r.Column)
		}
		if r.Start != "" {
			r.Start = canonicalName(table, r.Start)
		}
		if r.End != "" {
			r.End = canonicalName(table, r.End)
		}
		for j, c := range r.Columns {
			r.Columns[j] = canonicalName(table, c)
		}
	}
	return rules, nil
}

func ruleIndex(rules []schema.Rule) map[string]schema.Rule {
	idx := make(map[string]schema.Rule, len(rules))
	for _, r := range rules {
		idx[r.Key()] = r
	}
	return idx
}

// ownerRef 列是否为指向父表的单列外键，是则返回父表名
func ownerRef(t *schema.Table, column string) string {
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 1 && strings.EqualFold(fk.Columns[0], column) {
			return fk.RefTable
		}
	}
	return ""
}

func findForeignKey(t *schema.Table, want schema.ForeignKey) *schema.ForeignKey {
	for i := range t.ForeignKeys {
		fk := &t.ForeignKeys[i]
		if strings.EqualFold(fk.RefTable, want.RefTable) && equalFold(fk.Columns, want.Columns) {
			return fk
		}
	}
	return nil
}

func equalFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// subsetFold a 的每一列是否都出现在 b 里
func subsetFold(a, b []string) bool {
	for _, x := range a {
		found := false
		for _, y := range b {
			if strings.EqualFold(x, y) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func intersect(a, b []string) []string {
	set := map[string]bool{}
	for _, v := range b {
		set[v] = true
	}
	var out []string
	for _, v := range a {
		if set[v] {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func sameRange(a, b schema.Rule) bool {
	eq := func(x, y *float64) bool {
		if (x == nil) != (y == nil) {
			return false
		}
		return x == nil || *x == *y
	}
	return eq(a.Min, b.Min) && eq(a.Max, b.Max) && a.MinExcl == b.MinExcl && a.MaxExcl == b.MaxExcl
}

func stricterRange(a, b schema.Rule) schema.Rule {
	out := a
	if b.Min != nil && (out.Min == nil || *b.Min > *out.Min || (*b.Min == *out.Min && b.MinExcl)) {
		out.Min, out.MinExcl = b.Min, b.MinExcl
	}
	if b.Max != nil && (out.Max == nil || *b.Max < *out.Max || (*b.Max == *out.Max && b.MaxExcl)) {
		out.Max, out.MaxExcl = b.Max, b.MaxExcl
	}
	return out
}

// scopeOf 实体归属：带 client_id 的按客户分片，带 constraint_id 的挂在约束下，否则是全局表
func scopeOf(e *Entity) string {
	if e.Name == "clients" {
		return "per-client"
	}
	if e.FindField("client_id") != nil {
		return "per-client"
	}
	if e.FindField("constraint_id") != nil {
		return "per-constraint"
	}
	return "global"
}
