package reconcile

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optimasol-schema/internal/dialect"
	"optimasol-schema/internal/schema"
)

func loadVariant(t *testing.T, path string, d schema.Dialect) *schema.Schema {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s, err := dialect.Parse(string(data), d, path)
	require.NoError(t, err)
	return s
}

func loadBoth(t *testing.T) (*schema.Schema, *schema.Schema) {
	t.Helper()
	return loadVariant(t, "../../sql/db_engine_sqlite.sql", schema.DialectSQLite),
		loadVariant(t, "../../sql/db_engine_mysql.sql", schema.DialectMySQL)
}

func kinds(res *Result, table string) map[DiscrepancyKind][]Discrepancy {
	out := map[DiscrepancyKind][]Discrepancy{}
	for _, d := range res.Discrepancies {
		if d.Table == table {
			out[d.Kind] = append(out[d.Kind], d)
		}
	}
	return out
}

func TestReconcile_OrderIndependent(t *testing.T) {
	a, b := loadBoth(t)

	r1, err := Reconcile(a, b)
	require.NoError(t, err)
	r2, err := Reconcile(b, a)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
}

func TestReconcile_RealDumpsHaveNoConflicts(t *testing.T) {
	a, b := loadBoth(t)
	res, err := Reconcile(a, b)
	require.NoError(t, err)

	assert.Empty(t, res.Conflicts)
	assert.Len(t, res.Canonical.Entities, 7)
}

func TestReconcile_RenamedFieldAndUnit(t *testing.T) {
	a, b := loadBoth(t)
	res, err := Reconcile(a, b)
	require.NoError(t, err)

	wh := kinds(res, "water_heaters")
	require.Len(t, wh[KindRenamedField], 2)
	assert.Equal(t, "power", wh[KindRenamedField][0].Field)
	assert.Equal(t, "volume", wh[KindRenamedField][1].Field)

	require.Len(t, wh[KindUnitMismatch], 1)
	assert.Equal(t, "power", wh[KindUnitMismatch][0].Field)
	assert.Contains(t, wh[KindUnitMismatch][0].Detail, "kW -> W (x1000)")

	// 规范模型只认英文名和瓦/升
	e := res.Canonical.FindEntity("water_heaters")
	require.NotNil(t, e)
	assert.NotNil(t, e.FindField("volume"))
	assert.NotNil(t, e.FindField("power"))
	assert.Nil(t, e.FindField("capacite_litres"))
	assert.Nil(t, e.FindField("puissance_kw"))
	assert.Equal(t, "W", e.FindField("power").Unit)
}

func TestReconcile_PrecisionDefect(t *testing.T) {
	a, b := loadBoth(t)
	res, err := Reconcile(a, b)
	require.NoError(t, err)

	cs := kinds(res, "constraints")
	require.Len(t, cs[KindPrecisionDefect], 1)
	d := cs[KindPrecisionDefect][0]
	assert.Equal(t, "temperature_minimale", d.Field)
	assert.Contains(t, d.Detail, "decimal(2,2)")
	assert.Contains(t, d.Detail, "0.99")
}

func TestReconcile_MissingCascade(t *testing.T) {
	a, b := loadBoth(t)
	res, err := Reconcile(a, b)
	require.NoError(t, err)

	cs := kinds(res, "constraints")
	require.Len(t, cs[KindMissingCascade], 1)
	assert.Equal(t, "client_id", cs[KindMissingCascade][0].Field)
	assert.Contains(t, cs[KindMissingCascade][0].Detail, "mysql")
}

func TestReconcile_ScopeMismatchOnGlobalTables(t *testing.T) {
	a, b := loadBoth(t)
	res, err := Reconcile(a, b)
	require.NoError(t, err)

	for _, table := range []string{"prices", "creneaux_hp"} {
		ks := kinds(res, table)
		require.Len(t, ks[KindScopeMismatch], 1, table)
		assert.Equal(t, "client_id", ks[KindScopeMismatch][0].Field)

		// 并集策略：client_id 仍进入规范模型，实体按客户分片
		e := res.Canonical.FindEntity(table)
		require.NotNil(t, e)
		assert.NotNil(t, e.FindField("client_id"))
		assert.Equal(t, "per-client", e.Scope)
	}
}

func TestReconcile_MissingConstraintForOneSidedChecks(t *testing.T) {
	a, b := loadBoth(t)
	res, err := Reconcile(a, b)
	require.NoError(t, err)

	// MySQL 侧没有 CHECK，SQLite 的温度范围照收并记差异
	cs := kinds(res, "constraints")
	var found bool
	for _, d := range cs[KindMissingConstraint] {
		if d.Field == "temperature_minimale" {
			found = true
			assert.Contains(t, d.Detail, "mysql variant does not enforce")
		}
	}
	assert.True(t, found)

	e := res.Canonical.FindEntity("constraints")
	require.NotNil(t, e)
	var r *schema.Rule
	for i := range e.Rules {
		if e.Rules[i].Kind == schema.RuleRange && e.Rules[i].Column == "temperature_minimale" {
			r = &e.Rules[i]
		}
	}
	require.NotNil(t, r)
	assert.Equal(t, 0.0, *r.Min)
	assert.Equal(t, 95.0, *r.Max)
	assert.True(t, r.MaxExcl)
}

func TestReconcile_VariantOnlyFieldsJoinCanonical(t *testing.T) {
	a, b := loadBoth(t)
	res, err := Reconcile(a, b)
	require.NoError(t, err)

	clients := res.Canonical.FindEntity("clients")
	require.NotNil(t, clients)
	// MySQL 专属的地理与认证字段并入，不算差异
	for _, name := range []string{"nom", "email", "latitude", "longitude", "tilt", "azimuth", "router_id", "pwd"} {
		assert.NotNil(t, clients.FindField(name), name)
	}
	ks := kinds(res, "clients")
	assert.Empty(t, ks[KindScopeMismatch])

	// puissance_maison 和 profil_conso 是两个概念，各自保留
	constraints := res.Canonical.FindEntity("constraints")
	require.NotNil(t, constraints)
	assert.NotNil(t, constraints.FindField("puissance_maison"))
	pc := constraints.FindField("profil_conso")
	require.NotNil(t, pc)
	assert.Equal(t, "json", pc.Type)
}

func TestReconcile_PrimaryKeysCarried(t *testing.T) {
	a, b := loadBoth(t)
	res, err := Reconcile(a, b)
	require.NoError(t, err)

	// 两边声明一致的主键原样进入规范模型
	for table, pk := range map[string][]string{
		"clients":           {"client_id"},
		"constraints":       {"constraint_id"},
		"plages_interdites": {"plage_interdite_id"},
		"water_heaters":     {"water_heater_id"},
		"consignes":         {"consigne_id"},
		"creneaux_hp":       {"creneau_hp_id"},
	} {
		e := res.Canonical.FindEntity(table)
		require.NotNil(t, e, table)
		assert.Equal(t, pk, e.PrimaryKey, table)
	}

	// prices 两边主键发散：SQLite (client_id, type) 对 MySQL (type)，取更宽的键
	prices := res.Canonical.FindEntity("prices")
	require.NotNil(t, prices)
	assert.Equal(t, []string{"client_id", "type"}, prices.PrimaryKey)

	var found bool
	for _, d := range kinds(res, "prices")[KindMissingConstraint] {
		if strings.Contains(d.Detail, "primary keys differ") {
			found = true
			assert.Contains(t, d.Detail, "wider key")
		}
	}
	assert.True(t, found)

	// 主键同时物化为组合唯一规则，行校验器据此拒绝重复行
	var unique *schema.Rule
	for i := range prices.Rules {
		if prices.Rules[i].Kind == schema.RuleUnique {
			unique = &prices.Rules[i]
		}
	}
	require.NotNil(t, unique)
	assert.Equal(t, []string{"client_id", "type"}, unique.Columns)
}

func TestReconcile_DivergentPrimaryKeysConflict(t *testing.T) {
	a := &schema.Schema{Dialect: schema.DialectSQLite, Source: "a", Tables: []schema.Table{{
		Name:       "journal",
		Columns:    []schema.Column{{Name: "jour", Type: "integer"}, {Name: "ref", Type: "text"}},
		PrimaryKey: []string{"jour"},
	}}}
	b := &schema.Schema{Dialect: schema.DialectMySQL, Source: "b", Tables: []schema.Table{{
		Name:       "journal",
		Columns:    []schema.Column{{Name: "jour", Type: "int"}, {Name: "ref", Type: "varchar(32)"}},
		PrimaryKey: []string{"ref"},
	}}}

	res, err := Reconcile(a, b)
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Contains(t, res.Conflicts[0].Detail, "divergent primary keys")
}

func TestReconcile_ConversionNoteOnDivergentSide(t *testing.T) {
	a, b := loadBoth(t)
	res, err := Reconcile(a, b)
	require.NoError(t, err)

	// 规范单位是 W：换算备注必须挂在存 kW 的 MySQL 映射上
	e := res.Canonical.FindEntity("water_heaters")
	require.NotNil(t, e)
	for _, m := range e.Mappings {
		if m.Field != "power" {
			continue
		}
		switch m.Column {
		case "puissance_kw":
			assert.Equal(t, schema.DialectMySQL, m.Dialect)
			assert.Equal(t, "kW -> W (x1000)", m.Note)
		case "power":
			assert.Equal(t, schema.DialectSQLite, m.Dialect)
			assert.Empty(t, m.Note)
		}
	}
}

func TestReconcile_LiteralNullDefaultsDropped(t *testing.T) {
	a, b := loadBoth(t)
	res, err := Reconcile(a, b)
	require.NoError(t, err)

	// MySQL 的 DEFAULT NULL 不得与另一侧的 NOT NULL 拼出矛盾的列定义
	prix := res.Canonical.FindEntity("prices").FindField("prix")
	require.NotNil(t, prix)
	assert.True(t, prix.NotNull)
	assert.Nil(t, prix.Default)

	// 真默认值的一侧照常保留
	tm := res.Canonical.FindEntity("constraints").FindField("temperature_minimale")
	require.NotNil(t, tm)
	require.NotNil(t, tm.Default)
	assert.Equal(t, "10.0", *tm.Default)
}

func TestReconcile_DisjointEnumsConflict(t *testing.T) {
	a := &schema.Schema{Dialect: schema.DialectSQLite, Source: "a", Tables: []schema.Table{{
		Name:    "clients",
		Columns: []schema.Column{{Name: "mode", Type: "text"}},
		Checks:  []schema.Check{{Expr: "mode IN ('AutoCons', 'cost')"}},
	}}}
	b := &schema.Schema{Dialect: schema.DialectMySQL, Source: "b", Tables: []schema.Table{{
		Name:    "clients",
		Columns: []schema.Column{{Name: "mode", Type: "enum('off','manual')", EnumValues: []string{"off", "manual"}}},
	}}}

	res, err := Reconcile(a, b)
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "clients", res.Conflicts[0].Table)
	assert.Equal(t, "mode", res.Conflicts[0].Field)
	assert.Contains(t, res.Conflicts[0].Detail, "disjoint enumerations")

	// 冲突的规则不进规范模型
	e := res.Canonical.FindEntity("clients")
	require.NotNil(t, e)
	assert.Empty(t, e.Rules)
}

func TestReconcile_EnumIntersection(t *testing.T) {
	a := &schema.Schema{Dialect: schema.DialectSQLite, Source: "a", Tables: []schema.Table{{
		Name:    "prices",
		Columns: []schema.Column{{Name: "type", Type: "text"}},
		Checks:  []schema.Check{{Expr: "type IN ('base', 'hp', 'hc', 'revente')"}},
	}}}
	b := &schema.Schema{Dialect: schema.DialectMySQL, Source: "b", Tables: []schema.Table{{
		Name:    "prices",
		Columns: []schema.Column{{Name: "type", Type: "enum('base','hp','hc')", EnumValues: []string{"base", "hp", "hc"}}},
	}}}

	res, err := Reconcile(a, b)
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)

	e := res.Canonical.FindEntity("prices")
	require.NotNil(t, e)
	require.Len(t, e.Rules, 1)
	assert.Equal(t, []string{"base", "hc", "hp"}, e.Rules[0].Values)

	ks := kinds(res, "prices")
	require.Len(t, ks[KindMissingConstraint], 1)
	assert.Contains(t, ks[KindMissingConstraint][0].Detail, "intersection")
}

func TestReconcile_StricterRangeWins(t *testing.T) {
	a := &schema.Schema{Dialect: schema.DialectSQLite, Source: "a", Tables: []schema.Table{{
		Name:    "consignes",
		Columns: []schema.Column{{Name: "temperature", Type: "real"}},
		Checks:  []schema.Check{{Expr: "temperature >= 30 AND temperature <= 99"}},
	}}}
	b := &schema.Schema{Dialect: schema.DialectMySQL, Source: "b", Tables: []schema.Table{{
		Name:    "consignes",
		Columns: []schema.Column{{Name: "temperature", Type: "double"}},
		Checks:  []schema.Check{{Expr: "temperature >= 35 AND temperature <= 120"}},
	}}}

	res, err := Reconcile(a, b)
	require.NoError(t, err)

	e := res.Canonical.FindEntity("consignes")
	require.NotNil(t, e)
	require.Len(t, e.Rules, 1)
	r := e.Rules[0]
	assert.Equal(t, 35.0, *r.Min)
	assert.Equal(t, 99.0, *r.Max)
}

func TestReconcile_IncompatibleTypesConflict(t *testing.T) {
	a := &schema.Schema{Dialect: schema.DialectSQLite, Source: "a", Tables: []schema.Table{{
		Name:    "constraints",
		Columns: []schema.Column{{Name: "profil_conso", Type: "real"}},
	}}}
	b := &schema.Schema{Dialect: schema.DialectMySQL, Source: "b", Tables: []schema.Table{{
		Name:    "constraints",
		Columns: []schema.Column{{Name: "profil_conso", Type: "json"}},
	}}}

	res, err := Reconcile(a, b)
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Contains(t, res.Conflicts[0].Detail, "incompatible types")
}

func TestReconcile_TableOnlyInOneVariant(t *testing.T) {
	a, b := loadBoth(t)
	extra := schema.Table{
		Name:    "journal",
		Columns: []schema.Column{{Name: "id", Type: "integer"}, {Name: "note", Type: "text"}},
	}
	a.Tables = append(a.Tables, extra)

	res, err := Reconcile(a, b)
	require.NoError(t, err)

	e := res.Canonical.FindEntity("journal")
	require.NotNil(t, e)
	assert.Len(t, e.Fields, 2)
	assert.Equal(t, "global", e.Scope)
}
