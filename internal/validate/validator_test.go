package validate

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optimasol-schema/internal/dialect"
	"optimasol-schema/internal/reconcile"
	"optimasol-schema/internal/schema"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func constraintsEntity() *reconcile.Entity {
	return &reconcile.Entity{
		Name: "constraints",
		Fields: []reconcile.Field{
			{Name: "constraint_id", Type: "integer"},
			{Name: "temperature_minimale", Type: "real"},
			{Name: "puissance_maison", Type: "real"},
		},
		Rules: []schema.Rule{
			{Kind: schema.RuleRange, Column: "temperature_minimale", Min: floatPtr(0), MinExcl: true, Max: floatPtr(95), MaxExcl: true},
			{Kind: schema.RuleRange, Column: "puissance_maison", Min: floatPtr(0)},
		},
	}
}

func TestSingle_TemperatureBounds(t *testing.T) {
	e := constraintsEntity()

	// 上界是排他的：95 拒绝，94.999 接受
	errs := Single(e, Row{"temperature_minimale": 95.0})
	require.Len(t, errs, 1)
	var cv *ConstraintViolationError
	require.ErrorAs(t, errs[0], &cv)
	assert.Equal(t, "constraints", cv.Table)
	assert.Contains(t, cv.Rule, "temperature_minimale")

	assert.Empty(t, Single(e, Row{"temperature_minimale": 94.999}))
	assert.Empty(t, Single(e, Row{"temperature_minimale": 0.001}))

	// 下界同样排他
	assert.Len(t, Single(e, Row{"temperature_minimale": 0.0}), 1)
	assert.Len(t, Single(e, Row{"temperature_minimale": -3.0}), 1)
}

func TestSingle_InclusiveLowerBound(t *testing.T) {
	e := constraintsEntity()
	assert.Empty(t, Single(e, Row{"puissance_maison": 0.0}))
	assert.Len(t, Single(e, Row{"puissance_maison": -0.1}), 1)
}

func TestSingle_EnumMembership(t *testing.T) {
	e := &reconcile.Entity{
		Name:   "clients",
		Fields: []reconcile.Field{{Name: "mode", Type: "text"}},
		Rules: []schema.Rule{
			{Kind: schema.RuleEnum, Column: "mode", Values: []string{"AutoCons", "cost"}},
		},
	}

	assert.Empty(t, Single(e, Row{"mode": "AutoCons"}))
	assert.Empty(t, Single(e, Row{"mode": "cost"}))

	errs := Single(e, Row{"mode": "eco"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), `rejected value eco`)

	// 缺席和 NULL 不触发枚举检查
	assert.Empty(t, Single(e, Row{}))
	assert.Empty(t, Single(e, Row{"mode": nil}))
}

func TestSingle_NumericEnumAcceptsBothForms(t *testing.T) {
	e := &reconcile.Entity{
		Name:   "clients",
		Fields: []reconcile.Field{{Name: "gradation", Type: "integer"}},
		Rules: []schema.Rule{
			{Kind: schema.RuleEnum, Column: "gradation", Values: []string{"0", "1"}},
		},
	}
	assert.Empty(t, Single(e, Row{"gradation": 1}))
	assert.Empty(t, Single(e, Row{"gradation": 0.0}))
	assert.Len(t, Single(e, Row{"gradation": 2}), 1)
}

func TestSingle_TimeInterval(t *testing.T) {
	e := &reconcile.Entity{
		Name: "creneaux_hp",
		Fields: []reconcile.Field{
			{Name: "heure_debut", Type: "time"},
			{Name: "heure_fin", Type: "time"},
		},
		Rules: []schema.Rule{
			{Kind: schema.RuleInterval, Start: "heure_debut", End: "heure_fin"},
		},
	}

	assert.Empty(t, Single(e, Row{"heure_debut": "06:00:00", "heure_fin": "08:00:00"}))

	errs := Single(e, Row{"heure_debut": "08:00:00", "heure_fin": "06:00:00"})
	require.Len(t, errs, 1)

	// 零长度区间同样非法
	assert.Len(t, Single(e, Row{"heure_debut": "06:00:00", "heure_fin": "06:00:00"}), 1)
}

func TestSingle_NotNull(t *testing.T) {
	e := &reconcile.Entity{
		Name:   "water_heaters",
		Fields: []reconcile.Field{{Name: "volume", Type: "real", NotNull: true}},
	}
	errs := Single(e, Row{"volume": nil})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "NOT NULL")

	// 列整个缺席（变体没有该字段的行）不算 NULL
	assert.Empty(t, Single(e, Row{}))
}

func TestSingle_PrecisionDefect(t *testing.T) {
	e := &reconcile.Entity{
		Name: "constraints",
		Fields: []reconcile.Field{
			{Name: "temperature_minimale", Type: "real", Precision: intPtr(2), Scale: intPtr(2)},
		},
	}

	assert.Empty(t, Single(e, Row{"temperature_minimale": 0.5}))

	errs := Single(e, Row{"temperature_minimale": 10.0})
	require.Len(t, errs, 1)
	var pd *PrecisionDefectError
	require.ErrorAs(t, errs[0], &pd)
	assert.Equal(t, 2, pd.Precision)
	assert.Equal(t, 2, pd.Scale)
	assert.Equal(t, 10.0, pd.Value)
}

func TestRows_Uniqueness(t *testing.T) {
	e := &reconcile.Entity{
		Name: "consignes",
		Fields: []reconcile.Field{
			{Name: "client_id", Type: "integer"},
			{Name: "day", Type: "integer"},
			{Name: "moment", Type: "time"},
		},
		Rules: []schema.Rule{
			{Kind: schema.RuleUnique, Columns: []string{"client_id", "day", "moment"}},
		},
	}

	rows := []Row{
		{"client_id": 1, "day": 0, "moment": "matin"},
		{"client_id": 1, "day": 0, "moment": "soir"},
		{"client_id": 1, "day": 0, "moment": "matin"},
	}
	errs := Rows(e, rows)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "1, 0, matin")
}

func TestRows_AccumulatesAllFindings(t *testing.T) {
	e := constraintsEntity()
	rows := []Row{
		{"temperature_minimale": 95.0},
		{"temperature_minimale": 96.0, "puissance_maison": -1.0},
	}
	errs := Rows(e, rows)
	assert.Len(t, errs, 3)
}

func TestRows_DuplicatePriceKeyRejected(t *testing.T) {
	load := func(path string, d schema.Dialect) *schema.Schema {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		s, err := dialect.Parse(string(data), d, path)
		require.NoError(t, err)
		return s
	}
	a := load("../../sql/db_engine_sqlite.sql", schema.DialectSQLite)
	b := load("../../sql/db_engine_mysql.sql", schema.DialectMySQL)
	res, err := reconcile.Reconcile(a, b)
	require.NoError(t, err)

	e := res.Canonical.FindEntity("prices")
	require.NotNil(t, e)

	// 主键 (client_id, type) 来自两份 dump 的调和结果，重复键整批拒绝
	errs := Rows(e, []Row{
		{"client_id": 1.0, "type": "hp", "prix": 0.22},
		{"client_id": 1.0, "type": "hp", "prix": 0.25},
	})
	require.Len(t, errs, 1)
	var cv *ConstraintViolationError
	require.ErrorAs(t, errs[0], &cv)
	assert.Contains(t, cv.Rule, "UNIQUE (client_id, type)")

	// 不同客户同档电价不冲突
	errs = Rows(e, []Row{
		{"client_id": 1.0, "type": "hp", "prix": 0.22},
		{"client_id": 2.0, "type": "hp", "prix": 0.25},
	})
	assert.Empty(t, errs)
}

func TestSortErrors_Stable(t *testing.T) {
	e := constraintsEntity()
	errs := Rows(e, []Row{
		{"puissance_maison": -1.0},
		{"temperature_minimale": 95.0},
	})
	SortErrors(errs)
	require.Len(t, errs, 2)
	assert.LessOrEqual(t, errs[0].Error(), errs[1].Error())
}
