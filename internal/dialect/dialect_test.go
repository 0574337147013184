package dialect

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optimasol-schema/internal/schema"
)

func loadDump(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestDetectDialect(t *testing.T) {
	d, err := DetectDialect(loadDump(t, "../../sql/db_engine_sqlite.sql"))
	require.NoError(t, err)
	assert.Equal(t, schema.DialectSQLite, d)

	d, err = DetectDialect(loadDump(t, "../../sql/db_engine_mysql.sql"))
	require.NoError(t, err)
	assert.Equal(t, schema.DialectMySQL, d)

	_, err = DetectDialect("SELECT 1;")
	assert.Error(t, err)
}

func TestParse_SQLiteExport(t *testing.T) {
	s, err := Parse(loadDump(t, "../../sql/db_engine_sqlite.sql"), schema.DialectSQLite, "sqlite.sql")
	require.NoError(t, err)

	assert.Len(t, s.Tables, 7)

	clients := s.FindTable("clients")
	require.NotNil(t, clients)
	assert.Equal(t, []string{"client_id", "gradation", "mode", "created_at"}, clients.ColumnNames())
	assert.True(t, clients.FindColumn("client_id").AutoIncrement)
	require.Len(t, clients.Checks, 2)

	constraints := s.FindTable("constraints")
	require.NotNil(t, constraints)
	require.Len(t, constraints.ForeignKeys, 1)
	fk := constraints.ForeignKeys[0]
	assert.Equal(t, []string{"client_id"}, fk.Columns)
	assert.Equal(t, "clients", fk.RefTable)
	assert.True(t, fk.OnDeleteCascade)

	consignes := s.FindTable("consignes")
	require.NotNil(t, consignes)
	assert.Equal(t, [][]string{{"client_id", "day", "moment"}}, consignes.Uniques)

	prices := s.FindTable("prices")
	require.NotNil(t, prices)
	assert.Equal(t, []string{"client_id", "type"}, prices.PrimaryKey)
}

func TestParse_SQLiteSeedRows(t *testing.T) {
	s, err := Parse(loadDump(t, "../../sql/db_engine_sqlite.sql"), schema.DialectSQLite, "sqlite.sql")
	require.NoError(t, err)

	var priceRows []schema.Row
	for _, r := range s.Rows {
		if r.Table == "prices" {
			priceRows = append(priceRows, r)
		}
	}
	require.Len(t, priceRows, 4)
	assert.Equal(t, "base", priceRows[0].Values["type"])
	assert.Equal(t, 0.18, priceRows[0].Values["prix"])
}

func TestParse_MySQLDump(t *testing.T) {
	s, err := Parse(loadDump(t, "../../sql/db_engine_mysql.sql"), schema.DialectMySQL, "mysql.sql")
	require.NoError(t, err)

	assert.Len(t, s.Tables, 7)

	clients := s.FindTable("clients")
	require.NotNil(t, clients)
	assert.True(t, clients.HasColumn("nom"))
	assert.True(t, clients.HasColumn("router_id"))

	mode := clients.FindColumn("mode")
	require.NotNil(t, mode)
	assert.Equal(t, []string{"AutoCons", "cost"}, mode.EnumValues)

	constraints := s.FindTable("constraints")
	require.NotNil(t, constraints)
	temp := constraints.FindColumn("temperature_minimale")
	require.NotNil(t, temp)
	require.NotNil(t, temp.Precision)
	assert.Equal(t, 2, *temp.Precision)
	assert.Equal(t, 2, *temp.Scale)

	// MySQL 侧的外键没有 ON DELETE CASCADE
	require.Len(t, constraints.ForeignKeys, 1)
	assert.False(t, constraints.ForeignKeys[0].OnDeleteCascade)

	// creneaux_hp 在 MySQL 侧是全局表，没有 client_id
	creneaux := s.FindTable("creneaux_hp")
	require.NotNil(t, creneaux)
	assert.False(t, creneaux.HasColumn("client_id"))
}

func TestParse_MySQLMultiRowInsert(t *testing.T) {
	s, err := Parse(loadDump(t, "../../sql/db_engine_mysql.sql"), schema.DialectMySQL, "mysql.sql")
	require.NoError(t, err)

	var hpRows []schema.Row
	for _, r := range s.Rows {
		if r.Table == "creneaux_hp" {
			hpRows = append(hpRows, r)
		}
	}
	require.Len(t, hpRows, 2)
	assert.Equal(t, "06:00:00", hpRows[0].Values["heure_debut"])
	assert.Equal(t, "19:00:00", hpRows[1].Values["heure_fin"])
}

func TestParse_NoTablesFails(t *testing.T) {
	_, err := Parse("-- empty dump\n", schema.DialectSQLite, "empty.sql")
	assert.Error(t, err)
}

func TestParse_InlineCheckAndDefault(t *testing.T) {
	ddl := `CREATE TABLE gauges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		level REAL DEFAULT 1.5 CHECK (level >= 0),
		label TEXT NOT NULL DEFAULT 'none'
	);`
	s, err := Parse(ddl, schema.DialectSQLite, "inline.sql")
	require.NoError(t, err)

	g := s.FindTable("gauges")
	require.NotNil(t, g)
	level := g.FindColumn("level")
	require.NotNil(t, level)
	require.NotNil(t, level.Default)
	assert.Equal(t, "1.5", *level.Default)
	require.Len(t, g.Checks, 1)

	label := g.FindColumn("label")
	require.NotNil(t, label)
	assert.True(t, label.NotNull)
	assert.Equal(t, "none", *label.Default)
}
