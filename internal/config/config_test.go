package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "sql/db_engine_sqlite.sql", cfg.Dumps.Primary)
	assert.Equal(t, "sql/db_engine_mysql.sql", cfg.Dumps.Secondary)
	assert.Empty(t, cfg.Dumps.PrimaryDialect)
	assert.Equal(t, 30*time.Second, cfg.Dumps.FetchTimeout)

	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)

	assert.Equal(t, []string{"text"}, cfg.Report.Formats)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DUMP_PRIMARY", "http://dumps.internal/sqlite.sql")
	t.Setenv("DUMP_PRIMARY_DIALECT", "sqlite")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REPORT_FORMATS", "text, json ,excel")

	cfg := Load()
	assert.Equal(t, "http://dumps.internal/sqlite.sql", cfg.Dumps.Primary)
	assert.Equal(t, "sqlite", cfg.Dumps.PrimaryDialect)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"text", "json", "excel"}, cfg.Report.Formats)
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "optimasol", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=optimasol sslmode=disable", c.GetDSN())
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")
	cfg := Load()
	assert.Equal(t, 5432, cfg.Database.Port)
}
