package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config optimasol-schema 配置
type Config struct {
	// 两份 dump 来源：本地路径或 http(s) URL
	Dumps struct {
		Primary   string
		Secondary string
		// 方言覆盖："sqlite" / "mysql"，空串表示自动探测
		PrimaryDialect   string
		SecondaryDialect string
		FetchTimeout     time.Duration
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}
	Report struct {
		Dir     string
		Formats []string // "text", "json", "excel"
	}
	Log struct {
		Level  string
		Format string
	}
}

// DatabaseConfig 目标数据库配置（apply-canonical / verify-canonical 使用）
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func Load() *Config {
	cfg := &Config{}

	cfg.Dumps.Primary = getEnv("DUMP_PRIMARY", "sql/db_engine_sqlite.sql")
	cfg.Dumps.Secondary = getEnv("DUMP_SECONDARY", "sql/db_engine_mysql.sql")
	cfg.Dumps.PrimaryDialect = getEnv("DUMP_PRIMARY_DIALECT", "")
	cfg.Dumps.SecondaryDialect = getEnv("DUMP_SECONDARY_DIALECT", "")
	cfg.Dumps.FetchTimeout = time.Duration(parseInt(getEnv("DUMP_FETCH_TIMEOUT_SECONDS", "30"), 30)) * time.Second

	cfg.DBEnabled = getEnv("DB_ENABLED", "false") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "optimasol")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	// 默认关闭：无 Redis 时退回进程内缓存
	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.Redis.TTL = time.Duration(parseInt(getEnv("REDIS_TTL_MINUTES", "60"), 60)) * time.Minute

	cfg.Report.Dir = getEnv("REPORT_DIR", "reports")
	cfg.Report.Formats = splitList(getEnv("REPORT_FORMATS", "text"))

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
