package dialect

import (
	"fmt"
	"strings"

	"optimasol-schema/internal/schema"
)

// Parse 把一个 SQL dump 解析成中立的 schema 描述
// 只认 CREATE TABLE / CREATE INDEX / INSERT / PRAGMA，其余语句忽略
// 方言差异（反引号、AUTO_INCREMENT、enum 列型、ENGINE 子句）在这里吸收，
// 不允许泄漏到上层的规范模型里
func Parse(content string, d schema.Dialect, source string) (*schema.Schema, error) {
	s := &schema.Schema{Dialect: d, Source: source}

	for _, stmt := range splitStatements(content) {
		upper := strings.ToUpper(stmt)
		switch {
		case strings.HasPrefix(upper, "CREATE TABLE"):
			t, err := parseCreateTable(stmt, d)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", source, err)
			}
			s.Tables = append(s.Tables, *t)
		case strings.HasPrefix(upper, "INSERT "):
			rows, err := parseInsert(stmt, s)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", source, err)
			}
			s.Rows = append(s.Rows, rows...)
		}
	}
	if len(s.Tables) == 0 {
		return nil, fmt.Errorf("%s: no CREATE TABLE statement found", source)
	}
	return s, nil
}

// DetectDialect 从 dump 内容猜方言
// SQLite 导出带 PRAGMA / AUTOINCREMENT，MySQL dump 带 ENGINE= / 反引号标识符
func DetectDialect(content string) (schema.Dialect, error) {
	upper := strings.ToUpper(content)
	switch {
	case strings.Contains(upper, "PRAGMA ") || strings.Contains(upper, "AUTOINCREMENT"):
		return schema.DialectSQLite, nil
	case strings.Contains(upper, "ENGINE=") || strings.Contains(content, "`"):
		return schema.DialectMySQL, nil
	}
	return "", fmt.Errorf("cannot detect dump dialect, set it explicitly")
}
