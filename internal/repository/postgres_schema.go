package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"optimasol-schema/internal/fixtures"
	"optimasol-schema/internal/reconcile"
	"optimasol-schema/internal/schema"
)

// PostgresSchemaRepository 规范模型落到 Postgres 的实现
type PostgresSchemaRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresSchemaRepository 创建 SchemaRepository
func NewPostgresSchemaRepository(db *sql.DB, logger *zap.Logger) *PostgresSchemaRepository {
	return &PostgresSchemaRepository{db: db, logger: logger}
}

// 确保实现了接口
var _ SchemaRepository = (*PostgresSchemaRepository)(nil)

// ApplyCanonical 按规范模型建表
// 表按依赖顺序建（被引用的父表先建），每张表一条 CREATE TABLE IF NOT EXISTS
func (r *PostgresSchemaRepository) ApplyCanonical(ctx context.Context, c *reconcile.Canonical) error {
	for _, stmt := range RenderDDL(c) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply canonical schema: %w", err)
		}
	}
	r.logger.Info("canonical schema applied", zap.Int("entities", len(c.Entities)))
	return nil
}

// SeedFixtures 写入种子数据，冲突时不覆盖已有行
func (r *PostgresSchemaRepository) SeedFixtures(ctx context.Context, fx *fixtures.Fixtures) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO clients (client_id, gradation, mode) VALUES ($1, $2, $3)
		 ON CONFLICT (client_id) DO NOTHING`,
		fx.AdminClient.ClientID, fx.AdminClient.Features.Gradation, string(fx.AdminClient.Features.Mode))
	if err != nil {
		return fmt.Errorf("failed to seed admin client: %w", err)
	}

	priceRows := []struct {
		typ  string
		prix float64
	}{
		{"base", fx.Prices.Base},
		{"hp", fx.Prices.HP},
		{"hc", fx.Prices.HC},
		{"revente", fx.Prices.Revente},
	}
	for _, p := range priceRows {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO prices (client_id, type, prix) VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`,
			fx.Prices.ClientID, p.typ, p.prix)
		if err != nil {
			return fmt.Errorf("failed to seed price %s: %w", p.typ, err)
		}
	}

	for _, s := range fx.Prices.HPSlots {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO creneaux_hp (client_id, heure_debut, heure_fin) VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`,
			fx.Prices.ClientID, s.Start.String(), s.End.String())
		if err != nil {
			return fmt.Errorf("failed to seed hp slot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	r.logger.Info("fixtures seeded",
		zap.Int("prices", len(priceRows)),
		zap.Int("hp_slots", len(fx.Prices.HPSlots)))
	return nil
}

// VerifyCanonical 核对物理库：表是否存在、字段齐不齐、NOT NULL 是否落实、
// 级联外键是否带 ON DELETE CASCADE
func (r *PostgresSchemaRepository) VerifyCanonical(ctx context.Context, c *reconcile.Canonical) ([]Finding, error) {
	var findings []Finding

	for _, e := range c.Entities {
		var tableExists bool
		err := r.db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)`, e.Name).Scan(&tableExists)
		if err != nil {
			return nil, fmt.Errorf("failed to check table %s: %w", e.Name, err)
		}
		if !tableExists {
			findings = append(findings, Finding{Entity: e.Name, Detail: "table does not exist"})
			continue
		}

		cols, err := r.tableColumns(ctx, e.Name)
		if err != nil {
			return nil, err
		}
		for _, f := range e.Fields {
			got, ok := cols[f.Name]
			if !ok {
				findings = append(findings, Finding{Entity: e.Name, Field: f.Name, Detail: "column missing"})
				continue
			}
			if f.NotNull && got.nullable {
				findings = append(findings, Finding{Entity: e.Name, Field: f.Name, Detail: "column is nullable, expected NOT NULL"})
			}
		}

		if owner := ownerColumn(&e); owner != "" {
			cascade, found, err := r.cascadeRule(ctx, e.Name, owner)
			if err != nil {
				return nil, err
			}
			if !found {
				findings = append(findings, Finding{Entity: e.Name, Field: owner, Detail: "foreign key missing"})
			} else if !cascade {
				findings = append(findings, Finding{Entity: e.Name, Field: owner, Detail: "foreign key lacks ON DELETE CASCADE"})
			}
		}
	}
	return findings, nil
}

type columnInfo struct {
	dataType string
	nullable bool
}

func (r *PostgresSchemaRepository) tableColumns(ctx context.Context, table string) (map[string]columnInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]columnInfo)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, err
		}
		cols[name] = columnInfo{dataType: dataType, nullable: nullable == "YES"}
	}
	return cols, rows.Err()
}

func (r *PostgresSchemaRepository) cascadeRule(ctx context.Context, table, column string) (cascade bool, found bool, err error) {
	var rule string
	err = r.db.QueryRowContext(ctx, `
		SELECT rc.delete_rule
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = rc.constraint_name
		 AND kcu.constraint_schema = rc.constraint_schema
		WHERE kcu.table_name = $1 AND kcu.column_name = $2`, table, column).Scan(&rule)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to check foreign key on %s.%s: %w", table, column, err)
	}
	return rule == "CASCADE", true, nil
}

// RenderDDL 把规范模型翻成 Postgres CREATE TABLE 语句
// 父表（无 owner 引用的）排在前面，保证外键可解析
func RenderDDL(c *reconcile.Canonical) []string {
	entities := make([]reconcile.Entity, len(c.Entities))
	copy(entities, c.Entities)
	sort.SliceStable(entities, func(i, j int) bool {
		oi, oj := ownerColumn(&entities[i]) != "", ownerColumn(&entities[j]) != ""
		if oi != oj {
			return !oi
		}
		return entities[i].Name < entities[j].Name
	})

	var stmts []string
	for i := range entities {
		stmts = append(stmts, renderCreateTable(&entities[i]))
	}
	return stmts
}

func renderCreateTable(e *reconcile.Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", e.Name)

	var lines []string
	for _, f := range e.Fields {
		lines = append(lines, "    "+renderColumn(e, &f))
	}
	if len(e.PrimaryKey) > 1 {
		lines = append(lines, "    PRIMARY KEY ("+strings.Join(e.PrimaryKey, ", ")+")")
	}
	for _, rule := range e.Rules {
		// 主键派生的唯一规则已经由 PRIMARY KEY 落实
		if rule.Kind == schema.RuleUnique && sameColumns(rule.Columns, e.PrimaryKey) {
			continue
		}
		switch rule.Kind {
		case schema.RuleEnum:
			var vals []string
			for _, v := range rule.Values {
				if _, err := strconv.ParseFloat(v, 64); err == nil {
					vals = append(vals, v)
				} else {
					vals = append(vals, "'"+strings.ReplaceAll(v, "'", "''")+"'")
				}
			}
			lines = append(lines, fmt.Sprintf("    CHECK (%s IN (%s))", rule.Column, strings.Join(vals, ", ")))
		case schema.RuleRange, schema.RuleInterval:
			lines = append(lines, "    CHECK ("+rule.String()+")")
		case schema.RuleUnique:
			lines = append(lines, "    UNIQUE ("+strings.Join(rule.Columns, ", ")+")")
		}
	}
	if owner := ownerColumn(e); owner != "" {
		parent := strings.TrimSuffix(owner, "_id") + "s"
		lines = append(lines, fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE CASCADE", owner, parent, owner))
	}

	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")
	return b.String()
}

func renderColumn(e *reconcile.Entity, f *reconcile.Field) string {
	parts := []string{f.Name, pgType(f)}
	if isPrimaryKey(e, f) {
		parts = append(parts, "PRIMARY KEY")
	}
	if f.NotNull && !isPrimaryKey(e, f) {
		parts = append(parts, "NOT NULL")
	}
	if f.Default != nil {
		parts = append(parts, "DEFAULT "+renderDefault(*f.Default))
	}
	return strings.Join(parts, " ")
}

// isPrimaryKey 单列主键直接内联在列定义上，组合主键走表级约束
func isPrimaryKey(e *reconcile.Entity, f *reconcile.Field) bool {
	return len(e.PrimaryKey) == 1 && strings.EqualFold(e.PrimaryKey[0], f.Name)
}

func sameColumns(a, b []string) bool {
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

// ownerColumn 实体指向所属客户/约束的外键列，没有则返回空串
func ownerColumn(e *reconcile.Entity) string {
	for _, ref := range []string{"client_id", "constraint_id"} {
		if e.Name == strings.TrimSuffix(ref, "_id")+"s" {
			continue
		}
		if e.FindField(ref) != nil {
			return ref
		}
	}
	return ""
}

func pgType(f *reconcile.Field) string {
	switch f.Type {
	case "integer":
		return "integer"
	case "real":
		if f.Precision != nil && f.Scale != nil {
			return fmt.Sprintf("numeric(%d,%d)", *f.Precision, *f.Scale)
		}
		return "double precision"
	case "time":
		return "time"
	case "timestamp":
		return "timestamp"
	case "json":
		return "jsonb"
	default:
		return "text"
	}
}

func renderDefault(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return "''"
	}
	upper := strings.ToUpper(trimmed)
	if upper == "NULL" || upper == "CURRENT_TIMESTAMP" {
		return upper
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return trimmed
	}
	return "'" + strings.ReplaceAll(strings.Trim(trimmed, "'"), "'", "''") + "'"
}
