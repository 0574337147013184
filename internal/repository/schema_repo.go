package repository

import (
	"context"

	"optimasol-schema/internal/fixtures"
	"optimasol-schema/internal/reconcile"
)

// Finding 物理库与规范模型的一处偏差
type Finding struct {
	Entity string
	Field  string
	Detail string
}

// SchemaRepository 规范模型的落库与核对
type SchemaRepository interface {
	// ApplyCanonical 按规范模型建表（已存在的表跳过）
	ApplyCanonical(ctx context.Context, c *reconcile.Canonical) error
	// SeedFixtures 写入初始数据（管理员客户端、默认价格、HP 时段）
	SeedFixtures(ctx context.Context, fx *fixtures.Fixtures) error
	// VerifyCanonical 用 information_schema 核对物理库与规范模型
	VerifyCanonical(ctx context.Context, c *reconcile.Canonical) ([]Finding, error)
}
