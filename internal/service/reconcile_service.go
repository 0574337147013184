package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"optimasol-schema/internal/fixtures"
	"optimasol-schema/internal/loader"
	"optimasol-schema/internal/reconcile"
	"optimasol-schema/internal/report"
	"optimasol-schema/internal/schema"
	"optimasol-schema/internal/store"
	"optimasol-schema/internal/validate"
)

// ReconcileService 全流程编排：装载两份 dump、调和、校验种子数据、出报告
type ReconcileService interface {
	Run(ctx context.Context, req RunRequest) (*report.Report, error)
}

// RunRequest 一次调和运行的输入
type RunRequest struct {
	PrimaryRef       string
	SecondaryRef     string
	PrimaryDialect   schema.Dialect // 空表示自动探测
	SecondaryDialect schema.Dialect
}

type reconcileService struct {
	loader *loader.Loader
	cache  store.KV
	ttl    time.Duration
	logger *zap.Logger
}

// NewReconcileService 创建 ReconcileService 实例
func NewReconcileService(l *loader.Loader, cache store.KV, ttl time.Duration, logger *zap.Logger) ReconcileService {
	return &reconcileService{loader: l, cache: cache, ttl: ttl, logger: logger}
}

func (s *reconcileService) Run(ctx context.Context, req RunRequest) (*report.Report, error) {
	a, err := s.loader.Load(req.PrimaryRef, req.PrimaryDialect)
	if err != nil {
		return nil, fmt.Errorf("failed to load primary dump: %w", err)
	}
	b, err := s.loader.Load(req.SecondaryRef, req.SecondaryDialect)
	if err != nil {
		return nil, fmt.Errorf("failed to load secondary dump: %w", err)
	}

	key, err := cacheKey(a, b)
	if err == nil {
		if cached, cerr := s.cache.Get(ctx, key); cerr == nil {
			var rep report.Report
			if json.Unmarshal([]byte(cached), &rep) == nil {
				s.logger.Info("report served from cache", zap.String("key", key))
				return &rep, nil
			}
		} else if cerr != store.ErrMiss {
			s.logger.Warn("cache lookup failed", zap.Error(cerr))
		}
	}

	res, err := reconcile.Reconcile(a, b)
	if err != nil {
		return nil, err
	}

	rep := report.New(res, []report.Source{
		{Dialect: string(a.Dialect), Path: a.Source, Tables: len(a.Tables)},
		{Dialect: string(b.Dialect), Path: b.Source, Tables: len(b.Tables)},
	})

	// 种子数据过约束校验器：内置基线和两份 dump 自带的 INSERT 各算一个库实例，
	// 唯一性只在同一实例内生效，不跨来源混查
	groups := []map[string][]validate.Row{
		fixtures.Default().Rows(),
		canonicalRows(a, res.Canonical),
		canonicalRows(b, res.Canonical),
	}
	for _, group := range groups {
		for table, rows := range group {
			entity := res.Canonical.FindEntity(table)
			if entity == nil {
				continue
			}
			errs := validate.Rows(entity, rows)
			validate.SortErrors(errs)
			rep.AddViolations(table, errs)
		}
	}

	if key != "" {
		if data, jerr := rep.JSON(); jerr == nil {
			if serr := s.cache.Set(ctx, key, string(data), s.ttl); serr != nil {
				s.logger.Warn("cache store failed", zap.Error(serr))
			}
		}
	}

	s.logger.Info("reconciliation complete",
		zap.String("run_id", rep.RunID),
		zap.Int("entities", len(rep.Canonical.Entities)),
		zap.Int("discrepancies", len(rep.Discrepancies)),
		zap.Int("conflicts", len(rep.Conflicts)),
		zap.Int("violations", len(rep.Violations)),
	)
	return rep, nil
}

// canonicalRows 把一个变体 dump 里的 INSERT 行换成规范字段名
// 变体专属列（映射不到规范字段的）原样保留，校验器只看它认识的字段
func canonicalRows(s *schema.Schema, c *reconcile.Canonical) map[string][]validate.Row {
	rename := map[string]map[string]string{} // table -> variant column -> canonical field
	for _, e := range c.Entities {
		for _, m := range e.Mappings {
			if m.Dialect != s.Dialect {
				continue
			}
			if rename[m.Table] == nil {
				rename[m.Table] = map[string]string{}
			}
			rename[m.Table][m.Column] = m.Field
		}
	}

	out := map[string][]validate.Row{}
	for _, row := range s.Rows {
		mapped := validate.Row{}
		for col, v := range row.Values {
			if canon, ok := rename[row.Table][col]; ok {
				mapped[canon] = v
			} else {
				mapped[col] = v
			}
		}
		out[row.Table] = append(out[row.Table], mapped)
	}
	return out
}

// cacheKey 两份已解析 schema 的内容摘要，与输入顺序无关
func cacheKey(a, b *schema.Schema) (string, error) {
	da, err := digest(a)
	if err != nil {
		return "", err
	}
	db, err := digest(b)
	if err != nil {
		return "", err
	}
	if db < da {
		da, db = db, da
	}
	return "optimasol:report:" + da[:16] + db[:16], nil
}

func digest(s *schema.Schema) (string, error) {
	// 摘要只看解析后的内容，同一份 dump 换个路径或 URL 拿到的键不变
	clone := *s
	clone.Source = ""
	data, err := json.Marshal(&clone)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
