package loader

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"optimasol-schema/internal/dialect"
	"optimasol-schema/internal/schema"
)

// Loader 获取并解析 schema dump
// dump 由外部供应系统产出：本地文件，或供应服务器上的 HTTP 端点
type Loader struct {
	http   *resty.Client
	logger *zap.Logger
}

// New 创建 Loader，HTTP 端带超时与重试
func New(logger *zap.Logger, timeout time.Duration) *Loader {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/sql, text/plain")
	return &Loader{http: client, logger: logger}
}

// Load 读取 ref 指向的 dump 并解析
// override 非空时跳过方言探测
func (l *Loader) Load(ref string, override schema.Dialect) (*schema.Schema, error) {
	content, err := l.fetch(ref)
	if err != nil {
		return nil, err
	}

	d := override
	if d == "" {
		d, err = dialect.DetectDialect(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
	}

	s, err := dialect.Parse(content, d, ref)
	if err != nil {
		return nil, err
	}
	l.logger.Info("dump loaded",
		zap.String("source", ref),
		zap.String("dialect", string(d)),
		zap.Int("tables", len(s.Tables)),
		zap.Int("seed_rows", len(s.Rows)),
	)
	return s, nil
}

func (l *Loader) fetch(ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		resp, err := l.http.R().Get(ref)
		if err != nil {
			return "", fmt.Errorf("failed to fetch dump from %s: %w", ref, err)
		}
		if resp.StatusCode() != 200 {
			return "", fmt.Errorf("failed to fetch dump from %s: status %d", ref, resp.StatusCode())
		}
		return string(resp.Body()), nil
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("failed to read dump file: %w", err)
	}
	return string(data), nil
}
