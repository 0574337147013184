package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"optimasol-schema/internal/reconcile"
)

// Source 参与调和的一个 schema 来源
type Source struct {
	Dialect string `json:"dialect"`
	Path    string `json:"path"`
	Tables  int    `json:"tables"`
}

// Report 一次调和+校验运行的完整报告
// 发现按严重度分三层：冲突 > 行级违规 > 结构差异
type Report struct {
	RunID         string                          `json:"run_id"`
	GeneratedAt   time.Time                       `json:"generated_at"`
	Sources       []Source                        `json:"sources"`
	Canonical     *reconcile.Canonical            `json:"canonical"`
	Discrepancies []reconcile.Discrepancy         `json:"discrepancies,omitempty"`
	Conflicts     []reconcile.SchemaConflictError `json:"conflicts,omitempty"`
	Violations    []Violation                     `json:"violations,omitempty"`
}

// Violation 行级校验发现（已渲染成可读文本）
type Violation struct {
	Table  string `json:"table"`
	Detail string `json:"detail"`
}

// New 从调和结果组装报告
func New(res *reconcile.Result, sources []Source) *Report {
	return &Report{
		RunID:         uuid.NewString(),
		GeneratedAt:   time.Now().UTC(),
		Sources:       sources,
		Canonical:     res.Canonical,
		Discrepancies: res.Discrepancies,
		Conflicts:     res.Conflicts,
	}
}

// AddViolations 追加某张表的行级发现
func (r *Report) AddViolations(table string, errs []error) {
	for _, err := range errs {
		r.Violations = append(r.Violations, Violation{Table: table, Detail: err.Error()})
	}
}

// HasFindings 是否存在冲突或行级违规（结构差异不算失败）
func (r *Report) HasFindings() bool {
	return len(r.Conflicts) > 0 || len(r.Violations) > 0
}

// JSON 结构化输出
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// RenderText 终端友好的文本输出，每条发现一行
func (r *Report) RenderText() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Schema reconciliation report %s (%s)\n", r.RunID, r.GeneratedAt.Format(time.RFC3339))
	for _, s := range r.Sources {
		fmt.Fprintf(&b, "  source: %-8s %s (%d tables)\n", s.Dialect, s.Path, s.Tables)
	}

	fmt.Fprintf(&b, "\n=== Canonical entities (%d) ===\n", len(r.Canonical.Entities))
	for _, e := range r.Canonical.Entities {
		fields := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			fields = append(fields, f.Name)
		}
		fmt.Fprintf(&b, "  %-18s %-14s %s\n", e.Name, e.Scope, strings.Join(fields, ", "))
	}

	fmt.Fprintf(&b, "\n=== Discrepancies (%d) ===\n", len(r.Discrepancies))
	if len(r.Discrepancies) > 0 {
		fmt.Fprintf(&b, "%-18s | %-22s | %-18s | %s\n", "Table", "Field", "Kind", "Detail")
		fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 90))
		for _, d := range r.Discrepancies {
			fmt.Fprintf(&b, "%-18s | %-22s | %-18s | %s\n", d.Table, d.Field, d.Kind, d.Detail)
		}
	}

	fmt.Fprintf(&b, "\n=== Conflicts (%d) ===\n", len(r.Conflicts))
	for _, c := range r.Conflicts {
		fmt.Fprintf(&b, "  %s.%s: %s\n", c.Table, c.Field, c.Detail)
	}

	fmt.Fprintf(&b, "\n=== Row violations (%d) ===\n", len(r.Violations))
	for _, v := range r.Violations {
		fmt.Fprintf(&b, "  %-18s %s\n", v.Table, v.Detail)
	}

	fmt.Fprintf(&b, "\n=== Summary ===\n")
	fmt.Fprintf(&b, "Entities: %d, discrepancies: %d, conflicts: %d, violations: %d\n",
		len(r.Canonical.Entities), len(r.Discrepancies), len(r.Conflicts), len(r.Violations))
	return b.String()
}
