// Package audit recomputes denormalized counters from the relationship
// tables and reports or repairs rows that drifted.
package audit

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/zfogg/circle/internal/logger"
	"github.com/zfogg/circle/internal/metrics"
	"github.com/zfogg/circle/internal/models"
	"github.com/zfogg/circle/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Drift is one counter whose stored value disagrees with its source rows
type Drift struct {
	Table    string `json:"table" gorm:"-"`
	ID       string `json:"id" gorm:"column:id"`
	Column   string `json:"column" gorm:"-"`
	Stored   int64  `json:"stored" gorm:"column:stored"`
	Expected int64  `json:"expected" gorm:"column:expected"`
}

func (d Drift) String() string {
	return d.Table + "." + d.Column + "[" + d.ID + "] " +
		strconv.FormatInt(d.Stored, 10) + " -> " + strconv.FormatInt(d.Expected, 10)
}

// check recomputes one counter column. source is a correlated COUNT over
// the relationship table, with the owning row aliased as t.
type check struct {
	table  string
	column string
	source string
	args   []any
}

var checks = []check{
	{table: "users", column: "followers_count", source: "SELECT COUNT(*) FROM follows f WHERE f.following_id = t.id"},
	{table: "users", column: "following_count", source: "SELECT COUNT(*) FROM follows f WHERE f.follower_id = t.id"},
	{table: "users", column: "posts_count", source: "SELECT COUNT(*) FROM posts p WHERE p.author_id = t.id"},
	{table: "posts", column: "likes_count", source: "SELECT COUNT(*) FROM likes l WHERE l.target_type = ? AND l.target_id = t.id", args: []any{models.TargetPost}},
	{table: "posts", column: "bookmarks_count", source: "SELECT COUNT(*) FROM bookmarks b WHERE b.post_id = t.id"},
	{table: "posts", column: "shares_count", source: "SELECT COUNT(*) FROM shares s WHERE s.post_id = t.id"},
	{table: "posts", column: "comments_count", source: "SELECT COUNT(*) FROM comments c WHERE c.post_id = t.id AND c.parent_id IS NULL"},
	{table: "comments", column: "likes_count", source: "SELECT COUNT(*) FROM likes l WHERE l.target_type = ? AND l.target_id = t.id", args: []any{models.TargetComment}},
}

// query selects id, stored and expected values from the owning table. where
// filters on the alias t and may add args after the source's own.
func (c check) query(where string) string {
	return fmt.Sprintf(
		"SELECT t.id AS id, t.%[1]s AS stored, (%[2]s) AS expected FROM %[3]s t WHERE %[4]s",
		c.column, c.source, c.table, where,
	)
}

func (c check) label(d *Drift) {
	d.Table = c.table
	d.Column = c.column
}

func (c check) find(tx *gorm.DB) ([]Drift, error) {
	where := fmt.Sprintf("t.%s <> (%s)", c.column, c.source)
	args := append(append([]any{}, c.args...), c.args...)

	var rows []Drift
	if err := tx.Raw(c.query(where), args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("audit %s.%s: %w", c.table, c.column, err)
	}
	for i := range rows {
		c.label(&rows[i])
	}
	return rows, nil
}

// recount locks the owning row and recomputes its counter. Toggles lock the
// same row before moving a counter, so the value read here cannot go stale
// before it is written. ok is false when the row is gone.
func (c check) recount(tx *gorm.DB, id string) (d Drift, ok bool, err error) {
	var locked []string
	err = tx.Table(c.table).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Pluck("id", &locked).Error
	if err != nil {
		return Drift{}, false, fmt.Errorf("lock %s %s: %w", c.table, id, err)
	}
	if len(locked) == 0 {
		return Drift{}, false, nil
	}

	args := append(append([]any{}, c.args...), id)
	if err := tx.Raw(c.query("t.id = ?"), args...).Scan(&d).Error; err != nil {
		return Drift{}, false, fmt.Errorf("recount %s.%s[%s]: %w", c.table, c.column, id, err)
	}
	c.label(&d)
	return d, true, nil
}

// Auditor verifies and repairs counters
type Auditor struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	events  *telemetry.BusinessEvents

	// beforeRepair runs between finding a drifted counter and locking its
	// row. Tests use it to land a toggle in that gap.
	beforeRepair func(d Drift)
}

// NewAuditor creates an auditor. A nil m uses the global metrics.
func NewAuditor(db *gorm.DB, m *metrics.Metrics) *Auditor {
	if m == nil {
		m = metrics.Get()
	}
	return &Auditor{db: db, metrics: m, events: telemetry.GetBusinessEvents()}
}

// Verify recomputes every counter and returns the rows that drifted,
// ordered by table, column and id. Nothing is written.
func (a *Auditor) Verify(ctx context.Context) ([]Drift, error) {
	ctx, span := a.events.TraceAudit(ctx, false)
	defer span.End()

	results, err := a.scan(ctx)
	if err != nil {
		a.metrics.CounterAuditRuns.WithLabelValues("verify", "error").Inc()
		telemetry.RecordError(span, err)
		return nil, err
	}

	drift := a.collect(results)
	a.metrics.CounterAuditRuns.WithLabelValues("verify", status(drift)).Inc()
	if len(drift) > 0 {
		logger.Log.Warn("Counter drift detected", zap.Int("rows", len(drift)))
	}
	return drift, nil
}

// scan runs every check concurrently without taking locks
func (a *Auditor) scan(ctx context.Context) ([][]Drift, error) {
	results := make([][]Drift, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		g.Go(func() error {
			rows, err := c.find(a.db.WithContext(gctx))
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Repair rewrites every drifted counter to its recomputed value and returns
// what it changed. Each counter is recounted and written in its own short
// transaction while its owning row is locked, so repairs can run against
// live traffic without overwriting a concurrent toggle.
func (a *Auditor) Repair(ctx context.Context) ([]Drift, error) {
	ctx, span := a.events.TraceAudit(ctx, true)
	defer span.End()

	found, err := a.scan(ctx)
	if err != nil {
		a.metrics.CounterAuditRuns.WithLabelValues("repair", "error").Inc()
		telemetry.RecordError(span, err)
		return nil, err
	}

	results := make([][]Drift, len(checks))
	for i, c := range checks {
		for _, candidate := range found[i] {
			if a.beforeRepair != nil {
				a.beforeRepair(candidate)
			}
			d, changed, err := a.repairOne(ctx, c, candidate.ID)
			if err != nil {
				a.metrics.CounterAuditRuns.WithLabelValues("repair", "error").Inc()
				telemetry.RecordError(span, err)
				return nil, err
			}
			if changed {
				results[i] = append(results[i], d)
			}
		}
	}

	repaired := flatten(results)
	for _, d := range repaired {
		a.metrics.CounterRepairsTotal.WithLabelValues(d.Table, d.Column).Inc()
		logger.Log.Info("Counter repaired",
			zap.String("table", d.Table),
			zap.String("column", d.Column),
			zap.String("id", d.ID),
			zap.Int64("stored", d.Stored),
			zap.Int64("expected", d.Expected),
		)
	}
	for _, c := range checks {
		a.metrics.CounterDrift.WithLabelValues(c.table, c.column).Set(0)
	}
	a.metrics.CounterAuditRuns.WithLabelValues("repair", status(repaired)).Inc()
	return repaired, nil
}

func (a *Auditor) repairOne(ctx context.Context, c check, id string) (d Drift, changed bool, err error) {
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found bool
		d, found, err = c.recount(tx, id)
		if err != nil || !found || d.Stored == d.Expected {
			return err
		}
		if err := tx.Table(c.table).Where("id = ?", id).UpdateColumn(c.column, d.Expected).Error; err != nil {
			return fmt.Errorf("repair %s: %w", d, err)
		}
		changed = true
		return nil
	})
	return d, changed, err
}

// collect publishes per-column drift gauges and flattens the results
func (a *Auditor) collect(results [][]Drift) []Drift {
	for i, c := range checks {
		a.metrics.CounterDrift.WithLabelValues(c.table, c.column).Set(float64(len(results[i])))
	}
	return flatten(results)
}

func flatten(results [][]Drift) []Drift {
	out := []Drift{}
	for _, rows := range results {
		out = append(out, rows...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		if out[i].Column != out[j].Column {
			return out[i].Column < out[j].Column
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func status(drift []Drift) string {
	if len(drift) > 0 {
		return "drift"
	}
	return "ok"
}
