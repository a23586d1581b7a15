package telemetry

import (
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	dbSystemKey    = "db.system"
	dbTableKey     = "db.table"
	dbOperationKey = "db.operation"
	dbStatementKey = "db.statement"

	spanKey      = "otel:span"
	startTimeKey = "otel:startTime"

	maxStatementLen = 500
)

// GORMTracingPlugin returns a GORM plugin that traces database operations
func GORMTracingPlugin() gorm.Plugin {
	return &tracingPlugin{
		tracer: otel.Tracer("gorm"),
	}
}

type tracingPlugin struct {
	tracer trace.Tracer
	system string
}

func (p *tracingPlugin) Name() string {
	return "telemetry:tracing"
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	p.system = dbSystem(db.Dialector.Name())

	cb := db.Callback()
	hooks := []struct {
		name      string
		before    func(string, func(*gorm.DB)) error
		after     func(string, func(*gorm.DB)) error
		operation string
	}{
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "SELECT"},
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "INSERT"},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "UPDATE"},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "DELETE"},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, "SELECT"},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, "RAW"},
	}

	for _, h := range hooks {
		op := h.operation
		if err := h.before("telemetry:before_"+h.name, func(db *gorm.DB) { p.startSpan(db, op) }); err != nil {
			return fmt.Errorf("failed to register before_%s callback: %w", h.name, err)
		}
		if err := h.after("telemetry:after_"+h.name, p.endSpan); err != nil {
			return fmt.Errorf("failed to register after_%s callback: %w", h.name, err)
		}
	}

	return nil
}

// dbSystem maps a gorm dialector name to the OpenTelemetry db.system value
func dbSystem(dialect string) string {
	switch dialect {
	case "postgres":
		return "postgresql"
	case "sqlite":
		return "sqlite"
	default:
		return dialect
	}
}

func (p *tracingPlugin) startSpan(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}

	_, span := p.tracer.Start(ctx, "db."+strings.ToLower(operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(dbSystemKey, p.system),
			attribute.String(dbTableKey, table),
			attribute.String(dbOperationKey, operation),
		),
	)

	db.InstanceSet(spanKey, span)
	db.InstanceSet(startTimeKey, time.Now())
}

func (p *tracingPlugin) endSpan(db *gorm.DB) {
	spanRaw, exists := db.InstanceGet(spanKey)
	if !exists {
		return
	}

	span, ok := spanRaw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if startTimeRaw, exists := db.InstanceGet(startTimeKey); exists {
		if startTime, ok := startTimeRaw.(time.Time); ok {
			span.SetAttributes(attribute.Int64("db.duration_ms", time.Since(startTime).Milliseconds()))
		}
	}

	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > maxStatementLen {
			sql = sql[:maxStatementLen] + "... (truncated)"
		}
		span.SetAttributes(attribute.String(dbStatementKey, sql))
	}

	if db.RowsAffected > 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	}

	// Not-found is an expected outcome for existence checks
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
