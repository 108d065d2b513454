package telemetry

import (
	"errors"
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
)

// GORMTracingPlugin returns a GORM plugin that opens a span per statement
func GORMTracingPlugin() gorm.Plugin {
	return &tracingPlugin{tracer: otel.Tracer("gorm")}
}

type tracingPlugin struct {
	tracer trace.Tracer
}

func (p *tracingPlugin) Name() string {
	return "telemetry:tracing"
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
		op     string
	}{
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "SELECT"},
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "INSERT"},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "UPDATE"},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "DELETE"},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, "RAW"},
	}

	for _, s := range steps {
		op := s.op
		if err := s.before("telemetry:before_"+s.name, func(db *gorm.DB) { p.startSpan(db, op) }); err != nil {
			return fmt.Errorf("failed to register before_%s callback: %w", s.name, err)
		}
		if err := s.after("telemetry:after_"+s.name, p.endSpan); err != nil {
			return fmt.Errorf("failed to register after_%s callback: %w", s.name, err)
		}
	}
	return nil
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
			attribute.String(dbSystemKey, db.Dialector.Name()),
			attribute.String(dbTableKey, table),
			attribute.String(dbOperationKey, operation),
		),
	)

	db.InstanceSet(spanKey, span)
	db.InstanceSet(startTimeKey, time.Now())
}

func (p *tracingPlugin) endSpan(db *gorm.DB) {
	raw, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := raw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if started, ok := db.InstanceGet(startTimeKey); ok {
		if t, ok := started.(time.Time); ok {
			span.SetAttributes(attribute.Int64("db.duration_ms", time.Since(t).Milliseconds()))
		}
	}

	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > 500 {
			sql = sql[:500] + "... (truncated)"
		}
		span.SetAttributes(attribute.String(dbStatementKey, sql))
	}
	if db.RowsAffected > 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	}

	// A missing row is an answer, not a failure
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
