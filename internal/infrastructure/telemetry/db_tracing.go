package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled          bool          // Enable database tracing
	LogFullSQL       bool          // Include full SQL in spans; never in production
	SlowQueryThresh  time.Duration // Queries over this threshold get flagged on the span
	DBSystem         string        // Database system name, normally "postgresql"
	WithoutVariables bool          // Strip bind variables from the recorded SQL
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin layers slow-query flagging and error marking on top of
// the otelgorm spans. Posting a large batch runs hundreds of statements
// inside one transaction; the per-query timing is what localizes a stall.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// gormOps enumerates the GORM callback groups timing hooks attach to.
var gormOps = []string{"create", "query", "update", "delete", "row", "raw"}

// registerOpCallbacks hooks before/after functions around one GORM callback
// group. gorm keeps its callback processor type unexported, so each group is
// addressed through its own inline chain.
func registerOpCallbacks(db *gorm.DB, op, beforeName string, before func(*gorm.DB), afterName string, after func(*gorm.DB)) error {
	switch op {
	case "create":
		if err := db.Callback().Create().Before("gorm:create").Register(beforeName, before); err != nil {
			return err
		}
		return db.Callback().Create().After("gorm:create").Register(afterName, after)
	case "query":
		if err := db.Callback().Query().Before("gorm:query").Register(beforeName, before); err != nil {
			return err
		}
		return db.Callback().Query().After("gorm:query").Register(afterName, after)
	case "update":
		if err := db.Callback().Update().Before("gorm:update").Register(beforeName, before); err != nil {
			return err
		}
		return db.Callback().Update().After("gorm:update").Register(afterName, after)
	case "delete":
		if err := db.Callback().Delete().Before("gorm:delete").Register(beforeName, before); err != nil {
			return err
		}
		return db.Callback().Delete().After("gorm:delete").Register(afterName, after)
	case "row":
		if err := db.Callback().Row().Before("gorm:row").Register(beforeName, before); err != nil {
			return err
		}
		return db.Callback().Row().After("gorm:row").Register(afterName, after)
	default:
		if err := db.Callback().Raw().Before("gorm:raw").Register(beforeName, before); err != nil {
			return err
		}
		return db.Callback().Raw().After("gorm:raw").Register(afterName, after)
	}
}

// RegisterOtelGorm installs the otelgorm plugin plus the timing callbacks
// on the GORM instance. A no-op when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		// Keep bind variables (grower numbers, amounts) out of span data
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	for _, op := range gormOps {
		if err := registerOpCallbacks(db, op,
			"otel_timing:before_"+op, stampQueryStart,
			"otel_slow_query:"+op, p.enrichSpan,
		); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

// stampQueryStart records the statement start time for the after callback.
func stampQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// enrichSpan runs after each statement: rows affected, table, errors and
// the slow-query flag all land on the active span.
func (p *DBTracingPlugin) enrichSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// ErrRecordNotFound is an ordinary lookup miss, not a failure
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		elapsed := time.Since(startTime)
		if elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

type contextKey string

// queryStartTimeKey is the context key holding the statement start time.
const queryStartTimeKey contextKey = "otel_query_start_time"

// WithQueryStartTime returns a context carrying the current time as the
// query start, for callers issuing raw statements outside the callbacks.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}
