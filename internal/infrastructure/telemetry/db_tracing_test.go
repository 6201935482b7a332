package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newTracedDB creates a GORM instance backed by sqlmock, the same shape
// the repositories run against.
func newTracedDB(t *testing.T) *gorm.DB {
	t.Helper()

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return db
}

// newSpanRecorder creates a tracer provider that captures ended spans.
func newSpanRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
	assert.True(t, cfg.WithoutVariables)
}

func TestDBTracingConfig_SecurityDefaults(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.LogFullSQL, "full SQL must stay out of spans unless opted in")
	assert.True(t, cfg.WithoutVariables, "bind variables must stay out of spans unless opted in")
}

func TestNewDBTracingPlugin(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true

	plugin := NewDBTracingPlugin(cfg, zap.NewNop())

	assert.NotNil(t, plugin)
	assert.Equal(t, cfg, plugin.config)
}

func TestRegisterOtelGorm_Disabled(t *testing.T) {
	db := newTracedDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = false

	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	assert.NoError(t, plugin.RegisterOtelGorm(db))
}

func TestRegisterOtelGorm_Enabled(t *testing.T) {
	db := newTracedDB(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:          true,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}, zap.NewNop())

	assert.NoError(t, plugin.RegisterOtelGorm(db))
}

func TestRegisterOtelGorm_HooksEveryOperationGroup(t *testing.T) {
	db := newTracedDB(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	assert.NotNil(t, db.Callback().Create().Get("otel_timing:before_create"))
	assert.NotNil(t, db.Callback().Create().Get("otel_slow_query:create"))
	assert.NotNil(t, db.Callback().Query().Get("otel_timing:before_query"))
	assert.NotNil(t, db.Callback().Query().Get("otel_slow_query:query"))
	assert.NotNil(t, db.Callback().Update().Get("otel_timing:before_update"))
	assert.NotNil(t, db.Callback().Update().Get("otel_slow_query:update"))
	assert.NotNil(t, db.Callback().Delete().Get("otel_timing:before_delete"))
	assert.NotNil(t, db.Callback().Delete().Get("otel_slow_query:delete"))
	assert.NotNil(t, db.Callback().Row().Get("otel_timing:before_row"))
	assert.NotNil(t, db.Callback().Row().Get("otel_slow_query:row"))
	assert.NotNil(t, db.Callback().Raw().Get("otel_timing:before_raw"))
	assert.NotNil(t, db.Callback().Raw().Get("otel_slow_query:raw"))
}

func TestRegisterOtelGorm_WithFullSQL(t *testing.T) {
	db := newTracedDB(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       true,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: false,
	}, zap.NewNop())

	assert.NoError(t, plugin.RegisterOtelGorm(db))
}

func TestRegisterOtelGorm_DoubleRegistration(t *testing.T) {
	db := newTracedDB(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}, zap.NewNop())

	require.NoError(t, plugin.RegisterOtelGorm(db))

	// Callback names collide on the second pass
	assert.Error(t, plugin.RegisterOtelGorm(db))
}

func TestEnrichSpan_RowsAffectedAndTable(t *testing.T) {
	db := newTracedDB(t)
	tp, recorder := newSpanRecorder(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "post-batch")

	tx := db.WithContext(ctx)
	tx.Statement.RowsAffected = 3
	tx.Statement.Table = "payment_batches"

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	plugin.enrichSpan(tx)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	attrs := spans[0].Attributes()
	foundRows, foundTable := false, false
	for _, attr := range attrs {
		switch attr.Key {
		case "db.rows_affected":
			foundRows = true
			assert.Equal(t, int64(3), attr.Value.AsInt64())
		case "db.sql.table":
			foundTable = true
			assert.Equal(t, "payment_batches", attr.Value.AsString())
		}
	}
	assert.True(t, foundRows, "db.rows_affected attribute should be present")
	assert.True(t, foundTable, "db.sql.table attribute should be present")
}

func TestEnrichSpan_RecordNotFoundIsNotAnError(t *testing.T) {
	db := newTracedDB(t)
	tp, recorder := newSpanRecorder(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "find-batch")

	tx := db.WithContext(ctx)
	tx.Error = gorm.ErrRecordNotFound

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	plugin.enrichSpan(tx)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestEnrichSpan_MarksRealErrors(t *testing.T) {
	db := newTracedDB(t)
	tp, recorder := newSpanRecorder(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "save-cheque")

	tx := db.WithContext(ctx)
	tx.Error = errors.New("deadlock detected")

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	plugin.enrichSpan(tx)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.NotEmpty(t, spans[0].Events(), "error should be recorded as a span event")
}

func TestEnrichSpan_SlowQuery(t *testing.T) {
	db := newTracedDB(t)
	tp, recorder := newSpanRecorder(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "settlement-scan")
	ctx = WithQueryStartTime(ctx)
	time.Sleep(2 * time.Millisecond)

	tx := db.WithContext(ctx)

	plugin := NewDBTracingPlugin(DBTracingConfig{SlowQueryThresh: time.Nanosecond}, zap.NewNop())
	plugin.enrichSpan(tx)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	foundFlag := false
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "db.slow_query" && attr.Value.AsBool() {
			foundFlag = true
		}
	}
	assert.True(t, foundFlag, "db.slow_query attribute should be set")

	foundEvent := false
	for _, event := range spans[0].Events() {
		if event.Name == "slow_query_warning" {
			foundEvent = true
			for _, attr := range event.Attributes {
				if attr.Key == "duration_ms" {
					assert.GreaterOrEqual(t, attr.Value.AsInt64(), int64(1))
				}
			}
		}
	}
	assert.True(t, foundEvent, "slow_query_warning event should be recorded")
}

func TestEnrichSpan_NoRecordingSpan(t *testing.T) {
	db := newTracedDB(t)

	tx := db.WithContext(context.Background())

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

	// Must not panic without an active span
	plugin.enrichSpan(tx)
}

func TestWithQueryStartTime(t *testing.T) {
	ctx := WithQueryStartTime(context.Background())

	startTime, ok := ctx.Value(queryStartTimeKey).(time.Time)
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now(), startTime, time.Second)
}

func TestStampQueryStart(t *testing.T) {
	db := newTracedDB(t)

	tx := db.WithContext(context.Background())
	stampQueryStart(tx)

	_, ok := tx.Statement.Context.Value(queryStartTimeKey).(time.Time)
	assert.True(t, ok, "start time should be stamped on the statement context")
}
