package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// captureLogger returns a debug-level JSON logger writing into the buffer.
func captureLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&buf),
		zapcore.DebugLevel,
	)
	return zap.New(core), &buf
}

// startValidSpan starts a span with a valid span context. The SDK provider
// needs no exporter for the span context itself to be valid.
func startValidSpan(t *testing.T) (context.Context, trace.Span) {
	t.Helper()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp.Tracer("test").Start(context.Background(), "post_batch")
}

// startNoopSpan starts a span whose span context is invalid.
func startNoopSpan() (context.Context, trace.Span) {
	return noop.NewTracerProvider().Tracer("test").Start(context.Background(), "post_batch")
}

func TestWithContext_RoundTrip(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := WithContext(context.Background(), logger)
	assert.Equal(t, logger, FromContext(ctx))
}

func TestFromContext_Fallbacks(t *testing.T) {
	t.Run("empty context returns nop", func(t *testing.T) {
		logger := FromContext(context.Background())
		require.NotNil(t, logger)
		assert.NotPanics(t, func() {
			logger.Info("cheque voided")
			logger.With(zap.String("series", "A")).Warn("grower on hold")
		})
	})

	t.Run("wrong value type returns nop", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
		logger := FromContext(ctx)
		require.NotNil(t, logger)
		assert.NotPanics(t, func() { logger.Info("test") })
	})
}

func TestWithRequestID(t *testing.T) {
	base, _ := captureLogger()

	ctx, enriched := WithRequestID(context.Background(), base, "batch-post-7f3a")

	assert.Equal(t, "batch-post-7f3a", GetRequestID(ctx))
	assert.NotEqual(t, base, enriched)
	// the context carries the enriched logger, not the base one
	assert.Equal(t, enriched, FromContext(ctx))
}

func TestWithRequestID_SecondCallOverrides(t *testing.T) {
	base, _ := captureLogger()

	ctx, _ := WithRequestID(context.Background(), base, "first-id")
	ctx, _ = WithRequestID(ctx, base, "second-id")

	assert.Equal(t, "second-id", GetRequestID(ctx))
}

func TestWithActorID(t *testing.T) {
	base, _ := captureLogger()

	ctx, enriched := WithActorID(context.Background(), base, "jdoe")

	assert.Equal(t, "jdoe", GetActorID(ctx))
	assert.NotEqual(t, base, enriched)
}

func TestContextChaining(t *testing.T) {
	base, _ := captureLogger()

	ctx, logger := WithRequestID(context.Background(), base, "req-1")
	ctx, logger = WithActorID(ctx, logger, "asmith")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "asmith", GetActorID(ctx))
	require.NotNil(t, logger)
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestGetActorID_Missing(t *testing.T) {
	assert.Empty(t, GetActorID(context.Background()))
}

func TestContextKeysAreDistinct(t *testing.T) {
	assert.NotEqual(t, LoggerKey, RequestIDKey)
	assert.NotEqual(t, RequestIDKey, ActorIDKey)
	assert.NotEqual(t, LoggerKey, ActorIDKey)
}

func TestGetTraceID(t *testing.T) {
	t.Run("no span", func(t *testing.T) {
		assert.Empty(t, GetTraceID(context.Background()))
	})

	t.Run("invalid span context", func(t *testing.T) {
		ctx, span := startNoopSpan()
		defer span.End()
		assert.Empty(t, GetTraceID(ctx))
	})

	t.Run("valid span", func(t *testing.T) {
		ctx, span := startValidSpan(t)
		defer span.End()

		traceID := GetTraceID(ctx)
		assert.Len(t, traceID, 32)
		assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	})
}

func TestGetSpanID(t *testing.T) {
	t.Run("no span", func(t *testing.T) {
		assert.Empty(t, GetSpanID(context.Background()))
	})

	t.Run("invalid span context", func(t *testing.T) {
		ctx, span := startNoopSpan()
		defer span.End()
		assert.Empty(t, GetSpanID(ctx))
	})

	t.Run("valid span", func(t *testing.T) {
		ctx, span := startValidSpan(t)
		defer span.End()

		spanID := GetSpanID(ctx)
		assert.Len(t, spanID, 16)
		assert.Equal(t, span.SpanContext().SpanID().String(), spanID)
	})
}

func TestWithTraceContext(t *testing.T) {
	t.Run("no span returns logger unchanged", func(t *testing.T) {
		base := zap.NewNop()
		assert.Equal(t, base, WithTraceContext(context.Background(), base))
	})

	t.Run("invalid span context returns logger unchanged", func(t *testing.T) {
		ctx, span := startNoopSpan()
		defer span.End()

		base := zap.NewNop()
		assert.Equal(t, base, WithTraceContext(ctx, base))
	})

	t.Run("valid span adds trace fields", func(t *testing.T) {
		ctx, span := startValidSpan(t)
		defer span.End()

		base, buf := captureLogger()
		WithTraceContext(ctx, base).Info("posting started")

		output := buf.String()
		assert.Contains(t, output, `"trace_id":"`+span.SpanContext().TraceID().String()+`"`)
		assert.Contains(t, output, `"span_id":"`+span.SpanContext().SpanID().String()+`"`)
	})
}

func TestL(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		cl := L(context.Background())
		require.NotNil(t, cl)
		assert.NotPanics(t, func() { cl.Info("test") })
	})

	t.Run("picks logger from context", func(t *testing.T) {
		base, buf := captureLogger()
		ctx := WithContext(context.Background(), base)

		L(ctx).Info("batch finalized")
		assert.Contains(t, buf.String(), `"msg":"batch finalized"`)
	})
}

func TestWithLogger_UsesProvidedLogger(t *testing.T) {
	base, buf := captureLogger()

	WithLogger(context.Background(), base).Info("advance issued")
	assert.Contains(t, buf.String(), `"msg":"advance issued"`)
}

func TestContextLogger_EnrichesFromContext(t *testing.T) {
	base, buf := captureLogger()

	ctx, _ := WithRequestID(context.Background(), base, "req-123")
	ctx, _ = WithActorID(ctx, base, "jdoe")
	ctx = WithContext(ctx, base)

	L(ctx).Info("cheque printed", zap.String("cheque_number", "A100042"))

	output := buf.String()
	assert.Contains(t, output, `"request_id":"req-123"`)
	assert.Contains(t, output, `"actor_id":"jdoe"`)
	assert.Contains(t, output, `"cheque_number":"A100042"`)
	assert.Contains(t, output, `"msg":"cheque printed"`)
}

func TestContextLogger_TraceCorrelation(t *testing.T) {
	ctx, span := startValidSpan(t)
	defer span.End()

	base, buf := captureLogger()
	WithLogger(ctx, base).Info("grower posted")

	output := buf.String()
	assert.Contains(t, output, `"trace_id":"`+span.SpanContext().TraceID().String()+`"`)
	assert.Contains(t, output, `"span_id":"`+span.SpanContext().SpanID().String()+`"`)
}

func TestContextLogger_EmptyFieldsOmitted(t *testing.T) {
	base, buf := captureLogger()

	WithLogger(context.Background(), base).Info("test")

	output := buf.String()
	assert.Contains(t, output, `"msg":"test"`)
	assert.NotContains(t, output, `"request_id"`)
	assert.NotContains(t, output, `"actor_id"`)
	assert.NotContains(t, output, `"trace_id"`)
}

func TestContextLogger_With(t *testing.T) {
	base, buf := captureLogger()

	cl := WithLogger(context.Background(), base).
		With(zap.String("batch_number", "P-2026-001")).
		With(zap.Int("crop_year", 2026))
	cl.Info("batch approved")

	output := buf.String()
	assert.Contains(t, output, `"batch_number":"P-2026-001"`)
	assert.Contains(t, output, `"crop_year":2026`)
}

func TestContextLogger_LogLevels(t *testing.T) {
	cl := WithLogger(context.Background(), zap.NewNop())

	assert.NotPanics(t, func() {
		cl.Debug("debug")
		cl.Info("info")
		cl.Warn("warn")
		cl.Error("error")
	})
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}

	assert.NotPanics(t, func() { cl.Info("test") })
}

func TestContextLogger_Zap(t *testing.T) {
	base, buf := captureLogger()

	zl := WithLogger(context.Background(), base).Zap()
	require.NotNil(t, zl)

	zl.Info("from zap")
	assert.Contains(t, buf.String(), `"msg":"from zap"`)
}

func TestContextLogger_Sugar(t *testing.T) {
	base, buf := captureLogger()

	sugar := WithLogger(context.Background(), base).Sugar()
	require.NotNil(t, sugar)

	sugar.Infof("voided %d cheques", 3)
	assert.Contains(t, buf.String(), `"msg":"voided 3 cheques"`)
}
