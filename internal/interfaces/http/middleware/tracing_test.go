package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// installTestTracer swaps the global tracer provider for a recording one.
func installTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return sr
}

// requestSpan finds the server span for "GET /growers" among the ended spans.
func requestSpan(t *testing.T, sr *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == "GET /growers" {
			return span
		}
	}
	t.Fatal("server span not recorded")
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, attr := range span.Attributes() {
		if string(attr.Key) == key {
			return attr.Value.AsString(), true
		}
	}
	return "", false
}

// tracedRouter mounts GET /growers behind Tracing plus any extra middleware.
func tracedRouter(status int, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test-service"}))
	for _, mw := range extra {
		router.Use(mw)
	}
	router.GET("/growers", func(c *gin.Context) {
		c.JSON(status, gin.H{"status": status})
	})
	return router
}

func getGrowers(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/growers", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()

	assert.Equal(t, "harvestpay-backend", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false, ServiceName: "test-service"}))
	router.GET("/growers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := getGrowers(router, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracingWithConfig_RecordsServerSpan(t *testing.T) {
	sr := installTestTracer(t)

	w := getGrowers(tracedRouter(http.StatusOK), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	span := requestSpan(t, sr)
	assert.NotNil(t, span)
}

func TestTracingWithConfig_RequestIDAttribute(t *testing.T) {
	sr := installTestTracer(t)

	router := gin.New()
	router.Use(RequestID())
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test-service"}))
	router.GET("/growers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := getGrowers(router, map[string]string{"X-Request-ID": "test-request-id-123"})
	assert.Equal(t, http.StatusOK, w.Code)

	id, ok := spanAttr(requestSpan(t, sr), "request_id")
	require.True(t, ok, "request_id attribute missing")
	assert.Equal(t, "test-request-id-123", id)
}

func TestTracingWithConfig_ActorFromContext(t *testing.T) {
	sr := installTestTracer(t)

	setActor := func(c *gin.Context) {
		c.Set(ActorContextKey, "supervisor")
		c.Next()
	}
	w := getGrowers(tracedRouter(http.StatusOK, setActor), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	actor, ok := spanAttr(requestSpan(t, sr), "actor")
	require.True(t, ok, "actor attribute missing")
	assert.Equal(t, "supervisor", actor)
}

func TestTracingWithConfig_ActorFromHeader(t *testing.T) {
	sr := installTestTracer(t)

	w := getGrowers(tracedRouter(http.StatusOK, ActorExtraction(zap.NewNop())),
		map[string]string{ActorHeader: "asmith"})
	assert.Equal(t, http.StatusOK, w.Code)

	actor, ok := spanAttr(requestSpan(t, sr), "actor")
	require.True(t, ok, "actor attribute missing")
	assert.Equal(t, "asmith", actor)
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantCode    codes.Code
		description string
	}{
		{"bad request", http.StatusBadRequest, codes.Error, "Client Error"},
		{"not found", http.StatusNotFound, codes.Error, "Client Error"},
		{"unauthorized", http.StatusUnauthorized, codes.Error, "Client Error"},
		{"forbidden", http.StatusForbidden, codes.Error, "Client Error"},
		{"internal error", http.StatusInternalServerError, codes.Error, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := installTestTracer(t)

			w := getGrowers(tracedRouter(tt.status, SpanErrorMarker()), nil)
			assert.Equal(t, tt.status, w.Code)

			span := requestSpan(t, sr)
			assert.Equal(t, tt.wantCode, span.Status().Code)
			assert.Equal(t, tt.description, span.Status().Description)
		})
	}

	t.Run("success leaves the span status unset", func(t *testing.T) {
		sr := installTestTracer(t)

		w := getGrowers(tracedRouter(http.StatusOK, SpanErrorMarker()), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		assert.NotEqual(t, codes.Error, requestSpan(t, sr).Status().Code)
	})

	t.Run("no recording span does not panic", func(t *testing.T) {
		otel.SetTracerProvider(noop.NewTracerProvider())

		router := gin.New()
		router.Use(SpanErrorMarker())
		router.GET("/growers", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{})
		})

		w := getGrowers(router, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestTracing_DefaultConfig(t *testing.T) {
	sr := installTestTracer(t)

	router := gin.New()
	router.Use(Tracing())
	router.GET("/growers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := getGrowers(router, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, sr.Ended())
}

func TestTracingWithConfig_NoRecordingSpan(t *testing.T) {
	otel.SetTracerProvider(noop.NewTracerProvider())

	w := getGrowers(tracedRouter(http.StatusOK), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSpanRequestID(t *testing.T) {
	echoID := func() (*gin.Engine, *string) {
		var got string
		router := gin.New()
		router.GET("/growers", func(c *gin.Context) {
			got = spanRequestID(c)
			c.JSON(http.StatusOK, gin.H{})
		})
		return router, &got
	}

	t.Run("prefers the context value", func(t *testing.T) {
		var got string
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set("request_id", "context-request-id")
			c.Next()
		})
		router.GET("/growers", func(c *gin.Context) {
			got = spanRequestID(c)
			c.JSON(http.StatusOK, gin.H{})
		})

		getGrowers(router, map[string]string{"X-Request-ID": "header-request-id"})
		assert.Equal(t, "context-request-id", got)
	})

	t.Run("falls back to the header", func(t *testing.T) {
		router, got := echoID()
		getGrowers(router, map[string]string{"X-Request-ID": "header-request-id"})
		assert.Equal(t, "header-request-id", *got)
	})

	t.Run("truncates oversized header values", func(t *testing.T) {
		router, got := echoID()
		getGrowers(router, map[string]string{"X-Request-ID": strings.Repeat("b", 300)})
		assert.Len(t, *got, MaxRequestIDLength)
	})
}
