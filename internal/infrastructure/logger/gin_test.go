package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// loggedRouter builds a router running GinMiddleware over an observed logger.
func loggedRouter(level zapcore.Level, pre ...gin.HandlerFunc) (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(level)
	router := gin.New()
	router.Use(pre...)
	router.Use(GinMiddleware(zap.New(core)))
	return router, recorded
}

// accessLog returns the "HTTP Request" entry from the recorded logs.
func accessLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()

	for _, entry := range recorded.All() {
		if entry.Message == "HTTP Request" {
			return entry
		}
	}
	t.Fatal("HTTP Request log entry not found")
	return observer.LoggedEntry{}
}

func logField(entry observer.LoggedEntry, key string) (zapcore.Field, bool) {
	for _, field := range entry.Context {
		if field.Key == key {
			return field, true
		}
	}
	return zapcore.Field{}, false
}

func serveGet(router *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGinMiddleware_LogsRequests(t *testing.T) {
	router, recorded := loggedRouter(zapcore.InfoLevel)
	router.GET("/api/v1/batches", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := serveGet(router, "/api/v1/batches")
	assert.Equal(t, http.StatusOK, w.Code)

	entry := accessLog(t, recorded)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
}

func TestGinMiddleware_StatusLevels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"client errors log as warnings", http.StatusUnprocessableEntity, zapcore.WarnLevel},
		{"server errors log as errors", http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, recorded := loggedRouter(zapcore.DebugLevel)
			router.GET("/api/v1/batches", func(c *gin.Context) {
				c.JSON(tt.status, gin.H{"error": "failed"})
			})

			w := serveGet(router, "/api/v1/batches")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.level, accessLog(t, recorded).Level)
		})
	}
}

func TestGinMiddleware_CarriesRequestID(t *testing.T) {
	router, recorded := loggedRouter(zapcore.InfoLevel, func(c *gin.Context) {
		c.Set("request_id", "batch-post-7f3a")
		c.Next()
	})
	router.GET("/api/v1/batches", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	serveGet(router, "/api/v1/batches")

	field, ok := logField(accessLog(t, recorded), "request_id")
	require.True(t, ok, "request_id should be in log fields")
	assert.Equal(t, "batch-post-7f3a", field.String)
}

func TestGinMiddleware_PropagatesRequestContext(t *testing.T) {
	var (
		handlerCtx    context.Context
		handlerLogger *zap.Logger
	)

	router, _ := loggedRouter(zapcore.InfoLevel, func(c *gin.Context) {
		c.Set("request_id", "req-42")
		c.Next()
	})
	router.GET("/api/v1/batches", func(c *gin.Context) {
		handlerCtx = c.Request.Context()
		handlerLogger = FromContext(handlerCtx)
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	serveGet(router, "/api/v1/batches")

	// downstream code sees the request ID and the request-scoped logger
	assert.Equal(t, "req-42", GetRequestID(handlerCtx))
	require.NotNil(t, handlerLogger)
	assert.NotPanics(t, func() { handlerLogger.Info("from handler") })
}

func TestGinMiddleware_LogsQueryString(t *testing.T) {
	router, recorded := loggedRouter(zapcore.InfoLevel)
	router.GET("/api/v1/cheques", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	serveGet(router, "/api/v1/cheques?series=A&page=1")

	field, ok := logField(accessLog(t, recorded), "query")
	require.True(t, ok, "query should be in log fields")
	assert.Contains(t, field.String, "series=A")
}

func TestGinMiddleware_LogsRequestFields(t *testing.T) {
	router, recorded := loggedRouter(zapcore.InfoLevel)
	router.POST("/api/v1/batches", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"batch_number": "P-2026-001"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/batches", nil)
	req.Header.Set("User-Agent", "posting-terminal/1.0")
	router.ServeHTTP(w, req)

	entry := accessLog(t, recorded)
	for _, key := range []string{"status", "latency", "client_ip", "user_agent", "method", "path"} {
		_, ok := logField(entry, key)
		assert.True(t, ok, "expected field %q", key)
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/api/v1/batches", func(c *gin.Context) {
		panic("savepoint bookkeeping corrupted")
	})

	var w *httptest.ResponseRecorder
	assert.NotPanics(t, func() {
		w = serveGet(router, "/api/v1/batches")
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	logs := recorded.All()
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "Panic recovered")
}

func TestGetGinLogger(t *testing.T) {
	var retrieved *zap.Logger

	router, _ := loggedRouter(zapcore.InfoLevel)
	router.GET("/api/v1/batches", func(c *gin.Context) {
		retrieved = GetGinLogger(c)
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	serveGet(router, "/api/v1/batches")
	assert.NotNil(t, retrieved)
}

func TestGetGinLogger_MiddlewareNotInstalled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var retrieved *zap.Logger

	router := gin.New()
	router.GET("/api/v1/batches", func(c *gin.Context) {
		retrieved = GetGinLogger(c)
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	serveGet(router, "/api/v1/batches")

	require.NotNil(t, retrieved)
	assert.NotPanics(t, func() { retrieved.Info("test") })
}
