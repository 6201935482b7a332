package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRegistrar mounts a couple of routes the way the batch and cheque
// handlers do.
type stubRegistrar struct {
	prefix string
	body   string
}

func (s *stubRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(s.prefix)
	group.GET("", func(c *gin.Context) {
		c.String(http.StatusOK, s.body)
	})
	group.POST("", func(c *gin.Context) {
		c.String(http.StatusCreated, s.body)
	})
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	r.Register(&stubRegistrar{prefix: "/batches", body: "batches"})
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v2/batches", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterRegister(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Register(&stubRegistrar{prefix: "/batches"})
	assert.Len(t, r.registrars, 1)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	r.Register(&stubRegistrar{prefix: "/batches", body: "batch list"})
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v1/batches", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "batch list", w.Body.String())

	post := httptest.NewRequest("POST", "/api/v1/batches", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, post)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestMultipleRegistrars(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Register(&stubRegistrar{prefix: "/batches", body: "batches"}).
		Register(&stubRegistrar{prefix: "/advances", body: "advances"}).
		Register(&stubRegistrar{prefix: "/cheques", body: "cheques"})
	r.Setup()

	for _, path := range []string{"/api/v1/batches", "/api/v1/advances", "/api/v1/cheques"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "GET %s should be mounted", path)
	}
}

func TestUnregisteredRouteIs404(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Register(&stubRegistrar{prefix: "/batches"})
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v1/growers", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
