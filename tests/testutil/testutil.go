// Package testutil provides shared helpers for handler and repository
// tests: a sqlmock-backed GORM database, gin test contexts wired the way
// the HTTP middleware wires real requests, and deterministic IDs for
// domain fixtures.
package testutil

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB is a GORM handle backed by sqlmock. The underlying connection is
// closed automatically when the test finishes.
type MockDB struct {
	Gorm *gorm.DB
	Mock sqlmock.Sqlmock
	conn *sql.DB
}

// NewMockDB opens a sqlmock-backed GORM database and registers cleanup.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       conn,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return &MockDB{Gorm: gormDB, Mock: mock, conn: conn}
}

// ExpectationsWereMet fails the test if any sqlmock expectation is unmet.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet())
}

// TestContext bundles a gin test context with its response recorder.
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
	Engine   *gin.Engine
}

// NewTestContext creates a gin test context carrying a plain GET request.
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()
	return NewTestContextWithRequest(t, http.MethodGet, "/", nil)
}

// NewTestContextWithRequest creates a gin test context around the given
// request, or a bodyless request built from method and path when req is nil.
func NewTestContextWithRequest(t *testing.T, method, path string, req *http.Request) *TestContext {
	t.Helper()

	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	if req == nil {
		req = httptest.NewRequest(method, path, nil)
	}
	c.Request = req

	return &TestContext{Context: c, Recorder: w, Engine: engine}
}

// SetRequestID stores a request ID under the key the request ID middleware
// uses, so handlers resolve it the same way they would in production.
func (tc *TestContext) SetRequestID(id string) {
	tc.Context.Set("request_id", id)
}

// SetActor stores an acting operator identity in the context, the way the
// actor extraction middleware does for real requests.
func (tc *TestContext) SetActor(actor string) {
	tc.Context.Set("actor", actor)
}

// SetHeader sets a header on the underlying request.
func (tc *TestContext) SetHeader(key, value string) {
	tc.Context.Request.Header.Set(key, value)
}

// ResponseBody returns the recorded response body.
func (tc *TestContext) ResponseBody() []byte {
	return tc.Recorder.Body.Bytes()
}

// ResponseCode returns the recorded HTTP status code.
func (tc *TestContext) ResponseCode() int {
	return tc.Recorder.Code
}

// NewTestUUID derives a reproducible UUID from a seed string, so fixtures
// keep stable IDs across runs without hardcoding UUID literals.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// TestGrowerID returns the standard grower fixture ID.
func TestGrowerID() uuid.UUID {
	return NewTestUUID("grower-fixture")
}

// TestBatchID returns the standard payment batch fixture ID.
func TestBatchID() uuid.UUID {
	return NewTestUUID("batch-fixture")
}

// TestChequeID returns the standard cheque fixture ID.
func TestChequeID() uuid.UUID {
	return NewTestUUID("cheque-fixture")
}
