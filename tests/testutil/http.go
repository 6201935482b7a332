package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HandlerTest describes one request against a handler and the expected
// API envelope. Setup runs before the handler, Validate after it.
type HandlerTest struct {
	Name       string
	Method     string
	Path       string
	Body       interface{}
	Headers    map[string]string
	WantStatus int
	WantBody   map[string]interface{}
	Setup      func(t *testing.T, tc *TestContext)
	Validate   func(t *testing.T, tc *TestContext)
}

// RunHandlerTests runs each case as a subtest against the handler.
func RunHandlerTests(t *testing.T, handler gin.HandlerFunc, cases []HandlerTest) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHandlerTest(t, handler, tc)
		})
	}
}

// RunHandlerTest executes a single case against the handler.
func RunHandlerTest(t *testing.T, handler gin.HandlerFunc, tt HandlerTest) {
	t.Helper()

	method := tt.Method
	if method == "" {
		method = http.MethodGet
	}
	path := tt.Path
	if path == "" {
		path = "/"
	}

	req := httptest.NewRequest(method, path, jsonBody(t, tt.Body))
	if tt.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range tt.Headers {
		req.Header.Set(k, v)
	}

	tc := NewTestContextWithRequest(t, method, path, req)
	if tt.Setup != nil {
		tt.Setup(t, tc)
	}

	handler(tc.Context)

	if tt.WantStatus != 0 {
		assert.Equal(t, tt.WantStatus, tc.ResponseCode())
	}
	if tt.WantBody != nil {
		got := JSONResponse(t, tc)
		for key, want := range tt.WantBody {
			assert.Equal(t, want, got[key], "mismatch for key %q", key)
		}
	}
	if tt.Validate != nil {
		tt.Validate(t, tc)
	}
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	if v == nil {
		return nil
	}
	return ToJSONReader(t, v)
}

// JSONResponse decodes the recorded response body into a generic map.
func JSONResponse(t *testing.T, tc *TestContext) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &result))
	return result
}

// JSONResponseAs decodes the recorded response body into T.
func JSONResponseAs[T any](t *testing.T, tc *TestContext) T {
	t.Helper()

	var result T
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &result))
	return result
}

// AssertSuccessEnvelope asserts the response uses the success envelope
// with no error object attached.
func AssertSuccessEnvelope(t *testing.T, tc *TestContext) {
	t.Helper()

	resp := JSONResponse(t, tc)
	assert.Equal(t, true, resp["success"])
	assert.Nil(t, resp["error"])
}

// AssertErrorEnvelope asserts the response uses the error envelope and
// carries the expected machine-readable code.
func AssertErrorEnvelope(t *testing.T, tc *TestContext, wantCode string) {
	t.Helper()

	resp := JSONResponse(t, tc)
	assert.Equal(t, false, resp["success"])

	errObj, ok := resp["error"].(map[string]interface{})
	require.True(t, ok, "error object missing from response")
	assert.Equal(t, wantCode, errObj["code"])
}

// ToJSONReader marshals v and returns a reader over the JSON bytes.
func ToJSONReader(t *testing.T, v interface{}) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
