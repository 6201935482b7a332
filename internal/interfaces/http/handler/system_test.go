package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestpay/backend/tests/testutil"
)

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler()

	testutil.RunHandlerTest(t, h.GetSystemInfo, testutil.HandlerTest{
		Name:       "reports service identity",
		Method:     http.MethodGet,
		Path:       "/api/v1/system/info",
		WantStatus: http.StatusOK,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			testutil.AssertSuccessEnvelope(t, tc)

			resp := testutil.JSONResponse(t, tc)
			data, ok := resp["data"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, "HarvestPay Backend API", data["name"])
			assert.Equal(t, serviceVersion, data["version"])
			assert.NotEmpty(t, data["go_version"])
			assert.NotEmpty(t, data["uptime"])
		},
	})
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler()

	testutil.RunHandlerTest(t, h.Ping, testutil.HandlerTest{
		Name:       "answers liveness probes",
		Method:     http.MethodGet,
		Path:       "/api/v1/system/ping",
		WantStatus: http.StatusOK,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			resp := testutil.JSONResponse(t, tc)
			data, ok := resp["data"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, "pong", data["message"])
			assert.NotEmpty(t, data["timestamp"])
		},
	})
}

func TestSystemHandler_RegisterRoutes(t *testing.T) {
	tc := testutil.NewTestContextWithRequest(t, http.MethodGet, "/api/v1/system/ping", nil)

	h := NewSystemHandler()
	h.RegisterRoutes(tc.Engine.Group("/api/v1"))

	tc.Engine.ServeHTTP(tc.Recorder, tc.Context.Request)

	assert.Equal(t, http.StatusOK, tc.ResponseCode())
	testutil.AssertSuccessEnvelope(t, tc)
}
