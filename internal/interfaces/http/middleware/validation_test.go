package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestpay/backend/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	assert.NotNil(t, v)
}

func TestFormatValidationErrors(t *testing.T) {
	type createBatchRequest struct {
		PayGroup   string `json:"pay_group" binding:"required"`
		AdvancePct int    `json:"advance_pct" binding:"required,min=1,max=100"`
	}

	SetupValidator()

	router := gin.New()
	router.POST("/batches", func(c *gin.Context) {
		var req createBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	t.Run("invalid body returns per-field details", func(t *testing.T) {
		body := strings.NewReader(`{"pay_group": "", "advance_pct": 150}`)
		req := httptest.NewRequest("POST", "/batches", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		require.Len(t, resp.Error.Details, 2)

		fields := []string{resp.Error.Details[0].Field, resp.Error.Details[1].Field}
		assert.Contains(t, fields, "pay_group", "details use json tag names")
		assert.Contains(t, fields, "advance_pct")
	})

	t.Run("valid body passes binding", func(t *testing.T) {
		body := strings.NewReader(`{"pay_group": "NORTH", "advance_pct": 70}`)
		req := httptest.NewRequest("POST", "/batches", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestValidationMessage(t *testing.T) {
	type constrained struct {
		Required string `validate:"required"`
		Email    string `validate:"email"`
		Min      string `validate:"min=5"`
		Max      string `validate:"max=3"`
		Len      string `validate:"len=5"`
		UUID     string `validate:"uuid"`
		OneOf    string `validate:"oneof=draft posted voided"`
		GTE      int    `validate:"gte=10"`
		LT       int    `validate:"lt=0"`
		URL      string `validate:"url"`
	}

	v := validator.New()
	err := v.Struct(constrained{
		Email: "not-an-email",
		Min:   "ab",
		Max:   "toolong",
		Len:   "ab",
		UUID:  "not-a-uuid",
		OneOf: "cancelled",
		LT:    5,
		URL:   "not a url",
	})
	require.Error(t, err)

	expected := map[string]string{
		"Required": "This field is required",
		"Email":    "Invalid email format",
		"Min":      "Must be at least 5 characters",
		"Max":      "Must be at most 3 characters",
		"Len":      "Must be exactly 5 characters",
		"UUID":     "Invalid UUID format",
		"OneOf":    "Must be one of: draft posted voided",
		"GTE":      "Must be greater than or equal to 10",
		"LT":       "Must be less than 0",
		"URL":      "Invalid URL format",
	}

	seen := map[string]bool{}
	for _, e := range err.(validator.ValidationErrors) {
		want, ok := expected[e.Field()]
		require.True(t, ok, "unexpected field %s", e.Field())
		assert.Equal(t, want, validationMessage(e))
		seen[e.Field()] = true
	}
	assert.Len(t, seen, len(expected), "every constraint should have failed")
}

func TestHandleValidationError_RequestID(t *testing.T) {
	type input struct {
		Name string `json:"name" binding:"required"`
	}

	router := gin.New()
	router.POST("/growers", func(c *gin.Context) {
		c.Set(RequestIDKey, "req-42")
		var in input
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
	})

	req := httptest.NewRequest("POST", "/growers", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-42", resp.Error.RequestID)
}
