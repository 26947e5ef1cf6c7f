package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/ekobres/spook/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, method, path string, handler gin.HandlerFunc) map[string]interface{} {
	t.Helper()

	r := gin.New()
	r.Handle(method, "/*any", func(c *gin.Context) {
		c.Set(RequestIDKey, "req-1")
		handler(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	body["status"] = float64(w.Code)
	return body
}

func TestSendSuccess(t *testing.T) {
	body := serve(t, http.MethodGet, "/x", func(c *gin.Context) {
		SendSuccess(c, map[string]int{"count": 2})
	})

	assert.Equal(t, float64(200), body["status"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]interface{}{"count": float64(2)}, body["data"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestSendError_NotFoundSuggestions(t *testing.T) {
	body := serve(t, http.MethodGet, "/api/v1/options/colours?x=1", func(c *gin.Context) {
		SendError(c, http.StatusNotFound, "not found")
	})

	assert.Equal(t, float64(404), body["status"])
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "req-1", body["request_id"])
	request := body["request"].(map[string]interface{})
	assert.Equal(t, "/api/v1/options/colours", request["path"])
	assert.Equal(t, "x=1", request["query"])

	details := body["details"].(map[string]interface{})
	assert.Len(t, details["suggestions"], 5)
	assert.Contains(t, details["suggestions"], "/api/v1/options/areas")
}

func TestSendAppError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    float64
		message string
		details interface{}
	}{
		{
			name:    "wrapped unavailable",
			err:     fmt.Errorf("list: %w", apperrors.Wrap(apperrors.ErrUnavailable, errors.New("registry snapshot not loaded"))),
			code:    503,
			message: "Service unavailable",
			details: map[string]interface{}{"message": "registry snapshot not loaded"},
		},
		{
			name:    "plain",
			err:     errors.New("boom"),
			code:    500,
			message: "Internal Server Error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := serve(t, http.MethodPost, "/api/v1/services/list_hidden_entities", func(c *gin.Context) {
				SendAppError(c, tt.err)
			})
			assert.Equal(t, tt.code, body["status"])
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.message, body["error"])
			assert.Equal(t, tt.details, body["details"])
		})
	}
}
