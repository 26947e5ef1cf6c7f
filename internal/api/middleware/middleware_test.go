package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ekobres/spook/internal/core/metrics"
	"github.com/ekobres/spook/pkg/logger"
	"github.com/ekobres/spook/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "s3cret"

	r := gin.New()
	r.Use(AuthMiddleware(secret))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(SubjectKey)) })

	valid, err := GenerateToken(secret, "dashboard", time.Hour)
	require.NoError(t, err)
	forever, err := GenerateToken(secret, "cli", 0)
	require.NoError(t, err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "old",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	foreign, err := GenerateToken("other", "dashboard", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, "dashboard"},
		{"no expiry", "Bearer " + forever, http.StatusOK, "cli"},
		{"missing", "", http.StatusUnauthorized, "Authorization header required"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "Invalid authorization header format"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Invalid token"},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := perform(r, req)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestParseToken_RejectsNone(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken("s3cret", unsigned)
	assert.Error(t, err)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(utils.RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := perform(r, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = perform(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	w = perform(r, req)
	assert.Len(t, w.Body.String(), 36)
}

func TestErrorHandlingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	r := gin.New()
	r.Use(RequestIDMiddleware(), ErrorHandlingMiddleware(log))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := perform(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, float64(http.StatusInternalServerError), body["code"])
	assert.Equal(t, w.Header().Get(RequestIDHeader), body["request_id"])

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kaboom", entry["panic"])
	assert.Equal(t, "/boom", entry["path"])
}

func TestMetricsMiddleware(t *testing.T) {
	collector := metrics.NewPrometheusCollector(&metrics.MetricsConfig{Enabled: true})

	r := gin.New()
	r.Use(MetricsMiddleware(collector))
	r.GET("/api/v1/options/:kind", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	perform(r, httptest.NewRequest(http.MethodGet, "/api/v1/options/areas", nil))
	perform(r, httptest.NewRequest(http.MethodGet, "/api/v1/options/labels", nil))
	perform(r, httptest.NewRequest(http.MethodGet, "/nope", nil))

	w := perform(collector.Handler(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), `path="/api/v1/options/:kind"`)
	assert.Contains(t, string(body), `path="unmatched"`)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOutput(&buf, "info", "json")

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	perform(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Empty(t, buf.String())

	perform(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(404), entry["status_code"])
	assert.NotEmpty(t, entry["request_id"])

	buf.Reset()
	log.FlushPending()
	assert.Contains(t, buf.String(), `"GET /ok"`)
}
