package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/ekobres/spook/pkg/errors"
	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
	Meta      interface{} `json:"meta,omitempty"`
}

// ErrorResponse represents an error response with request context
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      int         `json:"code"`
	Timestamp string      `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
	Request   RequestInfo `json:"request"`
	Details   interface{} `json:"details,omitempty"`
}

// RequestInfo provides context about the failed request
type RequestInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query,omitempty"`
}

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "request_id"

// KnownEndpoints feeds the suggestions attached to 404 responses
var KnownEndpoints = []string{
	"/health",
	"/metrics",
	"/ws",
	"/api/v1/services/list_filtered_entities",
	"/api/v1/services/list_filtered_entities/fields",
	"/api/v1/services/list_hidden_entities",
	"/api/v1/options/areas",
	"/api/v1/options/devices",
	"/api/v1/options/domains",
	"/api/v1/options/integrations",
	"/api/v1/options/labels",
	"/api/v1/registry/status",
	"/api/v1/registry/refresh",
	"/api/v1/calls",
}

// Now formats the current time for response envelopes
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SendSuccess sends a successful response
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: Now(),
	})
}

// SendSuccessWithMeta sends a successful response with metadata
func SendSuccessWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Meta:      meta,
		Timestamp: Now(),
	})
}

// SendError sends an error response with request context
func SendError(c *gin.Context, statusCode int, message string) {
	sendError(c, statusCode, message, nil)
}

// SendAppError maps err to its status code. AppError details are passed
// through; other errors are reported as internal.
func SendAppError(c *gin.Context, err error) {
	code := apperrors.GetStatusCode(err)

	var details interface{}
	message := http.StatusText(code)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Details != "" {
			details = map[string]interface{}{"message": appErr.Details}
		}
	}

	sendError(c, code, message, details)
}

func sendError(c *gin.Context, statusCode int, message string, details interface{}) {
	resp := ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      statusCode,
		Timestamp: Now(),
		RequestID: c.GetString(RequestIDKey),
		Request: RequestInfo{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.RawQuery,
		},
		Details: details,
	}

	if statusCode == http.StatusNotFound && details == nil {
		if suggestions := notFoundSuggestions(c.Request.URL.Path); len(suggestions) > 0 {
			resp.Details = map[string]interface{}{
				"suggestions": suggestions,
				"message":     "The requested endpoint does not exist. Check the suggestions below for similar endpoints.",
			}
		}
	} else if statusCode == http.StatusMethodNotAllowed {
		resp.Details = map[string]interface{}{
			"message": "The HTTP method is not supported for this endpoint.",
		}
	}

	c.AbortWithStatusJSON(statusCode, resp)
}

// notFoundSuggestions returns up to five known endpoints sharing a path
// segment with path.
func notFoundSuggestions(path string) []string {
	var segments []string
	for _, s := range strings.Split(strings.ToLower(path), "/") {
		if s != "" && s != "api" && s != "v1" {
			segments = append(segments, s)
		}
	}

	var suggestions []string
	for _, endpoint := range KnownEndpoints {
		if len(suggestions) == 5 {
			break
		}
		for _, s := range segments {
			if strings.Contains(endpoint, s) {
				suggestions = append(suggestions, endpoint)
				break
			}
		}
	}
	return suggestions
}
