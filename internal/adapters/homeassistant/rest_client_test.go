package homeassistant

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREST(t *testing.T, handler http.HandlerFunc) *restClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := NewRESTClient(srv.URL+"/", "tok", time.Second, logger).(*restClient)
	c.retryDelay = time.Millisecond
	c.maxRetryDelay = 5 * time.Millisecond
	return c
}

func TestRESTClient_GetConfig(t *testing.T) {
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/config", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		io.WriteString(w, `{"version":"2024.6.0","time_zone":"Europe/Amsterdam","state":"RUNNING"}`)
	})

	config, err := c.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024.6.0", config.Version)
	assert.Equal(t, "Europe/Amsterdam", config.TimeZone)
}

func TestRESTClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"version":"2024.6.0"}`)
	})

	config, err := c.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024.6.0", config.Version)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRESTClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.GetConfig(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Server error")
	assert.Equal(t, int32(4), calls.Load())
}

func TestRESTClient_PermanentErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.True(t, IsAuthError(err))
		}},
		{"not found", http.StatusNotFound, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "Client error")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			})

			_, err := c.GetConfig(context.Background())
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestRESTClient_InvalidJSON(t *testing.T) {
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	})

	_, err := c.GetConfig(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Contains(t, err.Error(), "/api/config")
}
