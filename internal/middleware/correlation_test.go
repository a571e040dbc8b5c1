package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationID_AssignsWhenMissing(t *testing.T) {
	var seen string
	wrapped := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	require.NotEmpty(t, seen)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestCorrelationID_KeepsCallerID(t *testing.T) {
	var seen string
	wrapped := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "client-abc-123")
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	assert.Equal(t, "client-abc-123", seen)
	assert.Equal(t, "client-abc-123", w.Header().Get("X-Request-ID"))
}

func TestCorrelationID_ReplacesUnusableID(t *testing.T) {
	cases := map[string]string{
		"too long":      strings.Repeat("a", maxRequestIDLen+1),
		"control chars": "abc\ndef",
		"spaces":        "id with spaces",
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			wrapped := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("X-Request-ID", bad)
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			assert.NotEqual(t, bad, got)
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestRequestIDFromContext_OutsideRequest(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(httptest.NewRequest("GET", "/", nil).Context()))
}
