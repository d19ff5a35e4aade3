package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dagym/contract-backend/pkg/logger"
)

func TestRequestIDKeepsWellFormedHeader(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	var seen string
	h := RequestID(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(requestIDHeader, "console-req-0001")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "console-req-0001", rec.Header().Get(requestIDHeader))
	assert.Equal(t, "console-req-0001", seen)
}

func TestRequestIDReplacesMissingOrOddHeader(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	h := RequestID(logg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for _, header := range []string{"", "short", "has spaces in it", "line\nbreak-injection"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(requestIDHeader, header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
		assert.NoError(t, err, header)
	}
}
