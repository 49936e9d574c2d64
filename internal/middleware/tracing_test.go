package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracing(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TraceIDFromContext(r.Context())
	})

	t.Run("generates an id when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Tracing(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, got, rec.Header().Get(traceIDHeader))
	})

	t.Run("keeps a well-formed inbound id", func(t *testing.T) {
		inbound := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(traceIDHeader, inbound)

		rec := httptest.NewRecorder()
		Tracing(next).ServeHTTP(rec, req)

		assert.Equal(t, inbound, got)
	})

	t.Run("replaces a malformed inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(traceIDHeader, "not-a-uuid\n<script>")

		rec := httptest.NewRecorder()
		Tracing(next).ServeHTTP(rec, req)

		_, err := uuid.Parse(got)
		require.NoError(t, err)
		assert.NotContains(t, got, "script")
	})
}
