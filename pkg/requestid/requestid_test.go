package requestid_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestleapp/trestle/pkg/requestid"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	serve := func(t *testing.T, inbound string) (string, string) {
		t.Helper()

		var fromCtx string
		handler := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fromCtx = requestid.FromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if inbound != "" {
			req.Header.Set(requestid.Header, inbound)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		return fromCtx, rec.Header().Get(requestid.Header)
	}

	t.Run("mints id when absent", func(t *testing.T) {
		t.Parallel()

		fromCtx, echoed := serve(t, "")
		require.NotEmpty(t, fromCtx)
		assert.Equal(t, fromCtx, echoed)
		_, err := uuid.Parse(fromCtx)
		assert.NoError(t, err)
	})

	t.Run("reuses well-formed inbound id", func(t *testing.T) {
		t.Parallel()

		fromCtx, echoed := serve(t, "trace-abc_123")
		assert.Equal(t, "trace-abc_123", fromCtx)
		assert.Equal(t, "trace-abc_123", echoed)
	})

	t.Run("replaces malformed inbound id", func(t *testing.T) {
		t.Parallel()

		fromCtx, _ := serve(t, "bad id with spaces\r\n")
		assert.NotEqual(t, "bad id with spaces\r\n", fromCtx)
		require.NotEmpty(t, fromCtx)
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := requestid.LoggerExtractor()

	attr, ok := extract(requestid.WithContext(t.Context(), "req-9"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "req-9", attr.Value.String())

	_, ok = extract(t.Context())
	assert.False(t, ok)
}
