package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtensionCORS(t *testing.T) {
	t.Parallel()

	handler := Chain(okHandler(), ExtensionCORS())

	t.Run("reflects chrome extension origins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
		req.Header.Set("Origin", "chrome-extension://abcdefghijklmnop")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "chrome-extension://abcdefghijklmnop",
			rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("reflects firefox extension origins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
		req.Header.Set("Origin", "moz-extension://some-uuid")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "moz-extension://some-uuid",
			rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("web origins get no CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/credentials/query", nil)
		req.Header.Set("Origin", "chrome-extension://abcdefghijklmnop")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})
}
