package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsRouter(t *testing.T, enabled bool, origins string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	if mw := newCORSMiddleware(enabled, origins, slog.New(slog.NewTextHandler(io.Discard, nil))); mw != nil {
		router.Use(mw)
	}
	router.GET("/v1/audit-logs", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/v1/compliance/export", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestNewCORSMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.Nil(t, newCORSMiddleware(false, "https://console.example.org", logger))
	assert.Nil(t, newCORSMiddleware(true, "", logger))
	assert.Nil(t, newCORSMiddleware(true, "*", logger))
	assert.NotNil(t, newCORSMiddleware(true, " https://console.example.org , https://support.example.org ", logger))
}

func TestSplitOrigins(t *testing.T) {
	origins, rejected := splitOrigins(" https://console.example.org/ ,,http://localhost:3000, * ,ftp://files.example.org,https://console.example.org/admin")

	assert.Equal(t, []string{"https://console.example.org", "http://localhost:3000"}, origins)
	assert.Equal(t, []string{"*", "ftp://files.example.org", "https://console.example.org/admin"}, rejected)

	origins, rejected = splitOrigins("")
	assert.Empty(t, origins)
	assert.Empty(t, rejected)
}

func TestCORS_AllowedOrigin(t *testing.T) {
	router := corsRouter(t, true, "https://console.example.org")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/audit-logs", nil)
	req.Header.Set("Origin", "https://console.example.org")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://console.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	router := corsRouter(t, true, "https://console.example.org")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/audit-logs", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Disabled(t *testing.T) {
	router := corsRouter(t, false, "https://console.example.org")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/audit-logs", nil)
	req.Header.Set("Origin", "https://console.example.org")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	router := corsRouter(t, true, "https://console.example.org")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/compliance/export", nil)
	req.Header.Set("Origin", "https://console.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://console.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}
