package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agroweb-products/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: "0", Env: "test", AllowedOrigins: []string{"http://localhost:5174"}},
		Storage: config.StorageConfig{Backend: config.BackendMemory},
		Redis:   config.RedisConfig{CacheTTL: time.Minute},
		RateLimit: config.RateLimitConfig{
			Requests: 3,
			Window:   time.Minute,
		},
		Product: config.ProductConfig{DefaultImageURL: "https://img.example.com/default.png"},
	}
}

func TestNewServer_MemoryBackend(t *testing.T) {
	srv, err := NewServer(testConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "memory", body["backend"])
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "cache")
}

func TestNewServer_CreateAndReadBack(t *testing.T) {
	srv, err := NewServer(testConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	body := `{"name":"Aguacate Hass","category":"frutas","price":9000,"unit":"kg","stock":12,
		"origin":"Caldas","description":"Aguacate de exportación","isActive":true}`
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "https://img.example.com/default.png", created["imageUrl"])

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/"+created["productId"].(string), nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewServer_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Backend = "dataframe"

	_, err := NewServer(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestNewServer_RedisCacheAndRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mr.Port()

	srv, err := NewServer(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		srv.Handler.ServeHTTP(last, req)

		if i == 0 {
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(last.Body.Bytes(), &body))
			assert.Equal(t, "ok", body["cache"])
		}
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "3", last.Header().Get("X-RateLimit-Limit"))
}
