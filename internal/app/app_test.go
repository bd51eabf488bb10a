package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	docshttp "github.com/odyssey-erp/odyssey-docs/internal/documents/http"
	"github.com/odyssey-erp/odyssey-docs/internal/mockdata"
	"github.com/odyssey-erp/odyssey-docs/internal/observability"
	"github.com/odyssey-erp/odyssey-docs/internal/view"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, StoreMock, cfg.StoreDriver)
	assert.Equal(t, time.Second, cfg.MockDelayMin)
	assert.Equal(t, 2*time.Second, cfg.MockDelayMax)
	assert.Equal(t, 5*time.Second, cfg.DashboardInterval)
	assert.Equal(t, documents.TransitionsStrict, cfg.Policy())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisOptions().Addr)
	assert.Equal(t, cfg.RedisAddr, cfg.AsynqRedis().Addr)
	assert.Equal(t, ":9091", cfg.WorkerMetricsAddr)
	assert.Equal(t, 30*time.Second, cfg.SaveTimeout)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("TRANSITION_POLICY", "free")
	t.Setenv("MOCK_DELAY_MIN", "0s")
	t.Setenv("MOCK_DELAY_MAX", "0s")
	t.Setenv("WORKER_METRICS_ADDR", "")
	t.Setenv("SAVE_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.WorkerMetricsAddr)
	assert.Equal(t, 5*time.Second, cfg.SaveTimeout)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, documents.TransitionsFree, cfg.Policy())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"driver": {"STORE_DRIVER": "sqlite"},
		"policy": {"TRANSITION_POLICY": "loose"},
		"delay":  {"MOCK_DELAY_MIN": "3s", "MOCK_DELAY_MAX": "1s"},
		"jitter": {"DASHBOARD_JITTER": "1.5"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", LogLevel: "debug"}, &buf).Debug("hello", slog.String("k", "v"))
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())
	assert.Contains(t, buf.String(), `"k":"v"`)

	buf.Reset()
	newLogger(&Config{LogFormat: "pretty"}, &buf).Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestOpenStoresMock(t *testing.T) {
	cfg := &Config{StoreDriver: StoreMock, MockDelayMin: -1, MockDelayMax: -1}
	stores, err := OpenStores(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer stores.Close()
	assert.False(t, stores.Persistent)

	doc, err := stores.Documents.Load(context.Background(), mockdata.SeedQuotationID)
	require.NoError(t, err)
	assert.Equal(t, "QUO-2026-10-0001", doc.Number)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := mockdata.New(mockdata.Options{MinDelay: -1, MaxDelay: -1})
	engine, err := view.NewEngine()
	require.NoError(t, err)
	metrics := observability.NewMetrics()
	return NewRouter(RouterParams{
		Logger: logger,
		Config: &Config{AppEnv: "development", AppRequestTimeout: 5 * time.Second, AppRateLimit: 100},
		DocumentsHandler: docshttp.NewHandler(docshttp.Config{
			Store:     provider,
			Catalog:   provider,
			Templates: engine,
			Metrics:   metrics,
			Logger:    logger,
		}),
		Metrics: metrics,
	})
}

func TestRouterHealthAndSecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouterServesAPIAndMetrics(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/"+mockdata.SeedSalesOrderID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SO-2026-10-0001")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/documents/{id}"`)
}

func TestRouterStaticAssets(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

func TestRouterRootRedirects(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/documents", rec.Header().Get("Location"))
}

func TestRegisterAssetTypes(t *testing.T) {
	registerAssetTypes(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "application/pdf", mime.TypeByExtension(".pdf"))
	assert.Contains(t, mime.TypeByExtension(".css"), "text/css")
}

func TestInTestModeRefresh(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "true")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
