package components

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harunnryd/nightowl/internal/aggregator"
	"github.com/harunnryd/nightowl/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPServer(t *testing.T) (*HTTPServerComponent, *IngressComponent) {
	t.Helper()
	cfg := testComponentConfig(t)
	ctx := context.Background()

	catalog := NewCatalogComponent(cfg)
	require.NoError(t, catalog.Init(ctx))
	ing := NewIngressComponent(&cfg.Ingress, "")
	require.NoError(t, ing.Init(ctx))

	h := NewHTTPServerComponent(nil, &cfg.Server, catalog, ing)
	require.NoError(t, h.Init(ctx))
	return h, ing
}

func TestHTTPServer_Dependencies(t *testing.T) {
	h := NewHTTPServerComponent(nil, &config.ServerConfig{Port: 8080}, nil, nil)
	assert.Equal(t, []string{"Catalog", "Ingress", "Workers"}, h.Dependencies())
	assert.Error(t, h.Init(context.Background()))
}

func TestHTTPServer_CacheStatusIsReadOnly(t *testing.T) {
	h, _ := newTestHTTPServer(t)

	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st aggregator.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Zero(t, st.Size)
	assert.Zero(t, st.Cycles)
	assert.False(t, st.Fresh)

	rec = httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPServer_MessagesReachIngress(t *testing.T) {
	h, ing := newTestHTTPServer(t)

	body := `{"user_id":"u1","text":"east village","message_id":"m1"}`
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	msg := <-ing.GetIngress().Queue()
	assert.Equal(t, "http:u1", msg.UserID)
	assert.Equal(t, "east village", msg.Text)
}

func TestHTTPServer_HealthAndMetrics(t *testing.T) {
	h, _ := newTestHTTPServer(t)

	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, Version, resp.Version)

	rec = httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nightowl_")
}
