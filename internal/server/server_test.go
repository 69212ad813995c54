package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niveshio/panorama/internal/config"
	"github.com/niveshio/panorama/internal/di"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	var key fernet.Key
	require.NoError(t, key.Generate())

	cfg := &config.Config{
		DataDir:  t.TempDir(),
		Port:     0,
		LogLevel: "error",
		DevMode:  true,

		BrokerFetchTimeout: time.Second,
		CycleTimeout:       2 * time.Second,
		PerformerCount:     5,
		DominanceThreshold: 60.0,

		RefreshIntervalOpen:   5 * time.Minute,
		RefreshIntervalClosed: time.Hour,

		FernetKey: key.Encode(),
	}

	container, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		container.RegistryDB.Close()
		container.ClientDataDB.Close()
	})

	return New(Config{Log: zerolog.Nop(), Config: cfg, Container: container})
}

func (s *Server) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestLivenessRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "panorama", response["service"])
}

func TestReadinessRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.serve(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
}

func TestSystemRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.serve(httptest.NewRequest(http.MethodGet, "/api/system", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response SystemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "running", response.Status)
	assert.Contains(t, response.Databases, "registry")
	assert.Equal(t, 3, response.ScheduledJobs)
}

func TestPortfolioRouteNoActiveBrokers(t *testing.T) {
	s := newTestServer(t)

	rec := s.serve(httptest.NewRequest(http.MethodGet, "/api/users/user-1/portfolio", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, false, response["success"])
}

func TestBrokerListRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.serve(httptest.NewRequest(http.MethodGet, "/api/users/user-1/brokers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response, "supported")
	assert.Contains(t, response, "connections")
}

func TestJobTriggerRouteWithoutJobs(t *testing.T) {
	s := newTestServer(t)

	rec := s.serve(httptest.NewRequest(http.MethodPost, "/api/system/jobs/backup", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	s := newTestServer(t)

	rec := s.serve(httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
