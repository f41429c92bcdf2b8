package app

import (
  "context"
  "encoding/json"
  "io"
  "log/slog"
  "net/http"
  "net/http/httptest"
  "os"
  "path/filepath"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/ajay-dhawan/health-check-plus/internal/versioninfo"
)

func newTestApp(t *testing.T, cfg Config) *App {
  t.Helper()
  a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
  require.NoError(t, err)
  t.Cleanup(a.Close)
  return a
}

func testConfig(t *testing.T) Config {
  t.Helper()
  path := filepath.Join(t.TempDir(), "package.json")
  require.NoError(t, os.WriteFile(path, []byte(`{"version":"2.3.4"}`), 0o644))
  return Config{
    Port:           "0",
    MetadataPath:   path,
    RevisionSource: RevisionSourceBuildInfo,
  }
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
  t.Helper()
  w := httptest.NewRecorder()
  h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
  return w
}

func TestApp_HealthCheck(t *testing.T) {
  a := newTestApp(t, testConfig(t))

  w := get(t, a.Router(), "/health-check-plus/")
  require.Equal(t, http.StatusOK, w.Code)

  var info versioninfo.VersionInfo
  require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
  require.NotNil(t, info.Version)
  assert.Equal(t, "2.3.4", *info.Version)
  // test binaries carry no vcs.revision
  require.NotNil(t, info.CommitHash)
  assert.Equal(t, versioninfo.LookupFailedHash, *info.CommitHash)
}

func TestApp_Routes(t *testing.T) {
  a := newTestApp(t, testConfig(t))

  w := get(t, a.Router(), "/healthz")
  assert.Equal(t, http.StatusOK, w.Code)
  assert.Equal(t, "ok", w.Body.String())

  w = get(t, a.Router(), "/v1/version")
  assert.Equal(t, http.StatusOK, w.Code)
  assert.Contains(t, w.Body.String(), `"service":"health-check-plus"`)

  // history is not configured
  assert.Equal(t, http.StatusNotFound, get(t, a.Router(), "/v1/versions").Code)
  assert.Equal(t, http.StatusNotFound, get(t, a.Router(), "/HEALTHCHECK").Code)

  get(t, a.Router(), "/healthcheck")
  w = get(t, a.Router(), "/metrics")
  assert.Equal(t, http.StatusOK, w.Code)
  assert.Contains(t, w.Body.String(), `healthcheckplus_healthcheck_requests_total{code="200"} 1`)
  assert.Contains(t, w.Body.String(), `healthcheckplus_resolutions_total{source="metadata"} 1`)
}

func TestApp_NatsRequiresDatabase(t *testing.T) {
  cfg := testConfig(t)
  cfg.NatsURL = "nats://127.0.0.1:4222"
  _, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
  assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestNewRevisionLookup(t *testing.T) {
  log := slog.New(slog.NewTextHandler(io.Discard, nil))
  assert.IsType(t, &versioninfo.GitLog{}, NewRevisionLookup(Config{RevisionSource: RevisionSourceGit, RepoDir: "/srv"}, log))
  assert.IsType(t, &versioninfo.BuildInfoLookup{}, NewRevisionLookup(Config{RevisionSource: RevisionSourceBuildInfo}, log))
  assert.NotNil(t, NewRevisionLookup(Config{RevisionSource: RevisionSourceAuto}, log))
}
