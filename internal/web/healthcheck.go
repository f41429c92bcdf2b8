package web

import (
  "context"
  "errors"
  "fmt"
  "log/slog"
  "net/http"
  "strconv"

  "github.com/ajay-dhawan/health-check-plus/internal/metrics"
  "github.com/ajay-dhawan/health-check-plus/internal/util"
  "github.com/ajay-dhawan/health-check-plus/internal/versioninfo"
)

// HealthCheckPaths lists the request paths served by HealthCheckMiddleware.
// Matching is exact and case-sensitive.
var HealthCheckPaths = []string{
  "/healthcheck",
  "/healthcheck/",
  "/HealthCheck",
  "/HealthCheck/",
  "/Health-Check",
  "/Health-Check/",
  "/health-check",
  "/health-check/",
  "/healthCheck",
  "/healthCheck/",
  "/healthCheckPlus",
  "/healthCheckPlus/",
  "/health-check-plus",
  "/health-check-plus/",
}

var healthCheckPaths = func() map[string]struct{} {
  m := make(map[string]struct{}, len(HealthCheckPaths))
  for _, p := range HealthCheckPaths { m[p] = struct{}{} }
  return m
}()

func IsHealthCheckPath(path string) bool {
  _, ok := healthCheckPaths[path]
  return ok
}

type VersionResolver interface {
  Resolve(ctx context.Context, metadataPath string, precomputed *versioninfo.VersionInfo) (versioninfo.VersionInfo, error)
}

type HealthCheckOptions struct {
  // AlwaysAdvance calls the next handler even after the health check has
  // written its response.
  AlwaysAdvance bool
}

// HealthCheckMiddleware answers the health-check paths with the resolved
// version info and passes every other request to next untouched.
// Resolution errors and panics are reported as 501 with an "error" body.
func HealthCheckMiddleware(res VersionResolver, log *slog.Logger, m *metrics.Metrics, opts HealthCheckOptions) func(http.Handler) http.Handler {
  return func(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
      handled := serveHealthCheck(w, r, res, log, m)
      if !handled || opts.AlwaysAdvance {
        next.ServeHTTP(w, r)
      }
    })
  }
}

func serveHealthCheck(w http.ResponseWriter, r *http.Request, res VersionResolver, log *slog.Logger, m *metrics.Metrics) (handled bool) {
  defer func() {
    p := recover()
    if p == nil { return }
    if p == http.ErrAbortHandler { panic(p) }
    writeHealthCheckError(w, r, log, m, fmt.Errorf("health check panicked: %v", p))
    handled = true
  }()

  if !IsHealthCheckPath(r.URL.Path) { return false }

  info, err := res.Resolve(r.Context(), "", nil)
  if err != nil {
    writeHealthCheckError(w, r, log, m, err)
    return true
  }
  writePrettyJSON(w, http.StatusOK, info)
  m.Request(strconv.Itoa(http.StatusOK))
  return true
}

func writeHealthCheckError(w http.ResponseWriter, r *http.Request, log *slog.Logger, m *metrics.Metrics, err error) {
  if err == nil { err = errors.New("unknown error") }
  log.Error("health check failed", "path", r.URL.Path, "err", err.Error())
  writePrettyJSON(w, http.StatusNotImplemented, map[string]string{"error": err.Error()})
  m.Request(strconv.Itoa(http.StatusNotImplemented))
}

func writePrettyJSON(w http.ResponseWriter, status int, v any) {
  body, err := util.PrettyJSON(v)
  if err != nil {
    http.Error(w, err.Error(), http.StatusInternalServerError)
    return
  }
  w.Header().Set("content-type", "application/json")
  w.WriteHeader(status)
  _, _ = w.Write(body)
}
