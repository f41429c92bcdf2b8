package web

import (
  "context"
  "encoding/json"
  "log/slog"
  "net/http"

  "github.com/go-chi/chi/v5"

  "github.com/ajay-dhawan/health-check-plus/internal/history"
  "github.com/ajay-dhawan/health-check-plus/internal/util"
)

type SnapshotLister interface {
  Recent(ctx context.Context, limit int) ([]history.Snapshot, error)
}

type API struct {
  service string
  history SnapshotLister
  log     *slog.Logger
}

// NewAPI builds the JSON API. hist may be nil when no history store is configured.
func NewAPI(service string, hist SnapshotLister, log *slog.Logger) *API {
  return &API{service: service, history: hist, log: log}
}

func (a *API) RegisterRoutes(r chi.Router) {
  r.Get("/v1/version", a.handleVersion)
  if a.history != nil {
    r.Get("/v1/versions", a.handleListSnapshots)
  }
}

func writeJSON(w http.ResponseWriter, status int, v any) {
  w.Header().Set("content-type", "application/json")
  w.WriteHeader(status)
  _ = json.NewEncoder(w).Encode(v)
}

func (a *API) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
  limit := util.QueryLimit(r, "limit", 50, 500)
  rows, err := a.history.Recent(r.Context(), limit)
  if err != nil {
    a.log.Error("list snapshots failed", "err", err.Error())
    http.Error(w, err.Error(), 500)
    return
  }
  writeJSON(w, 200, map[string]any{"versions": rows})
}
