package app

import (
  "context"
  "errors"
  "log/slog"
  "net/http"
  "os"
  "time"

  "github.com/go-chi/chi/v5"
  "github.com/jackc/pgx/v5/pgxpool"
  "github.com/nats-io/nats.go"
  "github.com/prometheus/client_golang/prometheus"
  "github.com/prometheus/client_golang/prometheus/collectors"
  "github.com/prometheus/client_golang/prometheus/promhttp"

  "github.com/ajay-dhawan/health-check-plus/internal/history"
  "github.com/ajay-dhawan/health-check-plus/internal/messaging"
  "github.com/ajay-dhawan/health-check-plus/internal/metrics"
  "github.com/ajay-dhawan/health-check-plus/internal/versioninfo"
  "github.com/ajay-dhawan/health-check-plus/internal/web"
)

const ServiceName = "health-check-plus"

type App struct {
  cfg Config
  log *slog.Logger
  db  *pgxpool.Pool
  nc  *nats.Conn

  shutdownTracer func(context.Context) error
  cancel         context.CancelFunc

  resolver *versioninfo.Resolver
  router   http.Handler
  done     chan struct{}
}

func NewLogger() *slog.Logger {
  return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// NewRevisionLookup picks the revision source named by cfg.RevisionSource.
func NewRevisionLookup(cfg Config, log *slog.Logger) versioninfo.RevisionLookup {
  switch cfg.RevisionSource {
  case RevisionSourceBuildInfo:
    return versioninfo.NewBuildInfoLookup()
  case RevisionSourceAuto:
    return versioninfo.Fallback(versioninfo.NewGitLog(cfg.RepoDir, log), versioninfo.NewBuildInfoLookup())
  default:
    return versioninfo.NewGitLog(cfg.RepoDir, log)
  }
}

func NewResolver(cfg Config, log *slog.Logger, m *metrics.Metrics, observers ...versioninfo.Observer) *versioninfo.Resolver {
  return versioninfo.NewResolver(NewRevisionLookup(cfg, log), log, versioninfo.Options{
    MetadataPath:  cfg.MetadataPath,
    Reconcile:     cfg.Reconcile,
    SnapshotPath:  cfg.SnapshotPath,
    LookupTimeout: cfg.LookupTimeout,
    Metrics:       m,
    Observers:     observers,
  })
}

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*App, error) {
  if logger == nil { logger = NewLogger() }
  ctx, cancel := context.WithCancel(ctx)
  a := &App{cfg: cfg, log: logger, cancel: cancel, done: make(chan struct{})}

  shutdown, err := initTracer(ctx, cfg.OtelEndpoint)
  if err != nil { cancel(); return nil, err }
  a.shutdownTracer = shutdown

  reg := prometheus.NewRegistry()
  reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
  m := metrics.New(reg)

  var observers []versioninfo.Observer
  var lister web.SnapshotLister
  if cfg.DatabaseURL != "" {
    db, err := pgxpool.New(ctx, cfg.DatabaseURL)
    if err != nil { a.Close(); return nil, err }
    a.db = db
    if err := db.Ping(ctx); err != nil { a.Close(); return nil, err }
    if err := history.EnsureSchema(ctx, db); err != nil { a.Close(); return nil, err }
    store := history.New(db, logger)
    observers = append(observers, store)
    lister = store
  }

  if cfg.NatsURL != "" {
    if a.db == nil { a.Close(); return nil, errors.New("NATS_URL requires DATABASE_URL") }
    nc, err := nats.Connect(cfg.NatsURL, nats.MaxReconnects(-1), nats.ReconnectWait(500*time.Millisecond))
    if err != nil { a.Close(); return nil, err }
    a.nc = nc
    js, err := nc.JetStream()
    if err != nil { a.Close(); return nil, err }
    if err := messaging.EnsureStreams(ctx, js); err != nil { a.Close(); return nil, err }
    go messaging.NewOutboxPublisher(a.db, js, logger).Run(ctx)
  }

  a.resolver = NewResolver(cfg, logger, m, observers...)

  r := chi.NewRouter()
  r.Use(web.CORSMiddleware(cfg.CorsAllowOrigins))
  r.Use(web.HealthCheckMiddleware(a.resolver, logger, m, web.HealthCheckOptions{AlwaysAdvance: cfg.AlwaysAdvance}))
  r.Get("/healthz", func(w http.ResponseWriter, r *http.Request){ w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
  r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

  web.NewAPI(ServiceName, lister, logger).RegisterRoutes(r)
  a.router = r

  logger.Info("app ready",
    "metadata_path", cfg.MetadataPath,
    "revision_source", cfg.RevisionSource,
    "reconcile", cfg.Reconcile,
    "history", a.db != nil,
    "publisher", a.nc != nil,
  )
  return a, nil
}

func (a *App) Router() http.Handler { return a.router }

func (a *App) Resolver() *versioninfo.Resolver { return a.resolver }

func (a *App) Done() <-chan struct{} { return a.done }

func (a *App) Close() {
  defer close(a.done)
  a.cancel()
  if a.nc != nil { a.nc.Close() }
  if a.db != nil { a.db.Close() }
  if a.shutdownTracer != nil {
    _ = a.shutdownTracer(context.Background())
  }
}
