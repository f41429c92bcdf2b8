package app

import (
  "fmt"
  "time"

  "github.com/spf13/viper"
)

const (
  RevisionSourceGit       = "git"
  RevisionSourceBuildInfo = "buildinfo"
  RevisionSourceAuto      = "auto"
)

type Config struct {
  Port             string
  DatabaseURL      string
  NatsURL          string
  OtelEndpoint     string
  CorsAllowOrigins string

  MetadataPath   string
  RepoDir        string
  RevisionSource string
  Reconcile      bool
  SnapshotPath   string
  AlwaysAdvance  bool
  LookupTimeout  time.Duration
}

// NewViper returns a viper instance with defaults set and every key bound
// to the upper-cased environment variable of the same name (PORT, DATABASE_URL, ...).
func NewViper() *viper.Viper {
  v := viper.New()
  v.SetDefault("port", "8080")
  v.SetDefault("database_url", "")
  v.SetDefault("nats_url", "")
  v.SetDefault("otel_exporter_otlp_endpoint", "")
  v.SetDefault("cors_allow_origins", "http://localhost:5173,http://localhost:4173")
  v.SetDefault("metadata_path", "./package.json")
  v.SetDefault("repo_dir", "")
  v.SetDefault("revision_source", RevisionSourceGit)
  v.SetDefault("reconcile", false)
  v.SetDefault("snapshot_path", "")
  v.SetDefault("always_advance", false)
  v.SetDefault("lookup_timeout", time.Duration(0))
  v.AutomaticEnv()
  return v
}

func LoadConfig(v *viper.Viper) (Config, error) {
  cfg := Config{
    Port:             v.GetString("port"),
    DatabaseURL:      v.GetString("database_url"),
    NatsURL:          v.GetString("nats_url"),
    OtelEndpoint:     v.GetString("otel_exporter_otlp_endpoint"),
    CorsAllowOrigins: v.GetString("cors_allow_origins"),
    MetadataPath:     v.GetString("metadata_path"),
    RepoDir:          v.GetString("repo_dir"),
    RevisionSource:   v.GetString("revision_source"),
    Reconcile:        v.GetBool("reconcile"),
    SnapshotPath:     v.GetString("snapshot_path"),
    AlwaysAdvance:    v.GetBool("always_advance"),
    LookupTimeout:    v.GetDuration("lookup_timeout"),
  }
  switch cfg.RevisionSource {
  case RevisionSourceGit, RevisionSourceBuildInfo, RevisionSourceAuto:
  default:
    return Config{}, fmt.Errorf("invalid REVISION_SOURCE %q (want git, buildinfo or auto)", cfg.RevisionSource)
  }
  if cfg.LookupTimeout < 0 {
    return Config{}, fmt.Errorf("invalid LOOKUP_TIMEOUT %s", cfg.LookupTimeout)
  }
  return cfg, nil
}

func LoadConfigFromEnv() (Config, error) {
  return LoadConfig(NewViper())
}
