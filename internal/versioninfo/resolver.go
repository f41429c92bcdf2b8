package versioninfo

import (
  "context"
  "errors"
  "fmt"
  "log/slog"
  "os"
  "strings"
  "sync"
  "time"

  "go.opentelemetry.io/otel/attribute"
  "go.opentelemetry.io/otel/codes"

  "github.com/ajay-dhawan/health-check-plus/internal/metrics"
  "github.com/ajay-dhawan/health-check-plus/internal/util"
)

const DefaultMetadataPath = "./package.json"

type Source string

const (
  SourcePrecomputed Source = "precomputed"
  SourceMetadata    Source = "metadata"
  SourceUnreadable  Source = "unreadable"
)

// Resolution describes one Resolve call that read the metadata document.
type Resolution struct {
  Info         VersionInfo
  Source       Source
  MetadataPath string
  // StoredHash is the commit-hash found in the metadata document, if any.
  StoredHash   *string
  LookupFailed bool
  // Changed is set when a stored hash was present and a successful lookup disagreed with it.
  Changed      bool
}

// Observer is notified after every resolution that read the metadata
// document. Precomputed values are not reported.
type Observer interface {
  ObserveResolution(ctx context.Context, res Resolution) error
}

type Options struct {
  // MetadataPath is used when Resolve is called with an empty path.
  MetadataPath string
  // Reconcile writes the resolved commit hash back into the metadata document.
  Reconcile bool
  // SnapshotPath, when set, receives the resolved VersionInfo as JSON.
  SnapshotPath string
  // LookupTimeout bounds the revision lookup. Zero waits indefinitely.
  LookupTimeout time.Duration
  Metrics       *metrics.Metrics
  Observers     []Observer
}

type Resolver struct {
  lookup RevisionLookup
  log    *slog.Logger
  opts   Options

  // serializes read-modify-write of the metadata and snapshot files
  mu sync.Mutex
}

func NewResolver(lookup RevisionLookup, log *slog.Logger, opts Options) *Resolver {
  if log == nil { log = slog.Default() }
  return &Resolver{lookup: lookup, log: log, opts: opts}
}

// Resolve returns the version info for metadataPath.
//
// A precomputed value with both fields set is returned as is without any I/O.
// Otherwise the metadata document is read (an unreadable document yields an
// empty VersionInfo and a nil error) and the latest revision is looked up.
// The returned error is non-nil only when a configured write-back or snapshot
// write fails; the resolved value is still returned alongside it.
func (r *Resolver) Resolve(ctx context.Context, metadataPath string, precomputed *VersionInfo) (VersionInfo, error) {
  start := time.Now()
  ctx, span := tracer.Start(ctx, "versioninfo.Resolve")
  defer span.End()

  if precomputed != nil && precomputed.Complete() {
    span.SetAttributes(attribute.String("versioninfo.source", string(SourcePrecomputed)))
    r.opts.Metrics.Resolution(string(SourcePrecomputed), time.Since(start))
    return *precomputed, nil
  }

  if metadataPath == "" { metadataPath = r.opts.MetadataPath }
  if metadataPath == "" { metadataPath = DefaultMetadataPath }
  span.SetAttributes(attribute.String("versioninfo.metadata_path", metadataPath))

  if r.opts.Reconcile || r.opts.SnapshotPath != "" {
    r.mu.Lock()
    defer r.mu.Unlock()
  }

  doc, meta, err := readMetadata(metadataPath)
  if err == nil && meta.CommitHashErr != nil {
    r.log.Warn("ignoring stored commit hash", "path", metadataPath, "err", meta.CommitHashErr.Error())
  }
  if err != nil {
    r.log.Warn("metadata unreadable", "path", metadataPath, "err", err.Error())
    r.opts.Metrics.MetadataFailed()
    span.SetAttributes(attribute.String("versioninfo.source", string(SourceUnreadable)))
    res := Resolution{Source: SourceUnreadable, MetadataPath: metadataPath}
    r.finish(ctx, start, res)
    return res.Info, nil
  }
  span.SetAttributes(attribute.String("versioninfo.source", string(SourceMetadata)))

  res := Resolution{Source: SourceMetadata, MetadataPath: metadataPath, StoredHash: meta.CommitHash}
  commitHash, ok := r.latestHash(ctx)
  res.LookupFailed = !ok
  stored := deref(meta.CommitHash)
  res.Changed = ok && strings.TrimSpace(stored) != "" && stored != commitHash

  var writeErr error
  if r.opts.Reconcile {
    commitHash, writeErr = r.reconcile(doc, metadataPath, stored, commitHash, res.LookupFailed)
  }
  res.Info = New(deref(meta.Version), commitHash)

  if r.opts.SnapshotPath != "" {
    if err := r.writeSnapshot(res.Info); err != nil {
      writeErr = errors.Join(writeErr, err)
    }
  }

  if writeErr != nil {
    span.RecordError(writeErr)
    span.SetStatus(codes.Error, writeErr.Error())
  }
  r.finish(ctx, start, res)
  return res.Info, writeErr
}

func readMetadata(path string) (*Document, Metadata, error) {
  doc, err := ReadDocument(path)
  if err != nil { return nil, Metadata{}, err }
  meta, err := doc.Metadata()
  if err != nil { return nil, Metadata{}, err }
  return doc, meta, nil
}

// latestHash returns the latest revision hash, or LookupFailedHash and false.
func (r *Resolver) latestHash(ctx context.Context) (string, bool) {
  if r.opts.LookupTimeout > 0 {
    var cancel context.CancelFunc
    ctx, cancel = context.WithTimeout(ctx, r.opts.LookupTimeout)
    defer cancel()
  }

  var rev Revision
  err := ErrNoRevisions
  if r.lookup != nil {
    rev, err = r.lookup.Latest(ctx)
    if err == nil && rev.Hash == "" { err = ErrNoRevisions }
  }
  if err != nil {
    r.log.Error("revision lookup failed", "err", err.Error())
    r.opts.Metrics.LookupFailed()
    return LookupFailedHash, false
  }
  return rev.Hash, true
}

// reconcile stores resolved under commit-hash and writes the document back.
// When the lookup failed, a differing stored hash is kept but marked stale.
func (r *Resolver) reconcile(doc *Document, path, stored, resolved string, lookupFailed bool) (string, error) {
  if lookupFailed && strings.TrimSpace(stored) != "" && stored != resolved {
    resolved = markStale(stored)
    r.log.Warn("keeping stored commit hash", "path", path, "stored", stored)
  } else if stored != "" && stored != resolved {
    r.log.Info("commit hash updated", "path", path, "from", stored, "to", resolved)
  }

  if err := doc.SetString(CommitHashKey, resolved); err != nil { return resolved, err }
  err := doc.WriteFile(path)
  r.opts.Metrics.Write("metadata", err)
  if err != nil { return resolved, fmt.Errorf("write metadata %s: %w", path, err) }
  return resolved, nil
}

func markStale(hash string) string {
  if strings.HasPrefix(hash, StaleHashMarker) { return hash }
  return StaleHashMarker + hash
}

func (r *Resolver) writeSnapshot(info VersionInfo) error {
  b, err := util.PrettyJSON(info)
  if err == nil {
    err = os.WriteFile(r.opts.SnapshotPath, b, 0o644)
  }
  r.opts.Metrics.Write("snapshot", err)
  if err != nil { return fmt.Errorf("write snapshot %s: %w", r.opts.SnapshotPath, err) }
  return nil
}

func (r *Resolver) finish(ctx context.Context, start time.Time, res Resolution) {
  r.opts.Metrics.Resolution(string(res.Source), time.Since(start))
  for _, o := range r.opts.Observers {
    if err := o.ObserveResolution(ctx, res); err != nil {
      r.log.Warn("resolution observer failed", "source", string(res.Source), "err", err.Error())
    }
  }
}

// GetVersionInfo resolves with git in the working directory and no
// write-back. Read and lookup failures are folded into the result.
func GetVersionInfo(ctx context.Context, metadataPath string, precomputed *VersionInfo) VersionInfo {
  info, _ := NewResolver(NewGitLog("", slog.Default()), slog.Default(), Options{}).Resolve(ctx, metadataPath, precomputed)
  return info
}
