package versioninfo

import (
  "bytes"
  "context"
  "errors"
  "fmt"
  "log/slog"
  "os/exec"
  "strings"
  "time"

  "go.opentelemetry.io/otel"
  "go.opentelemetry.io/otel/attribute"
  "go.opentelemetry.io/otel/codes"

  "github.com/ajay-dhawan/health-check-plus/internal/util"
)

var tracer = otel.Tracer("github.com/ajay-dhawan/health-check-plus/internal/versioninfo")

var ErrNoRevisions = errors.New("no revisions found")

// Revision is the most recent recorded change of a repository.
type Revision struct {
  Hash    string    `json:"hash"`
  Author  string    `json:"author,omitempty"`
  Date    time.Time `json:"date,omitempty"`
  Subject string    `json:"subject,omitempty"`
}

type RevisionLookup interface {
  Latest(ctx context.Context) (Revision, error)
}

// %x1f is the ASCII unit separator; it cannot appear in the fields we read.
const gitLogFormat = "%H%x1f%an%x1f%aI%x1f%s"

type gitRunner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// GitLog looks up the latest commit by running `git log -n 1` in Dir.
type GitLog struct {
  Dir string
  log *slog.Logger
  run gitRunner
}

func NewGitLog(dir string, log *slog.Logger) *GitLog {
  if log == nil { log = slog.Default() }
  return &GitLog{Dir: dir, log: log, run: runGit}
}

func (g *GitLog) Latest(ctx context.Context) (Revision, error) {
  ctx, span := tracer.Start(ctx, "git.log")
  defer span.End()
  span.SetAttributes(attribute.String("git.dir", g.Dir))

  out, err := g.run(ctx, g.Dir, "log", "-n", "1", "--format="+gitLogFormat)
  if err != nil {
    // git refuses to log an unborn branch
    if strings.Contains(err.Error(), "does not have any commits") {
      err = fmt.Errorf("%w: %v", ErrNoRevisions, err)
    }
    span.RecordError(err)
    span.SetStatus(codes.Error, err.Error())
    return Revision{}, err
  }
  rev, err := parseLogLine(out)
  if err != nil {
    span.RecordError(err)
    return Revision{}, err
  }
  span.SetAttributes(attribute.String("git.hash", rev.Hash))
  g.log.Info("latest commit", "hash", rev.Hash, "author", rev.Author, "subject", rev.Subject)
  return rev, nil
}

func parseLogLine(out []byte) (Revision, error) {
  line := strings.TrimSpace(string(out))
  if line == "" { return Revision{}, ErrNoRevisions }
  parts := strings.SplitN(line, "\x1f", 4)
  rev := Revision{Hash: parts[0]}
  if len(parts) > 1 { rev.Author = parts[1] }
  if len(parts) > 2 {
    if t, err := time.Parse(time.RFC3339, parts[2]); err == nil { rev.Date = t }
  }
  if len(parts) > 3 { rev.Subject = parts[3] }
  if rev.Hash == "" { return Revision{}, ErrNoRevisions }
  return rev, nil
}

func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
  full := args
  if dir != "" { full = append([]string{"-C", dir}, args...) }
  cmd := exec.CommandContext(ctx, "git", full...)
  var stderr bytes.Buffer
  cmd.Stderr = &stderr
  out, err := cmd.Output()
  if err != nil {
    if msg := strings.TrimSpace(stderr.String()); msg != "" {
      return nil, fmt.Errorf("git %s: %w: %s", args[0], err, msg)
    }
    return nil, fmt.Errorf("git %s: %w", args[0], err)
  }
  return out, nil
}

// BuildInfoLookup reports the revision the running binary was built from,
// as stamped by the Go toolchain (vcs.revision).
type BuildInfoLookup struct {
  read func() util.BuildInfo
}

func NewBuildInfoLookup() *BuildInfoLookup {
  return &BuildInfoLookup{read: func() util.BuildInfo { return util.ReadBuildInfo("") }}
}

func (b *BuildInfoLookup) Latest(ctx context.Context) (Revision, error) {
  bi := b.read()
  if bi.Revision == "" { return Revision{}, fmt.Errorf("%w: binary carries no vcs.revision", ErrNoRevisions) }
  rev := Revision{Hash: bi.Revision}
  if t, err := time.Parse(time.RFC3339Nano, bi.BuildTime); err == nil { rev.Date = t }
  return rev, nil
}

type fallback []RevisionLookup

// Fallback tries each lookup in order and returns the first success.
func Fallback(lookups ...RevisionLookup) RevisionLookup {
  return fallback(lookups)
}

func (f fallback) Latest(ctx context.Context) (Revision, error) {
  if len(f) == 0 { return Revision{}, ErrNoRevisions }
  var errs []error
  for _, l := range f {
    rev, err := l.Latest(ctx)
    if err == nil { return rev, nil }
    errs = append(errs, err)
    if ctx.Err() != nil { break }
  }
  return Revision{}, errors.Join(errs...)
}
