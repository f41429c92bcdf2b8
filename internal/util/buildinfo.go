package util

import (
  "runtime"
  "runtime/debug"
  "time"
)

// BuildInfo describes the running binary as recorded by the Go toolchain.
type BuildInfo struct {
  Service   string `json:"service"`
  Version   string `json:"version"`
  Revision  string `json:"revision"`
  BuildTime string `json:"build_time"`
  Modified  bool   `json:"modified"`
  GoVersion string `json:"go_version"`
  Platform  string `json:"platform"`
}

func ReadBuildInfo(service string) BuildInfo {
  bi, _ := debug.ReadBuildInfo()
  return buildInfoFrom(service, bi)
}

func buildInfoFrom(service string, bi *debug.BuildInfo) BuildInfo {
  out := BuildInfo{
    Service:   service,
    GoVersion: runtime.Version(),
    Platform:  runtime.GOOS + "/" + runtime.GOARCH,
  }
  if bi != nil {
    out.Version = bi.Main.Version
    for _, s := range bi.Settings {
      switch s.Key {
      case "vcs.revision":
        out.Revision = s.Value
      case "vcs.time":
        if t, err := time.Parse(time.RFC3339Nano, s.Value); err == nil {
          out.BuildTime = t.UTC().Format(time.RFC3339Nano)
        } else {
          out.BuildTime = s.Value
        }
      case "vcs.modified":
        out.Modified = s.Value == "true"
      }
    }
  }
  if out.Version == "" {
    out.Version = "(devel)"
  }
  return out
}

// ShortRevision returns the first 12 characters of the revision.
func (b BuildInfo) ShortRevision() string {
  if len(b.Revision) > 12 { return b.Revision[:12] }
  return b.Revision
}
