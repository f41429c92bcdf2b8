package versioninfo

import "strings"

const (
  // LookupFailedHash is reported as the commit hash when no revision could be looked up.
  LookupFailedHash = "Unable to get latest commit hash"
  // StaleHashMarker prefixes a persisted commit hash that could not be confirmed.
  StaleHashMarker = "Alert! This may not be the latest commit hash -->"
)

// VersionInfo is the application version paired with the latest revision.
// Either field may be nil.
type VersionInfo struct {
  Version    *string `json:"version"`
  CommitHash *string `json:"commitHash"`
}

// New builds a VersionInfo; empty strings are stored as nil.
func New(version, commitHash string) VersionInfo {
  return VersionInfo{Version: optional(version), CommitHash: optional(commitHash)}
}

// Complete reports whether both fields are set to something other than whitespace.
func (v VersionInfo) Complete() bool {
  return v.Version != nil && strings.TrimSpace(*v.Version) != "" &&
    v.CommitHash != nil && strings.TrimSpace(*v.CommitHash) != ""
}

// VersionOr returns the version, or def when unknown.
func (v VersionInfo) VersionOr(def string) string {
  if v.Version == nil { return def }
  return *v.Version
}

// CommitHashOr returns the commit hash, or def when unknown.
func (v VersionInfo) CommitHashOr(def string) string {
  if v.CommitHash == nil { return def }
  return *v.CommitHash
}

func optional(s string) *string {
  if s == "" { return nil }
  return &s
}

func deref(s *string) string {
  if s == nil { return "" }
  return *s
}
