// Package versioninfo resolves an application's declared version and the
// latest source-control revision into a VersionInfo.
//
// The version is read from a JSON metadata document (package.json by default)
// and the revision comes from a RevisionLookup, normally `git log -n 1`.
// A metadata file that cannot be read or parsed yields a VersionInfo with both
// fields nil rather than an error. A failed revision lookup yields the
// LookupFailedHash sentinel in CommitHash.
package versioninfo
