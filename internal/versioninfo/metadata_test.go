package versioninfo

import (
  "os"
  "path/filepath"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
)

func TestParseDocument_KeepsKeyOrder(t *testing.T) {
  doc, err := ParseDocument([]byte(`{"name":"app","version":"1.0.0","scripts":{"test":"jest"},"commit-hash":"abc"}`))
  require.NoError(t, err)
  assert.Equal(t, []string{"name", "version", "scripts", "commit-hash"}, doc.Keys())

  m, err := doc.Metadata()
  require.NoError(t, err)
  require.NotNil(t, m.Version)
  require.NotNil(t, m.CommitHash)
  assert.Equal(t, "1.0.0", *m.Version)
  assert.Equal(t, "abc", *m.CommitHash)
}

func TestParseDocument_Errors(t *testing.T) {
  tests := []struct {
    name string
    raw  string
  }{
    {"empty", ""},
    {"whitespace", "   \n"},
    {"array", `["1.0.0"]`},
    {"string", `"1.0.0"`},
    {"null", `null`},
    {"truncated", `{"version":"1.0.0"`},
    {"trailing data", `{"version":"1.0.0"} {}`},
    {"not json", `version=1.0.0`},
  }
  for _, tt := range tests {
    t.Run(tt.name, func(t *testing.T) {
      _, err := ParseDocument([]byte(tt.raw))
      assert.Error(t, err)
    })
  }
}

func TestParseDocument_NotObject(t *testing.T) {
  _, err := ParseDocument([]byte(`[1,2]`))
  assert.ErrorIs(t, err, ErrNotObject)
}

func TestDocument_String(t *testing.T) {
  doc, err := ParseDocument([]byte(`{"version":null,"commit-hash":42}`))
  require.NoError(t, err)

  v, err := doc.String(VersionKey)
  require.NoError(t, err)
  assert.Nil(t, v)

  missing, err := doc.String("description")
  require.NoError(t, err)
  assert.Nil(t, missing)

  _, err = doc.String(CommitHashKey)
  assert.Error(t, err)

  m, err := doc.Metadata()
  require.NoError(t, err)
  assert.Nil(t, m.Version)
  assert.Nil(t, m.CommitHash)
  assert.Error(t, m.CommitHashErr)
}

func TestDocument_MetadataRejectsNonStringVersion(t *testing.T) {
  doc, err := ParseDocument([]byte(`{"version":1,"commit-hash":"abc"}`))
  require.NoError(t, err)
  _, err = doc.Metadata()
  assert.Error(t, err)
}

func TestDocument_SetStringAndBytes(t *testing.T) {
  doc, err := ParseDocument([]byte(`{"name":"app","commit-hash":"old","version":"2.0.0"}`))
  require.NoError(t, err)

  require.NoError(t, doc.SetString(CommitHashKey, StaleHashMarker+"old"))
  require.NoError(t, doc.SetString("extra", "x"))

  out, err := doc.Bytes()
  require.NoError(t, err)
  want := "{\n" +
    "  \"name\": \"app\",\n" +
    "  \"commit-hash\": \"Alert! This may not be the latest commit hash -->old\",\n" +
    "  \"version\": \"2.0.0\",\n" +
    "  \"extra\": \"x\"\n" +
    "}\n"
  assert.Equal(t, want, string(out))
}

func TestDocument_WriteFileRoundTrip(t *testing.T) {
  path := filepath.Join(t.TempDir(), "package.json")
  require.NoError(t, os.WriteFile(path, []byte(`{"version":"1.0.0","dependencies":{"a":"^1.0.0"}}`), 0o644))

  doc, err := ReadDocument(path)
  require.NoError(t, err)
  require.NoError(t, doc.SetString(CommitHashKey, "abc123"))
  require.NoError(t, doc.WriteFile(path))

  again, err := ReadDocument(path)
  require.NoError(t, err)
  assert.Equal(t, []string{"version", "dependencies", "commit-hash"}, again.Keys())
  raw, err := os.ReadFile(path)
  require.NoError(t, err)
  assert.Contains(t, string(raw), "\"dependencies\": {\n    \"a\": \"^1.0.0\"\n  }")
}

func TestReadDocument_Missing(t *testing.T) {
  _, err := ReadDocument(filepath.Join(t.TempDir(), "nope.json"))
  assert.ErrorIs(t, err, os.ErrNotExist)
}
