package versioninfo

import (
  "bytes"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "os"
)

const (
  VersionKey    = "version"
  CommitHashKey = "commit-hash"
)

var ErrNotObject = errors.New("metadata is not a JSON object")

// Metadata is the subset of the metadata document the resolver understands.
type Metadata struct {
  Version    *string
  CommitHash *string
  // CommitHashErr is set when commit-hash holds a non-string value; CommitHash is nil then.
  CommitHashErr error
}

// Document is a JSON object that keeps its keys in file order so a
// write-back does not reorder or drop fields it does not know about.
type Document struct {
  keys   []string
  fields map[string]json.RawMessage
}

func ReadDocument(path string) (*Document, error) {
  raw, err := os.ReadFile(path)
  if err != nil { return nil, err }
  return ParseDocument(raw)
}

func ParseDocument(raw []byte) (*Document, error) {
  dec := json.NewDecoder(bytes.NewReader(raw))
  tok, err := dec.Token()
  if err != nil {
    if errors.Is(err, io.EOF) { return nil, fmt.Errorf("parse metadata: %w", io.ErrUnexpectedEOF) }
    return nil, fmt.Errorf("parse metadata: %w", err)
  }
  if d, ok := tok.(json.Delim); !ok || d != '{' {
    return nil, ErrNotObject
  }

  doc := &Document{fields: map[string]json.RawMessage{}}
  for dec.More() {
    tok, err := dec.Token()
    if err != nil { return nil, fmt.Errorf("parse metadata: %w", err) }
    key, ok := tok.(string)
    if !ok { return nil, fmt.Errorf("parse metadata: unexpected token %v", tok) }
    var v json.RawMessage
    if err := dec.Decode(&v); err != nil { return nil, fmt.Errorf("parse metadata: key %q: %w", key, err) }
    doc.set(key, v)
  }
  if _, err := dec.Token(); err != nil { return nil, fmt.Errorf("parse metadata: %w", err) }
  if _, err := dec.Token(); !errors.Is(err, io.EOF) {
    return nil, errors.New("parse metadata: trailing data after object")
  }
  return doc, nil
}

func (d *Document) set(key string, v json.RawMessage) {
  if _, ok := d.fields[key]; !ok {
    d.keys = append(d.keys, key)
  }
  d.fields[key] = v
}

// Keys returns the document keys in order.
func (d *Document) Keys() []string {
  return append([]string(nil), d.keys...)
}

// String returns the string at key. A missing key or JSON null gives nil;
// any other non-string value is an error.
func (d *Document) String(key string) (*string, error) {
  raw, ok := d.fields[key]
  if !ok || string(raw) == "null" { return nil, nil }
  var s string
  if err := json.Unmarshal(raw, &s); err != nil {
    return nil, fmt.Errorf("metadata field %q: %w", key, err)
  }
  return &s, nil
}

// SetString replaces key in place, or appends it when absent.
func (d *Document) SetString(key, value string) error {
  raw, err := marshalUnescaped(value)
  if err != nil { return err }
  d.set(key, raw)
  return nil
}

// Metadata fails only when version is not a string.
func (d *Document) Metadata() (Metadata, error) {
  var m Metadata
  var err error
  if m.Version, err = d.String(VersionKey); err != nil { return Metadata{}, err }
  m.CommitHash, m.CommitHashErr = d.String(CommitHashKey)
  return m, nil
}

// Bytes renders the document with two-space indentation and a trailing newline.
func (d *Document) Bytes() ([]byte, error) {
  var compact bytes.Buffer
  compact.WriteByte('{')
  for i, k := range d.keys {
    if i > 0 { compact.WriteByte(',') }
    kb, err := marshalUnescaped(k)
    if err != nil { return nil, err }
    compact.Write(kb)
    compact.WriteByte(':')
    compact.Write(d.fields[k])
  }
  compact.WriteByte('}')

  var out bytes.Buffer
  if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil { return nil, err }
  out.WriteByte('\n')
  return out.Bytes(), nil
}

// WriteFile overwrites path in place. The write is not atomic: a crash
// part way through can leave a truncated file.
func (d *Document) WriteFile(path string) error {
  b, err := d.Bytes()
  if err != nil { return err }
  return os.WriteFile(path, b, 0o644)
}

// marshalUnescaped encodes v without turning <, > and & into \u escapes.
func marshalUnescaped(v any) ([]byte, error) {
  var buf bytes.Buffer
  enc := json.NewEncoder(&buf)
  enc.SetEscapeHTML(false)
  if err := enc.Encode(v); err != nil { return nil, err }
  return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
