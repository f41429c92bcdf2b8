package util

import (
  "crypto/sha256"
  "encoding/hex"
  "encoding/json"
)

// Fingerprint returns a sha256 over the JSON encoding of v.
// encoding/json sorts map keys, so equal maps hash equally.
func Fingerprint(v any) (string, error) {
  raw, err := json.Marshal(v)
  if err != nil { return "", err }
  sum := sha256.Sum256(raw)
  return hex.EncodeToString(sum[:]), nil
}

// PrettyJSON encodes v with two-space indentation.
func PrettyJSON(v any) ([]byte, error) {
  return json.MarshalIndent(v, "", "  ")
}
