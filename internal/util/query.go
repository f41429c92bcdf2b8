package util

import (
  "net/http"
  "strconv"
)

// QueryLimit reads a positive integer query parameter, falling back to def
// when missing or invalid and capping at max.
func QueryLimit(r *http.Request, key string, def, max int) int {
  v := r.URL.Query().Get(key)
  if v == "" { return def }
  n, err := strconv.Atoi(v)
  if err != nil || n <= 0 { return def }
  if n > max { return max }
  return n
}
