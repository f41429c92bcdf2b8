package web

import (
  "net/http"
  "strings"
)

// CORSMiddleware allows browser dashboards on the listed origins ("*" for
// any) to poll the read-only endpoints. Preflight requests end here.
func CORSMiddleware(corsAllowOrigins string) func(http.Handler) http.Handler {
  allowed := map[string]bool{}
  for _, o := range strings.Split(corsAllowOrigins, ",") {
    if t := strings.TrimSpace(o); t != "" { allowed[t] = true }
  }
  allowAny := allowed["*"]

  return func(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
      origin := r.Header.Get("Origin")
      if origin == "" {
        next.ServeHTTP(w, r)
        return
      }

      h := w.Header()
      h.Add("Vary", "Origin")
      if allowAny || allowed[origin] {
        h.Set("Access-Control-Allow-Origin", origin)
      }

      if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
        h.Set("Access-Control-Allow-Methods", "GET,HEAD,OPTIONS")
        h.Set("Access-Control-Allow-Headers", "Content-Type")
        h.Set("Access-Control-Max-Age", "600")
        w.WriteHeader(http.StatusNoContent)
        return
      }

      next.ServeHTTP(w, r)
    })
  }
}
