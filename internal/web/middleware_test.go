package web

import (
  "net/http"
  "net/http/httptest"
  "testing"

  "github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
  return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    _, _ = w.Write([]byte("next"))
  })
}

func TestCORSMiddleware(t *testing.T) {
  h := CORSMiddleware("http://localhost:5173, https://status.example.com")(okHandler())

  tests := []struct {
    name       string
    method     string
    origin     string
    preflight  bool
    wantAllow  string
    wantStatus int
    wantBody   string
  }{
    {name: "no origin", method: "GET", wantStatus: 200, wantBody: "next"},
    {name: "allowed origin", method: "GET", origin: "https://status.example.com", wantAllow: "https://status.example.com", wantStatus: 200, wantBody: "next"},
    {name: "unknown origin", method: "GET", origin: "https://evil.example.com", wantStatus: 200, wantBody: "next"},
    {name: "preflight", method: "OPTIONS", origin: "http://localhost:5173", preflight: true, wantAllow: "http://localhost:5173", wantStatus: 204},
    {name: "plain options passes through", method: "OPTIONS", origin: "http://localhost:5173", wantAllow: "http://localhost:5173", wantStatus: 200, wantBody: "next"},
  }
  for _, tt := range tests {
    t.Run(tt.name, func(t *testing.T) {
      r := httptest.NewRequest(tt.method, "/v1/version", nil)
      if tt.origin != "" { r.Header.Set("Origin", tt.origin) }
      if tt.preflight { r.Header.Set("Access-Control-Request-Method", "GET") }
      w := httptest.NewRecorder()
      h.ServeHTTP(w, r)

      assert.Equal(t, tt.wantStatus, w.Code)
      assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
      assert.Equal(t, tt.wantBody, w.Body.String())
    })
  }
}

func TestCORSMiddleware_Wildcard(t *testing.T) {
  h := CORSMiddleware("*")(okHandler())
  r := httptest.NewRequest("GET", "/health-check", nil)
  r.Header.Set("Origin", "https://anything.example.com")
  w := httptest.NewRecorder()
  h.ServeHTTP(w, r)
  assert.Equal(t, "https://anything.example.com", w.Header().Get("Access-Control-Allow-Origin"))
  assert.Equal(t, "Origin", w.Header().Get("Vary"))
}
