package web

import (
  "net/http"

  "github.com/ajay-dhawan/health-check-plus/internal/util"
)

func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) {
  writeJSON(w, 200, util.ReadBuildInfo(a.service))
}
