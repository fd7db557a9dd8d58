package handler

import "net/http"

type healthResponse struct {
	Status   string `json:"status"`
	Visitors int    `json:"visitors"`
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Visitors: h.studio.Count()})
}
