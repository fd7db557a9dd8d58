package handler

import (
	"net/http"
	"strconv"

	"github.com/RenatoCabral2022/binaural-studio/internal/diagnostics"
)

type diagnosticsResponse struct {
	Total   int                 `json:"total"`
	Entries []diagnostics.Entry `json:"entries"`
}

// Diagnostics handles GET /debug/diagnostics?limit=n.
// Entries are the developer-facing detail behind the generic user messages.
func (h *Handlers) Diagnostics(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp := diagnosticsResponse{Entries: []diagnostics.Entry{}}
	if h.diag != nil {
		resp.Total = h.diag.Total()
		if entries := h.diag.Snapshot(limit); entries != nil {
			resp.Entries = entries
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
