package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/RenatoCabral2022/binaural-studio/internal/middleware"
	"github.com/RenatoCabral2022/binaural-studio/internal/model"
	"github.com/RenatoCabral2022/binaural-studio/internal/studio"
	"github.com/RenatoCabral2022/binaural-studio/internal/upload"
)

func stateResponse(v upload.View) model.StateResponse {
	resp := model.StateResponse{
		FileName:       v.FileName,
		Dimensionality: v.Dimensionality,
		Loading:        v.ButtonDisabled,
		ButtonLabel:    v.ButtonLabel,
	}
	for _, p := range v.Players {
		resp.Players = append(resp.Players, model.Player{Heading: p.Heading, Source: p.Source})
	}
	return resp
}

func (h *Handlers) apiForm(w http.ResponseWriter, r *http.Request) (*upload.Form, bool) {
	form, err := h.visitorForm(r)
	if errors.Is(err, studio.ErrCapacity) {
		writeError(w, http.StatusServiceUnavailable, "max visitors reached")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return form, true
}

// GetState handles GET /api/v1/state.
func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse(h.currentView(r)))
}

// PostProcess handles POST /api/v1/process.
func (h *Handlers) PostProcess(w http.ResponseWriter, r *http.Request) {
	form, ok := h.apiForm(w, r)
	if !ok {
		return
	}

	if err := h.applyInputs(w, r, form); err != nil {
		h.logger.Warn("invalid api submission", zap.Error(err))
		writeError(w, inputStatus(err), err.Error())
		return
	}

	result, err := form.Trigger(r.Context())
	if err != nil {
		writeError(w, triggerStatus(err), upload.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, model.ProcessResult{Original: result.Original, Mixed: result.Mixed})
}

// DeleteSession handles DELETE /api/v1/session.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.studio.Delete(middleware.GetVisitor(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
