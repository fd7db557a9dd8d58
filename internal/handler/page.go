package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/RenatoCabral2022/binaural-studio/internal/upload"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/form.html"))

type pagePlayer struct {
	Heading string
	// Sources are data URIs built by upload.NewResult from validated base64.
	Source template.URL
}

type pageData struct {
	View    upload.View
	Players []pagePlayer
	Warning string
	Alert   string
}

// renderPage draws the visitor's form. banner is the user-facing message for
// err, shown as a warning (missing file) or an alert (processing failure).
func (h *Handlers) renderPage(w http.ResponseWriter, status int, view upload.View, err error) {
	data := pageData{View: view}
	for _, p := range view.Players {
		data.Players = append(data.Players, pagePlayer{Heading: p.Heading, Source: template.URL(p.Source)})
	}
	switch msg := upload.UserMessage(err); msg {
	case upload.MissingFileMessage:
		data.Warning = msg
	case upload.ProcessingErrorMessage:
		data.Alert = msg
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("render page failed", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// Index handles GET /.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, h.currentView(r), nil)
}

// Process handles POST /process: apply the submitted file and slider, then
// trigger processing and render the result.
func (h *Handlers) Process(w http.ResponseWriter, r *http.Request) {
	form, err := h.visitorForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	if err := h.applyInputs(w, r, form); err != nil {
		h.logger.Warn("invalid form submission", zap.Error(err))
		http.Error(w, err.Error(), inputStatus(err))
		return
	}

	_, err = form.Trigger(r.Context())
	h.renderPage(w, triggerStatus(err), form.View(nil), err)
}
