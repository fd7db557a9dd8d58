package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/RenatoCabral2022/binaural-studio/internal/diagnostics"
	"github.com/RenatoCabral2022/binaural-studio/internal/middleware"
	"github.com/RenatoCabral2022/binaural-studio/internal/model"
	"github.com/RenatoCabral2022/binaural-studio/internal/processing"
	"github.com/RenatoCabral2022/binaural-studio/internal/studio"
	"github.com/RenatoCabral2022/binaural-studio/internal/upload"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

var errBadDimensionality = errors.New("dimensionality must be an integer")

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	studio         *studio.Studio
	diag           *diagnostics.Ring
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewHandlers creates handlers serving each visitor's form from s.
func NewHandlers(s *studio.Studio, diag *diagnostics.Ring, maxUploadBytes int64, logger *zap.Logger) *Handlers {
	return &Handlers{
		studio:         s,
		diag:           diag,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// visitorForm resolves the form for the request's visitor.
func (h *Handlers) visitorForm(r *http.Request) (*upload.Form, error) {
	id := middleware.GetVisitor(r.Context())
	if id == "" {
		return nil, fmt.Errorf("request has no visitor")
	}
	return h.studio.Get(id)
}

// currentView renders the visitor's form, or a fresh one when the visitor
// has none yet. Reading never allocates a form, so page views and crawlers
// do not count against MaxVisitors.
func (h *Handlers) currentView(r *http.Request) upload.View {
	if form, ok := h.studio.Lookup(middleware.GetVisitor(r.Context())); ok {
		return form.View(nil)
	}
	return upload.NewState().View(nil)
}

// applyInputs feeds the request's optional audio file and dimensionality into
// the form. Absent inputs leave the form's current values in place.
func (h *Handlers) applyInputs(w http.ResponseWriter, r *http.Request, form *upload.Form) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return fmt.Errorf("parse multipart form: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}

	if raw := r.FormValue(processing.FieldDimensionality); raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return errBadDimensionality
		}
		form.SetDimensionality(n)
	}

	file, hdr, err := r.FormFile(processing.FieldAudio)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read audio part: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read audio part: %w", err)
	}
	form.SelectFile(upload.NewSelectedFile(hdr.Filename, hdr.Header.Get("Content-Type"), data))
	return nil
}

// inputStatus maps an applyInputs error to a status code.
func inputStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// triggerStatus maps a Trigger error to a status code.
func triggerStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, upload.ErrMissingFile):
		return http.StatusBadRequest
	case errors.Is(err, upload.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}
