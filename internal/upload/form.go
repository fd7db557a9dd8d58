package upload

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RenatoCabral2022/binaural-studio/internal/diagnostics"
	"github.com/RenatoCabral2022/binaural-studio/internal/metrics"
	"github.com/RenatoCabral2022/binaural-studio/internal/model"
	"github.com/RenatoCabral2022/binaural-studio/internal/processing"
)

// Processor sends one upload to the processing service.
type Processor interface {
	Process(ctx context.Context, req processing.Request) (*model.ProcessResponse, error)
}

type Option func(*Form)

// WithTimeout bounds each request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Form) {
		f.timeout = d
	}
}

// WithDiagnostics records every failed request in r.
func WithDiagnostics(r *diagnostics.Ring) Option {
	return func(f *Form) {
		f.diag = r
	}
}

// Form is the upload form component. It owns one State and at most one
// in-flight request; a new Trigger cancels the previous one.
type Form struct {
	processor Processor
	logger    *zap.Logger
	timeout   time.Duration
	diag      *diagnostics.Ring

	mu       sync.Mutex
	state    State
	actionID string
	cancel   context.CancelCauseFunc
}

// New creates a form in the initial Idle state.
func New(p Processor, logger *zap.Logger, opts ...Option) *Form {
	f := &Form{
		processor: p,
		logger:    logger,
		state:     NewState(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns a snapshot of the state record.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// View renders the current state.
func (f *Form) View(rnd *rand.Rand) View {
	return f.State().View(rnd)
}

// SelectFile replaces the selected file. The previous result is kept.
func (f *Form) SelectFile(file SelectedFile) {
	if !file.IsAudio() {
		f.logger.Warn("selected file is not audio",
			zap.String("file", file.Name),
			zap.String("contentType", file.ContentType),
		)
	}

	f.mu.Lock()
	f.state = f.state.WithFile(file)
	f.mu.Unlock()
}

// SetDimensionality replaces the dimensionality and returns the clamped value
// that was stored.
func (f *Form) SetDimensionality(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = f.state.WithDimensionality(n)
	return f.state.Dimensionality
}

// Abort cancels the in-flight request, if any.
func (f *Form) Abort() {
	f.mu.Lock()
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel(ErrAborted)
	}
}

// Trigger sends the selected file and dimensionality to the processor.
// It returns ErrMissingFile without any network call when no file is
// selected, and a *ProcessingRequestError for any failed round trip.
func (f *Form) Trigger(ctx context.Context) (Result, error) {
	f.mu.Lock()
	if f.state.File == nil {
		f.mu.Unlock()
		f.logger.Warn("trigger without a selected file")
		metrics.ProcessTotal.WithLabelValues(metrics.OutcomeMissingFile).Inc()
		return Result{}, ErrMissingFile
	}

	// Claim the action slot (auto-cancels previous)
	if f.cancel != nil {
		f.logger.Info("cancelling stale request", zap.String("action", f.actionID))
		f.cancel(ErrSuperseded)
	}
	actionID := uuid.NewString()
	actionCtx, cancel := context.WithCancelCause(ctx)
	f.actionID = actionID
	f.cancel = cancel
	f.state = f.state.Started()
	file := *f.state.File
	dimensionality := f.state.Dimensionality
	f.mu.Unlock()

	defer cancel(nil)

	reqCtx := actionCtx
	if f.timeout > 0 {
		var stop context.CancelFunc
		reqCtx, stop = context.WithTimeout(actionCtx, f.timeout)
		defer stop()
	}

	logger := f.logger.With(zap.String("action", actionID))
	logger.Info("processing started",
		zap.String("file", file.Name),
		zap.Int("dimensionality", dimensionality),
	)

	metrics.RequestsInFlight.Inc()
	metrics.UploadBytesTotal.Add(float64(len(file.Data)))
	start := time.Now()
	resp, err := f.processor.Process(reqCtx, processing.Request{
		FileName:       file.Name,
		ContentType:    file.ContentType,
		Audio:          file.Data,
		Dimensionality: dimensionality,
	})
	metrics.RequestsInFlight.Dec()
	elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0

	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.actionID == actionID
	if current {
		f.actionID = ""
		f.cancel = nil
	}

	if err == nil && !current {
		// A newer request owns the state; drop this response.
		err = ErrSuperseded
	}

	if err != nil {
		cause, outcome := classify(err, actionCtx)
		if current {
			f.state = f.state.Failed()
		}
		f.record(logger, actionID, cause, outcome)
		metrics.ProcessTotal.WithLabelValues(outcome).Inc()
		return Result{}, &ProcessingRequestError{ActionID: actionID, Cause: cause}
	}

	result := NewResult(resp.Original, resp.Processed)
	f.state = f.state.Succeeded(result)

	metrics.ProcessTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.ProcessLatency.Observe(elapsedMs)
	logger.Info("processing complete", zap.Float64("elapsedMs", elapsedMs))
	return result, nil
}

// classify maps a failed request to the cause reported to callers and the
// outcome label.
func classify(err error, actionCtx context.Context) (error, string) {
	switch cause := context.Cause(actionCtx); {
	case errors.Is(err, ErrSuperseded), errors.Is(cause, ErrSuperseded):
		return ErrSuperseded, metrics.OutcomeCancelled
	case errors.Is(cause, ErrAborted):
		return fmt.Errorf("%w: %w", ErrAborted, err), metrics.OutcomeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return err, metrics.OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return err, metrics.OutcomeCancelled
	default:
		return err, metrics.OutcomeError
	}
}

func (f *Form) record(logger *zap.Logger, actionID string, cause error, outcome string) {
	if outcome == metrics.OutcomeCancelled {
		logger.Info("processing cancelled", zap.Error(cause))
	} else {
		logger.Error("processing failed", zap.String("outcome", outcome), zap.Error(cause))
	}

	if f.diag != nil {
		f.diag.Add(diagnostics.Entry{
			ActionID: actionID,
			Message:  outcome + ": " + cause.Error(),
		})
	}
}
