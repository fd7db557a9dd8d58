package upload

import "errors"

// User-facing messages. Nothing more specific is ever shown to the user.
const (
	MissingFileMessage     = "Please upload a file first."
	ProcessingErrorMessage = "Error processing audio."
)

// ErrMissingFile is returned by Trigger when no file has been selected.
var ErrMissingFile = errors.New("no file selected")

// ErrSuperseded is the cause of a ProcessingRequestError for a request that
// was cancelled because a newer one started.
var ErrSuperseded = errors.New("superseded by a newer request")

// ErrAborted is the cause of a ProcessingRequestError for a request cancelled
// through Abort.
var ErrAborted = errors.New("request aborted")

// ProcessingRequestError wraps any failure of the processing round trip.
type ProcessingRequestError struct {
	ActionID string
	Cause    error
}

func (e *ProcessingRequestError) Error() string {
	return "processing request failed: " + e.Cause.Error()
}

func (e *ProcessingRequestError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the message a front-end should show for err,
// or "" when err is not one of the two user-visible kinds.
func UserMessage(err error) string {
	var procErr *ProcessingRequestError
	switch {
	case errors.Is(err, ErrMissingFile):
		return MissingFileMessage
	case errors.As(err, &procErr):
		return ProcessingErrorMessage
	default:
		return ""
	}
}
