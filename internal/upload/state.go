package upload

import (
	"encoding/base64"
	"errors"
	"strings"
)

const (
	MinDimensionality     = 2
	MaxDimensionality     = 16
	DefaultDimensionality = 4
)

// audioSourcePrefix turns a base64 payload into a playable data URI.
const audioSourcePrefix = "data:audio/mp3;base64,"

// Result holds the two playable sources. Both are empty or both are set.
type Result struct {
	Original string
	Mixed    string
}

// NewResult builds a Result from the two base64 payloads.
func NewResult(original, processed string) Result {
	return Result{
		Original: audioSourcePrefix + original,
		Mixed:    audioSourcePrefix + processed,
	}
}

// Ready reports whether the result can be played.
func (r Result) Ready() bool {
	return r.Original != ""
}

var errNotAudioSource = errors.New("not an audio data URI")

// DecodeSource returns the raw audio bytes behind a data URI source.
func DecodeSource(source string) ([]byte, error) {
	payload, ok := strings.CutPrefix(source, audioSourcePrefix)
	if !ok {
		return nil, errNotAudioSource
	}
	return base64.StdEncoding.DecodeString(payload)
}

// State is the form's state record. Transitions return a new value and never
// modify the receiver.
type State struct {
	File           *SelectedFile
	Dimensionality int
	Loading        bool
	Result         Result
}

// NewState returns the initial Idle state.
func NewState() State {
	return State{Dimensionality: DefaultDimensionality}
}

// ClampDimensionality bounds n to [MinDimensionality, MaxDimensionality].
func ClampDimensionality(n int) int {
	switch {
	case n < MinDimensionality:
		return MinDimensionality
	case n > MaxDimensionality:
		return MaxDimensionality
	default:
		return n
	}
}

func (s State) WithFile(f SelectedFile) State {
	s.File = &f
	return s
}

func (s State) WithDimensionality(n int) State {
	s.Dimensionality = ClampDimensionality(n)
	return s
}

// Started enters Loading.
func (s State) Started() State {
	s.Loading = true
	return s
}

// Succeeded leaves Loading and replaces the result wholesale.
func (s State) Succeeded(r Result) State {
	s.Loading = false
	s.Result = r
	return s
}

// Failed leaves Loading and keeps the previous result.
func (s State) Failed() State {
	s.Loading = false
	return s
}
