package upload

import (
	"fmt"
	"math/rand/v2"

	"github.com/RenatoCabral2022/binaural-studio/internal/waveform"
)

const (
	Title              = "🎧 Music Dimensional Processor"
	AcceptAudio        = "audio/*"
	ButtonIdleLabel    = "Generate Immersive Version"
	ButtonBusyLabel    = "Processing..."
	OriginalHeading    = "Original"
	MixedHeading       = "Final Mix"
	DimensionalityStep = 1
)

// Player is one rendered audio player.
type Player struct {
	Heading string
	Source  string
}

// View is the render tree of a form. Front-ends draw it; they do not
// consult State directly.
type View struct {
	Bars                []waveform.Bar
	Title               string
	Accept              string
	FileName            string
	Dimensionality      int
	Min, Max, Step      int
	DimensionalityLabel string
	ButtonLabel         string
	ButtonDisabled      bool
	Players             []Player
}

// View renders s. rnd only drives the decorative bars; nil uses the global
// source.
func (s State) View(rnd *rand.Rand) View {
	v := View{
		Bars:                waveform.Bars(waveform.BarCount, rnd),
		Title:               Title,
		Accept:              AcceptAudio,
		Dimensionality:      s.Dimensionality,
		Min:                 MinDimensionality,
		Max:                 MaxDimensionality,
		Step:                DimensionalityStep,
		DimensionalityLabel: DimensionalityLabel(s.Dimensionality),
		ButtonLabel:         ButtonIdleLabel,
		ButtonDisabled:      s.Loading,
	}
	if s.File != nil {
		v.FileName = s.File.Name
	}
	if s.Loading {
		v.ButtonLabel = ButtonBusyLabel
	}
	if s.Result.Ready() {
		v.Players = []Player{
			{Heading: OriginalHeading, Source: s.Result.Original},
			{Heading: MixedHeading, Source: s.Result.Mixed},
		}
	}
	return v
}

// DimensionalityLabel is the live slider label.
func DimensionalityLabel(n int) string {
	return fmt.Sprintf("Dimensionality (%dD → %dD): %dD", MinDimensionality, MaxDimensionality, n)
}
