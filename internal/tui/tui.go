// Package tui draws an upload form view for the terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RenatoCabral2022/binaural-studio/internal/upload"
	"github.com/RenatoCabral2022/binaural-studio/internal/waveform"
)

// Theme defines the color scheme.
type Theme struct {
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Dim     lipgloss.Color
	Warning lipgloss.Color
	Alert   lipgloss.Color
}

// DefaultTheme follows the web page's purple gradient.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#c084fc"),
	Accent:  lipgloss.Color("#ec4899"),
	Dim:     lipgloss.Color("#6e7681"),
	Warning: lipgloss.Color("#eab308"),
	Alert:   lipgloss.Color("#ef4444"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Bars    lipgloss.Style
	Button  lipgloss.Style
	Busy    lipgloss.Style
	Help    lipgloss.Style
	Warning lipgloss.Style
	Alert   lipgloss.Style
	Border  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Bars:    lipgloss.NewStyle().Foreground(t.Primary),
		Button:  lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Busy:    lipgloss.NewStyle().Foreground(t.Dim),
		Help:    lipgloss.NewStyle().Foreground(t.Dim),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		Alert:   lipgloss.NewStyle().Bold(true).Foreground(t.Alert),
		Border:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary).Padding(0, 1),
	}
}

// Banner is a one-line message shown above the form.
type Banner struct {
	Text  string
	Alert bool // red alert instead of a warning
}

// BannerFor picks the banner for a Trigger error. It is empty for nil.
func BannerFor(err error) Banner {
	switch msg := upload.UserMessage(err); msg {
	case "":
		return Banner{}
	case upload.MissingFileMessage:
		return Banner{Text: msg}
	default:
		return Banner{Text: msg, Alert: true}
	}
}

var barRunes = []rune("▁▂▃▄▅▆▇█")

// BarLine draws the decorative waveform as block characters.
func BarLine(bars []waveform.Bar) string {
	var b strings.Builder
	for _, bar := range bars {
		idx := int(bar.HeightPercent / 100 * float64(len(barRunes)-1))
		idx = min(max(idx, 0), len(barRunes)-1)
		b.WriteRune(barRunes[idx])
	}
	return b.String()
}

// Render draws v inside a rounded frame. Player sources are printed as
// given, so callers usually swap data URIs for file paths first.
func Render(s Styles, v upload.View, banner Banner) string {
	var lines []string

	lines = append(lines, s.Bars.Render(BarLine(v.Bars)))
	lines = append(lines, s.Title.Render(v.Title), "")

	if banner.Text != "" {
		if banner.Alert {
			lines = append(lines, s.Alert.Render(banner.Text), "")
		} else {
			lines = append(lines, s.Warning.Render(banner.Text), "")
		}
	}

	file := v.FileName
	if file == "" {
		file = s.Help.Render("(no file selected, " + v.Accept + ")")
	}
	lines = append(lines, s.Label.Render("File: ")+file)
	lines = append(lines, s.Label.Render(v.DimensionalityLabel))
	lines = append(lines, slider(v))
	lines = append(lines, "")

	if v.ButtonDisabled {
		lines = append(lines, s.Busy.Render("["+v.ButtonLabel+"]"))
	} else {
		lines = append(lines, s.Button.Render("["+v.ButtonLabel+"]"))
	}

	for _, p := range v.Players {
		lines = append(lines, "", s.Label.Render(p.Heading), "  "+p.Source)
	}

	return s.Border.Render(strings.Join(lines, "\n"))
}

// slider draws the dimensionality position between Min and Max.
func slider(v upload.View) string {
	steps := (v.Max - v.Min) / max(v.Step, 1)
	pos := (v.Dimensionality - v.Min) / max(v.Step, 1)
	pos = min(max(pos, 0), steps)
	track := strings.Repeat("─", pos) + "●" + strings.Repeat("─", steps-pos)
	return fmt.Sprintf("%dD %s %dD", v.Min, track, v.Max)
}
