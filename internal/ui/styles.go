package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mediakit/internal/progress"
)

// Palette. Video and audio fetches get their own hues so a merge job shows
// which half is still in flight.
const (
	colorAccent = lipgloss.Color("#F97316")
	colorMuted  = lipgloss.Color("#9CA3AF")
	colorText   = lipgloss.Color("#E5E7EB")
	colorVideo  = lipgloss.Color("#38BDF8")
	colorAudio  = lipgloss.Color("#A78BFA")
	colorTemp   = lipgloss.Color("#94A3B8")
	colorMux    = lipgloss.Color("#F472B6")
	colorStream = lipgloss.Color("#2DD4BF")
	colorOK     = lipgloss.Color("#4ADE80")
	colorFail   = lipgloss.Color("#F87171")
)

type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	URL      lipgloss.Style
	Status   lipgloss.Style
	Saved    lipgloss.Style
	Failed   lipgloss.Style
	Faint    lipgloss.Style
	Box      lipgloss.Style
	Spinner  lipgloss.Style

	// Progress bar gradient.
	BarFrom, BarTo string

	stages map[progress.Stage]lipgloss.Style
}

func defaultStyles() Styles {
	base := lipgloss.NewStyle()
	fg := func(c lipgloss.Color) lipgloss.Style { return base.Foreground(c) }
	return Styles{
		Title:    base.Bold(true).Foreground(colorAccent),
		Subtitle: base.Faint(true),
		URL:      fg(colorMuted),
		Status:   fg(colorText),
		Saved:    fg(colorOK),
		Failed:   fg(colorFail),
		Faint:    base.Faint(true),
		Box:      base.Padding(0, 1),
		Spinner:  fg(colorAccent),
		BarFrom:  string(colorVideo),
		BarTo:    string(colorStream),
		stages: map[progress.Stage]lipgloss.Style{
			progress.StageResolving:     fg(colorMuted).Italic(true),
			progress.StageFetchingVideo: fg(colorVideo),
			progress.StageFetchingAudio: fg(colorAudio),
			progress.StageWritingTemp:   fg(colorTemp),
			progress.StageMuxing:        fg(colorMux).Bold(true),
			progress.StageStreaming:     fg(colorStream),
			progress.StageCleanup:       fg(colorTemp).Faint(true),
			progress.StageCompleted:     fg(colorOK),
			progress.StageError:         fg(colorFail).Bold(true),
		},
	}
}

// Stage returns the style for a pipeline stage, falling back to Status.
func (s Styles) Stage(st progress.Stage) lipgloss.Style {
	if sty, ok := s.stages[st]; ok {
		return sty
	}
	return s.Status
}

// stageLabel renders "fetching_video" as "fetching video".
func stageLabel(st progress.Stage) string {
	return strings.ReplaceAll(string(st), "_", " ")
}
