package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"mediakit/internal/model"
	"mediakit/internal/pipeline"
	"mediakit/internal/progress"
)

// JobRunner runs one download job into sink. *pipeline.Service implements it.
type JobRunner interface {
	DownloadJob(ctx context.Context, jobID, url string, req model.SelectionRequest, sink pipeline.Sink) (pipeline.Result, error)
}

// RunnerFactory builds the JobRunner once the program is up. Progress events
// must be sent to rep. Dependency lookups belong here so their failure is
// shown in the UI.
type RunnerFactory func(rep progress.Reporter) (JobRunner, error)

// Run launches the TUI and downloads urls into opts.OutDir, at most opts.Jobs
// at a time.
func Run(ctx context.Context, urls []string, opts model.CLIOptions, factory RunnerFactory) error {
	m := NewModel(ctx, urls, opts, factory)
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.failures()
	}
	return nil
}

// failures summarizes failed jobs into one error.
func (m Model) failures() error {
	var failed []string
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		if js != nil && js.err != nil {
			failed = append(failed, fmt.Sprintf("- %s: %s", js.url, js.err.Error()))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d job(s) failed:\n%s", len(failed), strings.Join(failed, "\n"))
	}
	return nil
}
