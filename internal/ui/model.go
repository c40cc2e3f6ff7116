package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"mediakit/internal/model"
	"mediakit/internal/pipeline"
	"mediakit/internal/progress"
	"mediakit/internal/util/format"
)

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	factory  RunnerFactory
	runner   JobRunner
	ready    bool
	setupErr error

	// Jobs
	urls     []string
	opts     model.CLIOptions
	jobOrder []string
	jobs     map[string]*jobState
	workers  int
	running  int
	next     int // next index in urls to start

	// UI
	width, height int
	styles        Styles

	// Internal event channel used by reporter to feed tea messages
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, urls []string, opts model.CLIOptions, factory RunnerFactory) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	jobs := make(map[string]*jobState, len(urls))
	order := make([]string, 0, len(urls))
	for i, u := range urls {
		id := toID(i)
		js := newJobState(id, u, sty)
		jobs[id] = &js
		order = append(order, id)
	}

	workers := opts.Jobs
	if workers <= 0 {
		workers = 2
	}

	return Model{
		ctx:      c,
		cancel:   cancel,
		factory:  factory,
		urls:     urls,
		opts:     opts,
		jobs:     jobs,
		jobOrder: order,
		workers:  workers,
		styles:   sty,
		eventCh:  make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		cmds = append(cmds, m.jobs[id].spinner.Tick)
	}
	cmds = append(cmds, m.listenEventsCmd(), m.setupCmd())
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case runnerReadyMsg:
		m.ready = true
		m.setupErr = msg.Err
		if msg.Err != nil {
			for _, id := range m.jobOrder {
				js := m.jobs[id]
				js.stage = progress.StageError
				js.status = fmt.Sprintf("Dependency error: %v", msg.Err)
				js.err = msg.Err
				js.done = true
			}
			return m, tea.Quit
		}
		m.runner = msg.Runner
		if m.allDone() {
			return m, tea.Quit
		}
		return m, m.startJobs()

	case jobUpdateMsg:
		u := msg.U
		if js, ok := m.jobs[u.JobID]; ok && !js.done {
			js.stage = u.Stage
			js.percent = u.Percent
			js.status = u.Message
			if u.Bytes != nil {
				js.bytes = *u.Bytes
			}
		}
	case jobResultMsg:
		r := msg.R
		if js, ok := m.jobs[r.JobID]; ok && !js.done {
			js.done = true
			js.err = r.Err
			if r.Err == nil {
				js.stage = progress.StageCompleted
				js.percent = 100
				js.bytes = r.Bytes
				js.outputPath = filepath.Join(m.opts.OutDir, filepath.Base(r.OutputPath))
				js.status = fmt.Sprintf("Saved: %s (%s)", filepath.Base(r.OutputPath), format.HumanizeBytes(r.Bytes))
			} else {
				js.stage = progress.StageError
				js.status = r.Err.Error()
				js.percent = -1
			}
			m.running--
			if m.allDone() {
				return m, tea.Quit
			}
			return m, tea.Batch(m.startJobs(), m.listenEventsCmd())
		}
	case allDoneMsg:
		return m, tea.Quit
	}

	// Update per-job components (spinner)
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	switch msg.(type) {
	case jobUpdateMsg, jobResultMsg:
		// Keep listening for events
		cmds = append(cmds, m.listenEventsCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	summary := m.viewSummary()
	if summary != "" {
		return m.viewHeader() + "\n\n" + m.viewJobs() + "\n" + summary
	}
	return m.viewHeader() + "\n\n" + m.viewJobs()
}

func (m Model) allDone() bool {
	return m.next >= len(m.urls) && m.running == 0
}

// startJobs fills the free worker slots. Scheduling state lives on the model
// so it must be called from Update.
func (m *Model) startJobs() tea.Cmd {
	var cmds []tea.Cmd
	for m.running < m.workers && m.next < len(m.urls) {
		jobID := m.jobOrder[m.next]
		url := m.urls[m.next]
		m.next++
		m.running++
		if js := m.jobs[jobID]; js != nil {
			js.started = true
			js.status = "Starting"
		}
		cmds = append(cmds, m.runJobCmd(jobID, url))
	}
	return tea.Batch(cmds...)
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return allDoneMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func (m Model) setupCmd() tea.Cmd {
	return func() tea.Msg {
		if m.factory == nil {
			return runnerReadyMsg{Err: fmt.Errorf("no job runner configured")}
		}
		r, err := m.factory(teaReporter{ch: m.eventCh})
		return runnerReadyMsg{Runner: r, Err: err}
	}
}

// runJobCmd runs one job. Its outcome arrives through the reporter, which
// the runner always notifies with a result.
func (m Model) runJobCmd(jobID, url string) tea.Cmd {
	runner := m.runner
	req := model.SelectionRequest{
		Container:       m.opts.Container,
		ExplicitID:      m.opts.Quality,
		ExplicitAudioID: m.opts.AudioQuality,
	}
	sink := &pipeline.FileSink{Dir: m.opts.OutDir}
	return func() tea.Msg {
		_, _ = runner.DownloadJob(m.ctx, jobID, url, req, sink)
		return nil
	}
}

type teaReporter struct {
	ch chan tea.Msg
}

func (r teaReporter) Update(u progress.Update) {
	// Block on completion messages to ensure they're delivered
	if u.Stage == progress.StageCompleted || u.Stage == progress.StageError {
		r.ch <- jobUpdateMsg{U: u}
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}

func (r teaReporter) Log(progress.Log) {}

func (r teaReporter) Result(res progress.Result) {
	// Always block on Result messages - they're critical
	r.ch <- jobResultMsg{R: res}
}

func toID(i int) string {
	return "job-" + strconv.Itoa(i)
}
