package ui

import "mediakit/internal/progress"

type runnerReadyMsg struct {
	Runner JobRunner
	Err    error
}

type jobUpdateMsg struct {
	U progress.Update
}

type jobResultMsg struct {
	R progress.Result
}

type allDoneMsg struct{}
