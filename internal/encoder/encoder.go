package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mediakit/internal/progress"
	"mediakit/internal/util"
)

// Options control ffmpeg execution.
type Options struct {
	FFmpegPath string
	Verbose    bool
	Runner     util.CmdRunner
	Reporter   progress.Reporter
}

// FFmpeg muxes and transcodes local files with the ffmpeg binary.
type FFmpeg struct {
	opts Options
}

// New returns an FFmpeg. A nil Runner selects the os/exec runner.
func New(opts Options) *FFmpeg {
	if opts.Runner == nil {
		opts.Runner = util.NewDefaultRunner()
	}
	if opts.Reporter == nil {
		opts.Reporter = progress.Nop{}
	}
	return &FFmpeg{opts: opts}
}

// Mux writes spec.OutputPath. With a video input the video stream is copied
// and the audio encoded to AAC; without one the audio is transcoded to mp3.
// An incomplete output is removed on failure.
func (f *FFmpeg) Mux(ctx context.Context, spec MuxSpec) error {
	if f.opts.FFmpegPath == "" {
		return errors.New("ffmpeg path is required")
	}
	if spec.AudioPath == "" {
		return errors.New("audio input is required")
	}
	if spec.OutputPath == "" {
		return errors.New("output path is required")
	}

	var args []string
	if spec.AudioOnly() {
		args = BuildAudioArgs(spec, true)
	} else {
		args = BuildMuxArgs(spec, true)
	}

	// Ensure output dir exists
	if err := util.EnsureDir(filepath.Dir(spec.OutputPath)); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}

	ps := &ProgressState{}
	_, runErr := f.opts.Runner.Run(ctx, util.CmdSpec{
		Path:    f.opts.FFmpegPath,
		Args:    args,
		Verbose: f.opts.Verbose,
		StdoutLine: func(line string) {
			if u, ok := ps.UpdateFromLine(line, spec.JobID, spec.DurationSec, spec.AudioOnly()); ok {
				f.opts.Reporter.Update(u)
			}
		},
	})
	if runErr != nil {
		// Delete incomplete file
		_ = util.RemoveIfExists(spec.OutputPath)
		return fmt.Errorf("ffmpeg failed: %w", runErr)
	}

	fi, err := os.Stat(spec.OutputPath)
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}
	if fi.Size() == 0 {
		_ = util.RemoveIfExists(spec.OutputPath)
		return errors.New("ffmpeg produced an empty output")
	}
	return nil
}
