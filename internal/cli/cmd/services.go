package cmd

import (
	"fmt"

	"github.com/rs/zerolog"

	"mediakit/internal/config"
	"mediakit/internal/downloader"
	"mediakit/internal/encoder"
	"mediakit/internal/metrics"
	"mediakit/internal/pipeline"
	"mediakit/internal/progress"
	"mediakit/internal/util"
	"mediakit/internal/util/deps"
)

// tools holds the resolved external binaries.
type tools struct {
	Downloader string
	FFmpeg     string
}

func findTools(cfg config.Config) (tools, error) {
	dl, err := deps.FindDownloader(cfg.DLBinary)
	if err != nil {
		return tools{}, &ExitError{Code: ExitMissingDep, Err: err}
	}
	ff, err := deps.FindFFmpeg(cfg.FFmpegBinary)
	if err != nil {
		return tools{}, &ExitError{Code: ExitMissingDep, Err: err}
	}
	return tools{Downloader: dl, FFmpeg: ff}, nil
}

// newPipeline resolves the external tools and assembles the merge pipeline.
// rep and sink may be nil.
func newPipeline(cfg config.Config, logger zerolog.Logger, rep progress.Reporter, sink metrics.Sink) (*pipeline.Service, error) {
	t, err := findTools(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.TempDir != "" {
		if err := util.EnsureDir(cfg.TempDir); err != nil {
			return nil, &ExitError{Code: ExitCLIError, Err: fmt.Errorf("failed to create temp dir: %w", err)}
		}
	}
	return pipeline.NewService(
		pipeline.WithSource(downloader.NewProvider(downloader.Options{
			DownloaderPath: t.Downloader,
			Verbose:        cfg.Verbose,
		})),
		pipeline.WithMuxer(encoder.New(encoder.Options{
			FFmpegPath: t.FFmpeg,
			Verbose:    cfg.Verbose,
			Reporter:   rep,
		})),
		pipeline.WithReporter(rep),
		pipeline.WithMetrics(sink),
		pipeline.WithLogger(logger),
		pipeline.WithTempDir(cfg.TempDir),
		pipeline.WithStreamStartTimeout(cfg.StreamStartTimeout),
	), nil
}
