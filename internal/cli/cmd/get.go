package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"mediakit/internal/apperr"
	"mediakit/internal/config"
	"mediakit/internal/infra"
	"mediakit/internal/model"
	"mediakit/internal/pipeline"
	"mediakit/internal/progress"
	"mediakit/internal/ui"
	"mediakit/internal/util"
	"mediakit/internal/util/format"
)

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [urls...]",
		Short: "Download media, merging separate video and audio streams",
		Long: "get fetches the selected renditions of each URL and writes one file per URL into --out-dir. " +
			"Video-only renditions are merged with the best audio rendition through ffmpeg.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE:          runGet,
	}
	bindSelectionFlags(cmd.Flags())
	cmd.Flags().Bool("no-ui", false, "Disable TUI; use plain textual output")
	return cmd
}

// bindSelectionFlags adds the rendition selection flags shared by get and formats.
func bindSelectionFlags(fs *pflag.FlagSet) {
	fs.StringP("format", "f", "mp4", "Deliverable: mp4 (video+audio) or mp3 (audio only)")
	fs.StringP("quality", "q", "", "Rendition ID for the primary track; empty selects the default")
	fs.String("audio-quality", "", "Rendition ID of the audio track merged into mp4")
}

func selectionFromFlags(cmd *cobra.Command) (model.SelectionRequest, error) {
	raw, _ := cmd.Flags().GetString("format")
	quality, _ := cmd.Flags().GetString("quality")
	audioQuality, _ := cmd.Flags().GetString("audio-quality")

	container, ok := model.ParseContainer(raw)
	if !ok {
		return model.SelectionRequest{}, fmt.Errorf("invalid --format: %q (valid: mp4|mp3)", raw)
	}
	req := model.SelectionRequest{
		Container:       container,
		ExplicitID:      strings.TrimSpace(quality),
		ExplicitAudioID: strings.TrimSpace(audioQuality),
	}
	if container == model.ContainerMP3 && req.ExplicitID == "" {
		req.ExplicitID = req.ExplicitAudioID
	}
	return req, nil
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := selectionFromFlags(cmd)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	for _, raw := range args {
		if _, _, err := util.DetectPlatform(raw); err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
	}
	if err := util.EnsureDir(cfg.OutDir); err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("failed to create output dir: %w", err)}
	}

	noUI, _ := cmd.Flags().GetBool("no-ui")
	opts := model.CLIOptions{
		OutDir:       cfg.OutDir,
		Container:    req.Container,
		Quality:      req.ExplicitID,
		AudioQuality: req.ExplicitAudioID,
		DLBinary:     cfg.DLBinary,
		FFmpegBinary: cfg.FFmpegBinary,
		TempDir:      cfg.TempDir,
		Verbose:      cfg.Verbose,
		NoUI:         noUI,
		Jobs:         cfg.Jobs,
	}

	if !opts.NoUI && isTerminal() {
		return runGetTUI(cmd, args, cfg, opts)
	}
	return runGetPlain(cmd, args, cfg, req)
}

func runGetTUI(cmd *cobra.Command, urls []string, cfg config.Config, opts model.CLIOptions) error {
	var setupErr error
	factory := func(rep progress.Reporter) (ui.JobRunner, error) {
		// The TUI owns the terminal; logs would tear the screen.
		svc, err := newPipeline(cfg, zerolog.Nop(), rep, nil)
		setupErr = err
		return svc, err
	}
	if err := ui.Run(cmd.Context(), urls, opts, factory); err != nil {
		var ee *ExitError
		if errors.As(setupErr, &ee) {
			return ee
		}
		return &ExitError{Code: ExitDownloadError, Err: err}
	}
	return nil
}

func runGetPlain(cmd *cobra.Command, urls []string, cfg config.Config, req model.SelectionRequest) error {
	logger := infra.NewConsoleLogger(cmd.ErrOrStderr(), cfg.Verbose)
	svc, err := newPipeline(cfg, logger, nil, nil)
	if err != nil {
		return err
	}

	var first *ExitError
	failed := 0
	for _, url := range urls {
		sink := &pipeline.FileSink{Dir: cfg.OutDir}
		if _, err := svc.Download(cmd.Context(), url, req, sink); err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %s: %v\n", url, err)
			if first == nil {
				first = &ExitError{Code: exitCodeFor(err), Err: err}
			}
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s (%s)\n", sink.Path, format.HumanizeBytes(sink.Bytes))
	}
	if first != nil {
		return &ExitError{Code: first.Code, Err: fmt.Errorf("%d of %d download(s) failed", failed, len(urls))}
	}
	return nil
}

// exitCodeFor maps a job failure onto a process exit code.
func exitCodeFor(err error) int {
	var me *pipeline.MergeError
	if errors.As(err, &me) && me.Stage == progress.StageMuxing {
		return ExitTranscodeError
	}
	if apperr.KindOf(err) == apperr.KindInvalidInput {
		return ExitCLIError
	}
	return ExitDownloadError
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
