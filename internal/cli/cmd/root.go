package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mediakit/internal/config"
)

const (
	ExitOK             = 0
	ExitCLIError       = 1
	ExitMissingDep     = 2
	ExitDownloadError  = 3
	ExitTranscodeError = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mediakit",
		Short: "Media download, merge and image optimization toolkit",
		Long: "mediakit fetches video and audio renditions with yt-dlp, merges them with ffmpeg " +
			"into one file, and shrinks images with an iterative quality loop. Run 'mediakit serve' " +
			"for the HTTP API or use the local commands directly.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all subcommands
	pf := root.PersistentFlags()
	pf.StringP("out-dir", "o", ".", "Output directory for local commands")
	pf.BoolP("verbose", "v", false, "Show full subprocess commands/output")
	pf.String("dl-binary", "", "Path to yt-dlp or youtube-dl")
	pf.String("ffmpeg-binary", "", "Path to ffmpeg")
	pf.String("temp-dir", "", "Directory for temporary media files")
	pf.String("data-dir", "", "Directory for optimized images and metrics")
	pf.Int("jobs", 2, "Max concurrent jobs in TUI")

	root.AddCommand(newServeCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newFormatsCmd())
	root.AddCommand(newOptimizeCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	if err := config.Init(root); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	return root.ExecuteContext(ctx)
}

// loadConfig resolves flags, env and config file into a Config.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return cfg, &ExitError{Code: ExitCLIError, Err: err}
	}
	return cfg, nil
}
