package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (yt-dlp/youtube-dl, ffmpeg) and directories",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			t, err := findTools(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Downloader: %s\n", t.Downloader)
			fmt.Fprintf(out, "FFmpeg:     %s\n", t.FFmpeg)
			fmt.Fprintf(out, "Temp dir:   %s\n", cfg.TempDir)
			fmt.Fprintf(out, "Data dir:   %s\n", cfg.DataDir)
			return nil
		},
	}
}
