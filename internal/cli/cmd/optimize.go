package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediakit/internal/apperr"
	"mediakit/internal/compress"
	"mediakit/internal/util"
	"mediakit/internal/util/format"
)

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "optimize <files...>",
		Short:         "Shrink images with the iterative quality loop",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rawMode, _ := cmd.Flags().GetString("mode")
			mode, ok := compress.ParseMode(rawMode)
			if !ok {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("invalid --mode: %q (valid: lossy|lossless|custom)", rawMode)}
			}
			reduction, _ := cmd.Flags().GetFloat64("reduction")
			if err := util.EnsureDir(cfg.OutDir); err != nil {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("failed to create output dir: %w", err)}
			}

			c := compress.New(compress.ImagingEncoder{})
			var rows [][]string
			var first error
			for _, path := range args {
				row, err := optimizeFile(cmd.Context(), c, path, cfg.OutDir, reduction, mode)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %s: %v\n", path, err)
					if first == nil {
						first = err
					}
					continue
				}
				rows = append(rows, row)
			}
			if len(rows) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Output", "Original", "Compressed", "Savings", "Quality", "Attempts"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
			}
			if first != nil {
				code := ExitTranscodeError
				if apperr.KindOf(first) == apperr.KindInvalidInput {
					code = ExitCLIError
				}
				return &ExitError{Code: code, Err: first}
			}
			return nil
		},
	}
	cmd.Flags().String("mode", "lossy", "Compression type: lossy, lossless or custom")
	cmd.Flags().Float64("reduction", 50, "Target size reduction in percent, in [0, 100)")
	return cmd
}

// optimizeFile compresses path and writes <name>_optimized.<ext> into outDir.
func optimizeFile(ctx context.Context, c *compress.Compressor, path, outDir string, reduction float64, mode compress.Mode) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.InvalidInput("optimize", err.Error())
	}
	res, err := c.Compress(ctx, data, reduction, mode)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(outDir, util.SanitizeFilename(base)+"_optimized."+res.Format.Ext())
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	return []string{
		out,
		format.HumanizeBytes(res.OriginalSize),
		format.HumanizeBytes(res.CompressedSize),
		fmt.Sprintf("%s (%.2f%%)", format.Saved(res.OriginalSize, res.CompressedSize), res.Savings()),
		strconv.Itoa(res.Quality),
		strconv.Itoa(len(res.Attempts)),
	}, nil
}
