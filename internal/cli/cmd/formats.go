package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"mediakit/internal/downloader"
	"mediakit/internal/model"
	"mediakit/internal/pipeline"
	"mediakit/internal/util/format"
)

func newFormatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "formats <url>",
		Short:         "List available renditions and the selection get would make",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			req, err := selectionFromFlags(cmd)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			t, err := findTools(cfg)
			if err != nil {
				return err
			}
			provider := downloader.NewProvider(downloader.Options{DownloaderPath: t.Downloader, Verbose: cfg.Verbose})
			info, err := provider.Catalog(cmd.Context(), args[0])
			if err != nil {
				return &ExitError{Code: exitCodeFor(err), Err: err}
			}
			printCatalog(cmd.OutOrStdout(), info, req)
			return nil
		},
	}
	bindSelectionFlags(cmd.Flags())
	return cmd
}

// printCatalog writes the rendition table followed by the selection plan.
func printCatalog(w io.Writer, info model.MediaInfo, req model.SelectionRequest) {
	fmt.Fprintf(w, "%s\n", info.Title)
	if info.Uploader != "" || info.DurationSec > 0 {
		fmt.Fprintf(w, "%s · %s\n", info.Uploader, formatDuration(info.DurationSec))
	}

	rows := make([][]string, 0, len(info.Renditions))
	for _, r := range info.Renditions {
		rows = append(rows, []string{
			r.ID,
			string(r.Kind),
			r.Quality,
			r.Ext,
			fpsCell(r.FPS),
			codecsCell(r),
			format.Size(r.Filesize),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"ID", "Kind", "Quality", "Ext", "FPS", "Codecs", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignRight},
	))

	sel := downloader.SelectRenditions(info.Renditions, req)
	if sel.Empty() {
		fmt.Fprintf(w, "No downloadable %s rendition.\n", req.Container)
		return
	}
	p, err := pipeline.PlanFor(pipeline.Request{Info: info, Selection: sel, Container: req.Container})
	if err != nil {
		fmt.Fprintf(w, "No plan: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Selection (%s): %s\n", req.Container, selectionLabel(sel))
	fmt.Fprintf(w, "Mode:      %s\n", p.Mode)
	fmt.Fprintf(w, "Output:    %s (%s)\n", p.Filename, p.ContentType)
}

func selectionLabel(sel model.Selection) string {
	switch {
	case sel.Video != nil && sel.Audio != nil:
		return fmt.Sprintf("video %s (%s) + audio %s (%s)", sel.Video.ID, sel.Video.Quality, sel.Audio.ID, sel.Audio.Quality)
	case sel.Video != nil:
		return fmt.Sprintf("video %s (%s)", sel.Video.ID, sel.Video.Quality)
	default:
		return fmt.Sprintf("audio %s (%s)", sel.Audio.ID, sel.Audio.Quality)
	}
}

func fpsCell(fps float64) string {
	if fps <= 0 {
		return ""
	}
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

func codecsCell(r model.Rendition) string {
	switch {
	case r.VideoCodec != "" && r.AudioCodec != "":
		return r.VideoCodec + "+" + r.AudioCodec
	case r.VideoCodec != "":
		return r.VideoCodec
	default:
		return r.AudioCodec
	}
}

func formatDuration(sec float64) string {
	total := int(math.Round(sec))
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
