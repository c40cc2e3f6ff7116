package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"mediakit/internal/apperr"
	"mediakit/internal/model"
	"mediakit/internal/progress"
	"mediakit/internal/util"
)

// Options controls downloader behavior.
type Options struct {
	DownloaderPath string // Path to yt-dlp or youtube-dl
	Verbose        bool
	Runner         util.CmdRunner
}

// StreamOptions attributes progress of an opened stream to a job.
type StreamOptions struct {
	JobID    string
	Stage    progress.Stage
	Reporter progress.Reporter
}

// Provider catalogs source URLs and opens rendition byte streams through yt-dlp.
type Provider struct {
	opts Options
}

// NewProvider returns a Provider. A nil Runner selects the os/exec runner.
func NewProvider(opts Options) *Provider {
	if opts.Runner == nil {
		opts.Runner = util.NewDefaultRunner()
	}
	return &Provider{opts: opts}
}

// Catalog fetches metadata and the list of renditions for url.
func (p *Provider) Catalog(ctx context.Context, url string) (model.MediaInfo, error) {
	platform, _, err := util.DetectPlatform(url)
	if err != nil {
		return model.MediaInfo{}, apperr.InvalidInput("catalog", err.Error())
	}
	if p.opts.DownloaderPath == "" {
		return model.MediaInfo{}, apperr.Upstream("catalog", "downloader unavailable", errors.New("downloader path is required"))
	}

	info, err := p.fetchMetadata(ctx, url)
	if err != nil {
		return model.MediaInfo{}, apperr.Upstream("catalog", "could not fetch media info", err)
	}

	mi := model.MediaInfo{
		ID:          info.ID,
		Title:       info.Title,
		Thumbnail:   info.Thumbnail,
		Uploader:    info.Uploader,
		DurationSec: info.Duration,
		SourceURL:   url,
		Platform:    string(platform),
		Renditions:  make([]model.Rendition, 0, len(info.Formats)),
	}
	for _, f := range info.Formats {
		if r, ok := toRendition(f); ok {
			mi.Renditions = append(mi.Renditions, r)
		}
	}
	return mi, nil
}

// Open starts streaming rendition r of url. The returned reader yields the raw
// media bytes; Close stops the download if it is still running.
func (p *Provider) Open(ctx context.Context, url string, r model.Rendition, so StreamOptions) (io.ReadCloser, error) {
	if r.ID == "" {
		return nil, apperr.InvalidInput("open", "rendition id is required")
	}
	if p.opts.DownloaderPath == "" {
		return nil, apperr.Upstream("open", "downloader unavailable", errors.New("downloader path is required"))
	}
	args := []string{
		"-f", r.ID,
		"-o", "-",
		"--no-part",
		"--no-playlist",
		"--quiet",
		"--progress",
		"--newline",
		url,
	}
	spec := util.CmdSpec{
		Path:    p.opts.DownloaderPath,
		Args:    args,
		Verbose: p.opts.Verbose,
	}
	if so.Reporter != nil {
		spec.StderrLine = func(line string) {
			if u, ok := ParseProgress(line, so.JobID, so.Stage); ok {
				so.Reporter.Update(u)
			}
		}
	}
	rc, err := p.opts.Runner.Start(ctx, spec)
	if err != nil {
		return nil, apperr.Upstream("open", "could not start download", err)
	}
	return rc, nil
}

func (p *Provider) fetchMetadata(ctx context.Context, url string) (YTDLPInfo, error) {
	args := []string{
		"--dump-json",
		"--no-playlist",
		"--no-warnings",
		url,
	}
	res, runErr := p.opts.Runner.Run(ctx, util.CmdSpec{
		Path:          p.opts.DownloaderPath,
		Args:          args,
		Verbose:       p.opts.Verbose,
		CaptureStdout: true,
	})
	if runErr != nil && len(res.Stdout) == 0 {
		return YTDLPInfo{}, fmt.Errorf("metadata fetch failed: %w", runErr)
	}
	return parseInfo(res.Stdout)
}

// parseInfo decodes yt-dlp JSON output. When stdout carries several JSON
// objects (one per line) the last one with an ID wins.
func parseInfo(stdout []byte) (YTDLPInfo, error) {
	data := strings.TrimSpace(string(stdout))
	if data == "" {
		return YTDLPInfo{}, errors.New("empty metadata output")
	}
	var info YTDLPInfo
	err := json.Unmarshal([]byte(data), &info)
	if err == nil {
		if info.ID == "" {
			return YTDLPInfo{}, errors.New("parse metadata JSON: missing id")
		}
		return info, nil
	}
	// Try last JSON line (yt-dlp may print multiple objects).
	lines := strings.Split(data, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var tmp YTDLPInfo
		if json.Unmarshal([]byte(line), &tmp) == nil && tmp.ID != "" {
			return tmp, nil
		}
	}
	return YTDLPInfo{}, fmt.Errorf("parse metadata JSON: %w", err)
}

// toRendition converts a yt-dlp format entry. Entries without any media
// track (storyboards, mhtml) are skipped.
func toRendition(f YTDLPFormat) (model.Rendition, bool) {
	if f.FormatID == "" || strings.EqualFold(f.Ext, "mhtml") {
		return model.Rendition{}, false
	}
	hasVideo := f.VCodec != "none" && (f.VCodec != "" || f.Height > 0)
	hasAudio := f.ACodec != "none" && (f.ACodec != "" || f.ABR > 0)

	r := model.Rendition{
		ID:               f.FormatID,
		Height:           f.Height,
		Width:            f.Width,
		FPS:              f.FPS,
		AudioBitrateKbps: f.ABR,
		Ext:              f.Ext,
		VideoCodec:       codecOrEmpty(f.VCodec),
		AudioCodec:       codecOrEmpty(f.ACodec),
		Filesize:         f.Filesize,
		URL:              f.URL,
	}
	if r.Filesize == 0 {
		r.Filesize = f.FilesizeApprox
	}

	switch {
	case hasVideo && hasAudio:
		r.Kind = model.KindBoth
		r.HasCompanion = true
		r.Quality = videoQuality(f)
	case hasVideo:
		r.Kind = model.KindVideo
		r.Quality = videoQuality(f)
	case hasAudio:
		r.Kind = model.KindAudio
		r.Quality = audioQuality(f)
	default:
		return model.Rendition{}, false
	}
	return r, true
}

func videoQuality(f YTDLPFormat) string {
	if f.Height > 0 {
		return fmt.Sprintf("%dp", f.Height)
	}
	if f.FormatNote != "" {
		return f.FormatNote
	}
	return f.FormatID
}

func audioQuality(f YTDLPFormat) string {
	if f.ABR > 0 {
		return fmt.Sprintf("%dkbps", int(math.Round(f.ABR)))
	}
	if f.FormatNote != "" {
		return f.FormatNote
	}
	return f.FormatID
}

func codecOrEmpty(c string) string {
	if c == "none" {
		return ""
	}
	return c
}
