package handlers

import (
	"context"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"mediakit/internal/apperr"
	"mediakit/internal/model"
	"mediakit/internal/pipeline"
)

type formatItem struct {
	Itag      string  `json:"itag"`
	Quality   string  `json:"quality"`
	Container string  `json:"container"`
	FPS       float64 `json:"fps,omitempty"`
	HasAudio  bool    `json:"hasAudio"`
	HasVideo  bool    `json:"hasVideo"`
	Bitrate   int     `json:"bitrate,omitempty"` // kbps, audio only
	Filesize  int64   `json:"filesize,omitempty"`
}

type infoResponse struct {
	Title        string       `json:"title"`
	Thumbnail    string       `json:"thumbnail"`
	Duration     int          `json:"duration"` // seconds
	Uploader     string       `json:"uploader,omitempty"`
	Platform     string       `json:"platform,omitempty"`
	VideoFormats []formatItem `json:"videoFormats"`
	AudioFormats []formatItem `json:"audioFormats"`
}

// Download serves both the info action and the binary download:
//
//	GET /api/download?url=...&action=info
//	GET /api/download?url=...&format=mp4|mp3&quality=<itag>&audioQuality=<itag>
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	url := strings.TrimSpace(q.Get("url"))
	if url == "" {
		a.writeError(w, r, apperr.InvalidInput("download", "url is required"))
		return
	}
	if a.Media == nil {
		a.writeError(w, r, apperr.Upstream("download", "media service unavailable", nil))
		return
	}

	if strings.EqualFold(q.Get("action"), "info") {
		a.downloadInfo(w, r, url)
		return
	}

	container, ok := model.ParseContainer(q.Get("format"))
	if !ok {
		a.writeError(w, r, apperr.InvalidInput("download", "format must be mp4 or mp3"))
		return
	}
	req := model.SelectionRequest{
		Container:       container,
		ExplicitID:      strings.TrimSpace(q.Get("quality")),
		ExplicitAudioID: strings.TrimSpace(q.Get("audioQuality")),
	}
	if container == model.ContainerMP3 && req.ExplicitID == "" {
		req.ExplicitID = req.ExplicitAudioID
	}

	sink := &responseSink{w: w}
	res, err := a.Media.Download(r.Context(), url, req, sink)
	if err != nil {
		if !sink.started {
			a.writeError(w, r, err)
			return
		}
		// Headers are gone; abort so the client sees a truncated transfer
		// rather than a complete file.
		a.Logger.Error().Err(err).Str("url", url).Int64("written", sink.written).Msg("stream aborted")
		panic(http.ErrAbortHandler)
	}
	a.Logger.Debug().Str("job", res.JobID).Str("file", res.Filename).Int64("bytes", res.Bytes).Msg("download served")
}

func (a *App) downloadInfo(w http.ResponseWriter, r *http.Request, url string) {
	info, err := a.Media.Catalog(r.Context(), url)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	resp := infoResponse{
		Title:        info.Title,
		Thumbnail:    info.Thumbnail,
		Duration:     int(math.Round(info.DurationSec)),
		Uploader:     info.Uploader,
		Platform:     info.Platform,
		VideoFormats: toFormatItems(info.VideoFormats()),
		AudioFormats: toFormatItems(info.AudioFormats()),
	}
	a.json(w, http.StatusOK, resp)
}

func toFormatItems(rs []model.Rendition) []formatItem {
	out := make([]formatItem, 0, len(rs))
	for _, r := range rs {
		out = append(out, formatItem{
			Itag:      r.ID,
			Quality:   r.Quality,
			Container: r.Ext,
			FPS:       r.FPS,
			HasAudio:  r.HasAudio(),
			HasVideo:  r.HasVideo(),
			Bitrate:   int(math.Round(r.AudioBitrateKbps)),
			Filesize:  r.Filesize,
		})
	}
	return out
}

// responseSink streams a deliverable as the HTTP response body.
type responseSink struct {
	w       http.ResponseWriter
	started bool
	written int64
}

func (s *responseSink) Deliver(ctx context.Context, d pipeline.Deliverable) error {
	h := s.w.Header()
	h.Set("Content-Type", d.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	h.Set("Cache-Control", "no-store")
	if d.Size >= 0 {
		h.Set("Content-Length", strconv.FormatInt(d.Size, 10))
	}
	s.started = true
	s.w.WriteHeader(http.StatusOK)

	n, err := io.Copy(s.w, d.Body)
	s.written += n
	return err
}
