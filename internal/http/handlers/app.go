// Package handlers implements the HTTP API on top of the merge pipeline, the
// iterative compressor and the optimized image store.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"mediakit/internal/apperr"
	"mediakit/internal/compress"
	"mediakit/internal/metrics"
	"mediakit/internal/model"
	"mediakit/internal/pipeline"
	"mediakit/internal/storage"
)

// DefaultMaxUploadBytes bounds optimize-image uploads when App leaves it unset.
const DefaultMaxUploadBytes = 10 << 20

// MediaService catalogs URLs and produces deliverables. *pipeline.Service
// implements it.
type MediaService interface {
	Catalog(ctx context.Context, url string) (model.MediaInfo, error)
	Download(ctx context.Context, url string, req model.SelectionRequest, sink pipeline.Sink) (pipeline.Result, error)
}

// ImageCompressor runs the quality loop. *compress.Compressor implements it.
type ImageCompressor interface {
	Compress(ctx context.Context, image []byte, reductionPercent float64, mode compress.Mode) (compress.Result, error)
}

// BlobStore keeps optimized images. *storage.FileStore implements it.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Open(key string) (*storage.Object, error)
}

// TotalsReader reads persisted counters. *metrics.Store implements it.
type TotalsReader interface {
	Totals(ctx context.Context) (metrics.Snapshot, error)
}

type App struct {
	Media   MediaService
	Images  ImageCompressor
	Blobs   BlobStore
	Metrics metrics.Sink
	Live    *metrics.Gauge
	Totals  TotalsReader // optional
	Logger  zerolog.Logger

	MaxUploadBytes int64
	PublicBaseURL  string // prefix of downloadUrl; relative URLs when empty
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeError maps err onto a status code and JSON body. Upstream failures
// carry a generic message and the diagnostic detail.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	body := errorBody{Error: apperr.Message(err, "internal error")}

	switch kind {
	case apperr.KindInvalidInput, apperr.KindNotFound:
		a.Logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	default:
		if errors.Is(err, context.Canceled) {
			a.Logger.Info().Str("path", r.URL.Path).Msg("client went away")
			return
		}
		body.Details = err.Error()
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	a.json(w, status, body)
}

func (a *App) sink() metrics.Sink {
	if a.Metrics == nil {
		return metrics.Nop{}
	}
	return a.Metrics
}
