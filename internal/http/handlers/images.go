package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mediakit/internal/apperr"
	"mediakit/internal/compress"
	"mediakit/internal/storage"
	"mediakit/internal/util/media"
)

// defaultReductionPercent applies when the form omits reductionPercent.
const defaultReductionPercent = 50

type optimizeResponse struct {
	OriginalName   string  `json:"originalName"`
	OriginalSize   int64   `json:"originalSize"`
	CompressedSize int64   `json:"compressedSize"`
	Savings        float64 `json:"savings"`
	DownloadURL    string  `json:"downloadUrl"`
	Quality        int     `json:"quality"`
	Attempts       int     `json:"attempts"`
	Status         string  `json:"status"`
}

// OptimizeImage compresses the multipart field "image" and stores the result.
func (a *App) OptimizeImage(w http.ResponseWriter, r *http.Request) {
	if a.Images == nil || a.Blobs == nil {
		a.writeError(w, r, apperr.Upstream("optimize", "image service unavailable", nil))
		return
	}
	limit := a.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	// Allow for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.json(w, http.StatusRequestEntityTooLarge, errorBody{Error: fmt.Sprintf("image exceeds %d MB", limit>>20)})
			return
		}
		a.writeError(w, r, apperr.InvalidInput("optimize", "expected multipart form with an image field"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		a.writeError(w, r, apperr.InvalidInput("optimize", "image file is required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		a.writeError(w, r, apperr.InvalidInput("optimize", "could not read image"))
		return
	}
	if int64(len(data)) > limit {
		a.json(w, http.StatusRequestEntityTooLarge, errorBody{Error: fmt.Sprintf("image exceeds %d MB", limit>>20)})
		return
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		a.writeError(w, r, apperr.InvalidInput("optimize", "file is not a supported image"))
		return
	}

	mode, ok := compress.ParseMode(r.FormValue("compressionType"))
	if !ok {
		a.writeError(w, r, apperr.InvalidInput("optimize", "compressionType must be lossy, lossless or custom"))
		return
	}
	reduction := float64(defaultReductionPercent)
	if raw := strings.TrimSpace(r.FormValue("reductionPercent")); raw != "" {
		reduction, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			a.writeError(w, r, apperr.InvalidInput("optimize", "reductionPercent must be a number"))
			return
		}
	}

	res, err := a.Images.Compress(r.Context(), data, reduction, mode)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	key, err := a.Blobs.Write(r.Context(), uuid.NewString()+"."+res.Format.Ext(), res.Data)
	if err != nil {
		a.writeError(w, r, apperr.Upstream("optimize", "could not store optimized image", err))
		return
	}
	a.sink().ImageOptimized(res.OriginalSize, res.CompressedSize)

	a.Logger.Info().
		Str("key", key).
		Str("mode", string(mode)).
		Int64("original", res.OriginalSize).
		Int64("compressed", res.CompressedSize).
		Int("quality", res.Quality).
		Int("attempts", len(res.Attempts)).
		Msg("image optimized")

	a.json(w, http.StatusOK, optimizeResponse{
		OriginalName:   filepath.Base(header.Filename),
		OriginalSize:   res.OriginalSize,
		CompressedSize: res.CompressedSize,
		Savings:        math.Round(res.Savings()*100) / 100,
		DownloadURL:    a.PublicBaseURL + "/api/optimized/" + key,
		Quality:        res.Quality,
		Attempts:       len(res.Attempts),
		Status:         "success",
	})
}

// Optimized serves a stored optimized image.
func (a *App) Optimized(w http.ResponseWriter, r *http.Request) {
	if a.Blobs == nil {
		a.writeError(w, r, apperr.NotFound("optimized", "image not found"))
		return
	}
	key := chi.URLParam(r, "key")
	obj, err := a.Blobs.Open(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.writeError(w, r, apperr.NotFound("optimized", "image not found"))
			return
		}
		if errors.Is(err, storage.ErrInvalidKey) {
			a.writeError(w, r, apperr.InvalidInput("optimized", "invalid image key"))
			return
		}
		a.writeError(w, r, apperr.Upstream("optimized", "could not open image", err))
		return
	}
	defer obj.Close()

	name := path.Base(obj.Key)
	w.Header().Set("Content-Type", media.ContentType(path.Ext(name)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, time.Time{}, obj)
}
