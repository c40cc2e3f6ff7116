// Package compress shrinks images by re-encoding them at decreasing quality
// until a target size is reached or the attempt budget runs out.
package compress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mediakit/internal/apperr"
)

// Mode selects how an image is re-encoded.
type Mode string

const (
	ModeLossy    Mode = "lossy"    // JPEG at the attempt quality
	ModeLossless Mode = "lossless" // PNG at best compression
	ModeCustom   Mode = "custom"   // downscale by the reduction, then JPEG
)

// ParseMode maps a request value onto a Mode. Empty means lossy.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLossy:
		return ModeLossy, true
	case ModeLossless:
		return ModeLossless, true
	case ModeCustom:
		return ModeCustom, true
	default:
		return "", false
	}
}

// Format is an output image format.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if f == FormatPNG {
		return "png"
	}
	return "jpg"
}

// EncodeOptions parameterize one encoder call.
type EncodeOptions struct {
	Format  Format
	Quality int     // 1..100, JPEG only
	Scale   float64 // width multiplier in (0,1]; 0 keeps the size
}

// Encoder re-encodes raw image bytes.
type Encoder interface {
	Encode(ctx context.Context, src []byte, opts EncodeOptions) ([]byte, error)
}

// Attempt is one quality-level trial.
type Attempt struct {
	Quality int
	Size    int64
	Err     error
}

// Result is the outcome of Compress.
type Result struct {
	Data           []byte
	Format         Format
	Quality        int // quality of the returned attempt
	OriginalSize   int64
	CompressedSize int64
	TargetSize     int64
	Attempts       []Attempt
}

// Savings returns the percentage of bytes saved; negative when the output grew.
func (r Result) Savings() float64 {
	if r.OriginalSize == 0 {
		return 0
	}
	return float64(r.OriginalSize-r.CompressedSize) / float64(r.OriginalSize) * 100
}

// Defaults for the quality loop.
const (
	DefaultStartQuality = 80
	DefaultQualityStep  = 20
	DefaultMinQuality   = 10
	DefaultMaxAttempts  = 3
)

// Compressor runs the quality loop over an Encoder.
type Compressor struct {
	enc          Encoder
	startQuality int
	step         int
	minQuality   int
	maxAttempts  int
}

// New returns a Compressor with the default quality schedule.
func New(enc Encoder) *Compressor {
	return &Compressor{
		enc:          enc,
		startQuality: DefaultStartQuality,
		step:         DefaultQualityStep,
		minQuality:   DefaultMinQuality,
		maxAttempts:  DefaultMaxAttempts,
	}
}

// Compress re-encodes image aiming at originalSize*(1-reductionPercent/100)
// bytes. The last successful attempt is returned even when it misses the
// target; an error is returned only when every attempt fails.
func (c *Compressor) Compress(ctx context.Context, image []byte, reductionPercent float64, mode Mode) (Result, error) {
	if len(image) == 0 {
		return Result{}, apperr.InvalidInput("compress", "image is empty")
	}
	if reductionPercent < 0 || reductionPercent >= 100 {
		return Result{}, apperr.InvalidInput("compress", "reductionPercent must be in [0, 100)")
	}
	if _, ok := ParseMode(string(mode)); !ok {
		return Result{}, apperr.InvalidInput("compress", fmt.Sprintf("unknown compression type %q", mode))
	}

	res := Result{
		Format:       FormatJPEG,
		OriginalSize: int64(len(image)),
		TargetSize:   int64(float64(len(image)) * (1 - reductionPercent/100)),
	}
	opts := EncodeOptions{Format: FormatJPEG}
	switch mode {
	case ModeLossless:
		res.Format = FormatPNG
		opts.Format = FormatPNG
	case ModeCustom:
		opts.Scale = 1 - reductionPercent/100
	}

	quality := c.startQuality
	var errs []error
	for i := 0; i < c.maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		opts.Quality = quality
		out, err := c.enc.Encode(ctx, image, opts)
		att := Attempt{Quality: quality, Size: int64(len(out)), Err: err}
		res.Attempts = append(res.Attempts, att)

		if err != nil {
			errs = append(errs, fmt.Errorf("quality %d: %w", quality, err))
		} else {
			res.Data = out
			res.Quality = quality
			res.CompressedSize = att.Size
			// PNG output does not depend on quality; another pass changes nothing.
			if att.Size <= res.TargetSize || mode == ModeLossless {
				break
			}
		}
		quality = max(quality-c.step, c.minQuality)
	}

	if res.Data == nil {
		return res, apperr.Upstream("compress", "image could not be encoded", errors.Join(errs...))
	}
	return res, nil
}
