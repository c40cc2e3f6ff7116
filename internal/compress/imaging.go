package compress

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

// ImagingEncoder implements Encoder with github.com/disintegration/imaging.
type ImagingEncoder struct{}

// Encode decodes src (honoring EXIF orientation), optionally scales its width
// and encodes it in the requested format.
func (ImagingEncoder) Encode(ctx context.Context, src []byte, opts EncodeOptions) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Scale > 0 && opts.Scale < 1 {
		w := int(math.Round(float64(img.Bounds().Dx()) * opts.Scale))
		if w < 1 {
			w = 1
		}
		img = imaging.Resize(img, w, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	switch opts.Format {
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		q := opts.Quality
		if q < 1 {
			q = 1
		}
		if q > 100 {
			q = 100
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q))
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", opts.Format, err)
	}
	return buf.Bytes(), nil
}
