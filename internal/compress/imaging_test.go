package compress

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8(x * y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestImagingEncoder(t *testing.T) {
	src := testPNG(t, 64, 32)
	enc := ImagingEncoder{}

	tests := []struct {
		name      string
		opts      EncodeOptions
		wantW     int
		wantH     int
		wantMagic []byte
	}{
		{"jpeg", EncodeOptions{Format: FormatJPEG, Quality: 60}, 64, 32, []byte{0xFF, 0xD8}},
		{"png", EncodeOptions{Format: FormatPNG}, 64, 32, []byte{0x89, 'P', 'N', 'G'}},
		{"scaled", EncodeOptions{Format: FormatJPEG, Quality: 80, Scale: 0.5}, 32, 16, []byte{0xFF, 0xD8}},
		{"tiny scale keeps a pixel", EncodeOptions{Format: FormatJPEG, Quality: 80, Scale: 0.001}, 1, 1, []byte{0xFF, 0xD8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := enc.Encode(context.Background(), src, tt.opts)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if !bytes.HasPrefix(out, tt.wantMagic) {
				t.Errorf("unexpected header % x", out[:4])
			}
			img, err := imaging.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("decode output: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestImagingEncoderRejectsGarbage(t *testing.T) {
	if _, err := (ImagingEncoder{}).Encode(context.Background(), []byte("not an image"), EncodeOptions{Format: FormatJPEG, Quality: 80}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCompressWithImagingEncoder(t *testing.T) {
	src := testPNG(t, 128, 128)
	res, err := New(ImagingEncoder{}).Compress(context.Background(), src, 50, ModeLossy)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if len(res.Attempts) == 0 || len(res.Attempts) > DefaultMaxAttempts {
		t.Fatalf("attempts = %d", len(res.Attempts))
	}
	for i := 1; i < len(res.Attempts); i++ {
		if res.Attempts[i].Quality > res.Attempts[i-1].Quality {
			t.Errorf("quality increased: %+v", res.Attempts)
		}
	}
}
