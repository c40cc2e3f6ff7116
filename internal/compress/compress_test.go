package compress

import (
	"context"
	"errors"
	"testing"

	"mediakit/internal/apperr"
)

// sizeEncoder returns a buffer whose length depends on the quality.
type sizeEncoder struct {
	sizes map[int]int   // quality -> size
	fail  map[int]error // quality -> error
	calls []EncodeOptions
}

func (s *sizeEncoder) Encode(_ context.Context, _ []byte, o EncodeOptions) ([]byte, error) {
	s.calls = append(s.calls, o)
	if err := s.fail[o.Quality]; err != nil {
		return nil, err
	}
	return make([]byte, s.sizes[o.Quality]), nil
}

func TestCompressQualityLoop(t *testing.T) {
	original := make([]byte, 1000)

	tests := []struct {
		name          string
		percent       float64
		mode          Mode
		enc           *sizeEncoder
		wantQualities []int
		wantSize      int64
		wantQuality   int
		wantErr       apperr.Kind
	}{
		{
			name:          "first attempt over target drops to 60",
			percent:       50,
			mode:          ModeLossy,
			enc:           &sizeEncoder{sizes: map[int]int{80: 600, 60: 450, 40: 300}},
			wantQualities: []int{80, 60},
			wantSize:      450,
			wantQuality:   60,
		},
		{
			name:          "hits target immediately",
			percent:       10,
			mode:          ModeLossy,
			enc:           &sizeEncoder{sizes: map[int]int{80: 800}},
			wantQualities: []int{80},
			wantSize:      800,
			wantQuality:   80,
		},
		{
			name:          "never reaches target returns last attempt",
			percent:       90,
			mode:          ModeLossy,
			enc:           &sizeEncoder{sizes: map[int]int{80: 900, 60: 700, 40: 500}},
			wantQualities: []int{80, 60, 40},
			wantSize:      500,
			wantQuality:   40,
		},
		{
			name:          "failed attempt is skipped",
			percent:       50,
			mode:          ModeLossy,
			enc:           &sizeEncoder{sizes: map[int]int{60: 700, 40: 400}, fail: map[int]error{80: errors.New("boom")}},
			wantQualities: []int{80, 60, 40},
			wantSize:      400,
			wantQuality:   40,
		},
		{
			name:          "last success kept when final attempt fails",
			percent:       90,
			mode:          ModeLossy,
			enc:           &sizeEncoder{sizes: map[int]int{80: 900, 60: 700}, fail: map[int]error{40: errors.New("boom")}},
			wantQualities: []int{80, 60, 40},
			wantSize:      700,
			wantQuality:   60,
		},
		{
			name:          "lossless stops after one success",
			percent:       90,
			mode:          ModeLossless,
			enc:           &sizeEncoder{sizes: map[int]int{80: 950}},
			wantQualities: []int{80},
			wantSize:      950,
			wantQuality:   80,
		},
		{
			name:          "every attempt fails",
			percent:       50,
			mode:          ModeLossy,
			enc:           &sizeEncoder{fail: map[int]error{80: errors.New("a"), 60: errors.New("b"), 40: errors.New("c")}},
			wantQualities: []int{80, 60, 40},
			wantErr:       apperr.KindUpstreamFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(tt.enc).Compress(context.Background(), original, tt.percent, tt.mode)

			var got []int
			for _, c := range tt.enc.calls {
				got = append(got, c.Quality)
			}
			if len(got) > DefaultMaxAttempts {
				t.Fatalf("made %d attempts, budget is %d", len(got), DefaultMaxAttempts)
			}
			if !equalInts(got, tt.wantQualities) {
				t.Errorf("qualities = %v, want %v", got, tt.wantQualities)
			}
			if len(res.Attempts) != len(got) {
				t.Errorf("recorded %d attempts, made %d", len(res.Attempts), len(got))
			}

			if tt.wantErr != apperr.KindUnknown {
				if apperr.KindOf(err) != tt.wantErr {
					t.Fatalf("err = %v, want kind %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if res.CompressedSize != tt.wantSize || int64(len(res.Data)) != tt.wantSize {
				t.Errorf("size = %d (data %d), want %d", res.CompressedSize, len(res.Data), tt.wantSize)
			}
			if res.Quality != tt.wantQuality {
				t.Errorf("quality = %d, want %d", res.Quality, tt.wantQuality)
			}
			if res.OriginalSize != 1000 {
				t.Errorf("original size = %d", res.OriginalSize)
			}
		})
	}
}

func TestCompressModes(t *testing.T) {
	tests := []struct {
		mode       Mode
		wantFormat Format
		wantScale  float64
	}{
		{ModeLossy, FormatJPEG, 0},
		{ModeLossless, FormatPNG, 0},
		{ModeCustom, FormatJPEG, 0.75},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			enc := &sizeEncoder{sizes: map[int]int{80: 1}}
			res, err := New(enc).Compress(context.Background(), make([]byte, 100), 25, tt.mode)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if res.Format != tt.wantFormat || enc.calls[0].Format != tt.wantFormat {
				t.Errorf("format = %s, want %s", res.Format, tt.wantFormat)
			}
			if enc.calls[0].Scale != tt.wantScale {
				t.Errorf("scale = %v, want %v", enc.calls[0].Scale, tt.wantScale)
			}
			if res.TargetSize != 75 {
				t.Errorf("target = %d, want 75", res.TargetSize)
			}
		})
	}
}

func TestCompressRejectsBadInput(t *testing.T) {
	c := New(&sizeEncoder{})
	tests := []struct {
		name    string
		image   []byte
		percent float64
		mode    Mode
	}{
		{"empty image", nil, 50, ModeLossy},
		{"negative percent", []byte{1}, -1, ModeLossy},
		{"percent 100", []byte{1}, 100, ModeLossy},
		{"unknown mode", []byte{1}, 50, Mode("webp")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compress(context.Background(), tt.image, tt.percent, tt.mode)
			if apperr.KindOf(err) != apperr.KindInvalidInput {
				t.Fatalf("err = %v, want invalid input", err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"", ModeLossy, true},
		{"LOSSY", ModeLossy, true},
		{"lossless", ModeLossless, true},
		{" custom ", ModeCustom, true},
		{"webp", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseMode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMode(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSavings(t *testing.T) {
	r := Result{OriginalSize: 200, CompressedSize: 50}
	if r.Savings() != 75 {
		t.Errorf("Savings() = %v, want 75", r.Savings())
	}
	r = Result{OriginalSize: 100, CompressedSize: 120}
	if r.Savings() != -20 {
		t.Errorf("Savings() = %v, want -20", r.Savings())
	}
	if (Result{}).Savings() != 0 {
		t.Error("zero original should report no savings")
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
