package bitrate

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		v    int
		min  int
		max  int
		want int
	}{
		{name: "value in range", v: 50, min: 0, max: 100, want: 50},
		{name: "value below min", v: -10, min: 0, max: 100, want: 0},
		{name: "value above max", v: 150, min: 0, max: 100, want: 100},
		{name: "value equals min", v: 0, min: 0, max: 100, want: 0},
		{name: "value equals max", v: 100, min: 0, max: 100, want: 100},
		{name: "negative range", v: -50, min: -100, max: -10, want: -50},
		{name: "single value range", v: 50, min: 42, max: 42, want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.v, tt.min, tt.max)
			if got != tt.want {
				t.Errorf("Clamp(%d, %d, %d) = %v, want %v", tt.v, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestSafeAudioKbps(t *testing.T) {
	tests := []struct {
		name string
		v    int
		want int
	}{
		{name: "zero defaults", v: 0, want: 128},
		{name: "negative defaults", v: -10, want: 128},
		{name: "below minimum", v: 32, want: 64},
		{name: "at minimum", v: 64, want: 64},
		{name: "typical", v: 192, want: 192},
		{name: "above maximum", v: 512, want: 320},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeAudioKbps(tt.v)
			if got != tt.want {
				t.Errorf("SafeAudioKbps(%d) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}
