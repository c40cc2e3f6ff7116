package format

import (
	"math"
	"testing"
)

func TestHumanizeBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{name: "zero bytes", bytes: 0, want: "0 B"},
		{name: "under 1KB", bytes: 1023, want: "1023 B"},
		{name: "exactly 1KB", bytes: 1024, want: "1.0 KB"},
		{name: "1.5 KB", bytes: 1536, want: "1.5 KB"},
		{name: "just under 1MB rounds up a unit", bytes: 1024*1024 - 1, want: "1.0 MB"},
		{name: "50 MB", bytes: 50 * 1024 * 1024, want: "50.0 MB"},
		{name: "1.5 GB", bytes: 1536 * 1024 * 1024, want: "1.5 GB"},
		{name: "exactly 1TB", bytes: 1 << 40, want: "1.0 TB"},
		{name: "beyond TB", bytes: 3 << 50, want: "3.0 PB"},
		{name: "max int64", bytes: math.MaxInt64, want: "8.0 EB"},
		{name: "negative", bytes: -1536, want: "-1.5 KB"},
		{name: "min int64", bytes: math.MinInt64, want: "-8.0 EB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HumanizeBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("HumanizeBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{-1, "?"},
		{0, "?"},
		{512, "512 B"},
		{5 << 20, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := Size(tt.n); got != tt.want {
			t.Errorf("Size(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestSaved(t *testing.T) {
	if got := Saved(3072, 1024); got != "2.0 KB" {
		t.Errorf("Saved(3072, 1024) = %q", got)
	}
	if got := Saved(1000, 1200); got != "-200 B" {
		t.Errorf("Saved(1000, 1200) = %q", got)
	}
}
