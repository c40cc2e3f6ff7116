// Package metrics records download and image optimization activity.
package metrics

import "sync/atomic"

// Sink receives job lifecycle events. Implementations must be safe for
// concurrent use.
type Sink interface {
	DownloadStarted()
	DownloadFinished(ok bool)
	ImageOptimized(originalSize, compressedSize int64)
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	LiveDownloads      int64 `json:"liveDownloads"`
	DownloadsStarted   int64 `json:"downloadsStarted"`
	DownloadsSucceeded int64 `json:"downloadsSucceeded"`
	DownloadsFailed    int64 `json:"downloadsFailed"`
	ImagesOptimized    int64 `json:"imagesOptimized"`
	BytesSaved         int64 `json:"bytesSaved"`
}

// Nop discards every event.
type Nop struct{}

func (Nop) DownloadStarted()            {}
func (Nop) DownloadFinished(bool)       {}
func (Nop) ImageOptimized(int64, int64) {}

// Gauge keeps in-process counters, including the live download gauge.
type Gauge struct {
	live      atomic.Int64
	started   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	images    atomic.Int64
	saved     atomic.Int64
}

// NewGauge returns a zeroed Gauge.
func NewGauge() *Gauge { return &Gauge{} }

func (g *Gauge) DownloadStarted() {
	g.live.Add(1)
	g.started.Add(1)
}

func (g *Gauge) DownloadFinished(ok bool) {
	g.live.Add(-1)
	if ok {
		g.succeeded.Add(1)
	} else {
		g.failed.Add(1)
	}
}

func (g *Gauge) ImageOptimized(originalSize, compressedSize int64) {
	g.images.Add(1)
	if saved := originalSize - compressedSize; saved > 0 {
		g.saved.Add(saved)
	}
}

// Snapshot returns the current counter values.
func (g *Gauge) Snapshot() Snapshot {
	return Snapshot{
		LiveDownloads:      g.live.Load(),
		DownloadsStarted:   g.started.Load(),
		DownloadsSucceeded: g.succeeded.Load(),
		DownloadsFailed:    g.failed.Load(),
		ImagesOptimized:    g.images.Load(),
		BytesSaved:         g.saved.Load(),
	}
}

// Fanout forwards every event to each sink in order.
type Fanout []Sink

func (f Fanout) DownloadStarted() {
	for _, s := range f {
		s.DownloadStarted()
	}
}

func (f Fanout) DownloadFinished(ok bool) {
	for _, s := range f {
		s.DownloadFinished(ok)
	}
}

func (f Fanout) ImageOptimized(originalSize, compressedSize int64) {
	for _, s := range f {
		s.ImageOptimized(originalSize, compressedSize)
	}
}
