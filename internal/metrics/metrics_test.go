package metrics

import (
	"sync"
	"testing"
)

func TestGaugeCounts(t *testing.T) {
	g := NewGauge()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g.DownloadStarted()
			g.DownloadFinished(i%5 != 0)
		}(i)
	}
	wg.Wait()
	g.DownloadStarted()

	g.ImageOptimized(1000, 400)
	g.ImageOptimized(1000, 1200) // grew; nothing saved

	got := g.Snapshot()
	want := Snapshot{
		LiveDownloads:      1,
		DownloadsStarted:   51,
		DownloadsSucceeded: 40,
		DownloadsFailed:    10,
		ImagesOptimized:    2,
		BytesSaved:         600,
	}
	if got != want {
		t.Fatalf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestFanoutForwards(t *testing.T) {
	a, b := NewGauge(), NewGauge()
	var s Sink = Fanout{a, b, Nop{}}

	s.DownloadStarted()
	s.DownloadFinished(false)
	s.ImageOptimized(10, 5)

	for i, g := range []*Gauge{a, b} {
		snap := g.Snapshot()
		if snap.DownloadsStarted != 1 || snap.DownloadsFailed != 1 || snap.LiveDownloads != 0 || snap.BytesSaved != 5 {
			t.Errorf("gauge %d snapshot = %+v", i, snap)
		}
	}
}
