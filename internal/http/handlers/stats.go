package handlers

import (
	"net/http"

	"mediakit/internal/metrics"
)

// Stats reports the live download gauge together with the counters. When a
// persistent store is configured its totals replace the in-process ones.
func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	var snap metrics.Snapshot
	if a.Live != nil {
		snap = a.Live.Snapshot()
	}
	if a.Totals != nil {
		totals, err := a.Totals.Totals(r.Context())
		if err != nil {
			a.Logger.Warn().Err(err).Msg("read persisted totals")
		} else {
			totals.LiveDownloads = snap.LiveDownloads
			snap = totals
		}
	}
	a.json(w, http.StatusOK, snap)
}
