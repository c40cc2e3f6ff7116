package downloader

import (
	"sort"
	"strings"

	"mediakit/internal/model"
)

// Preferred rendition IDs, tried in order before falling back to ranking.
var (
	preferredVideoIDs = []string{"137", "136"} // 1080p, 720p mp4 video-only
	preferredAudioIDs = []string{"140"}        // m4a 128k
)

// SelectRenditions picks the video and audio renditions to deliver for req.
// An explicit ID that is not in the catalog falls back to the defaults. An
// empty catalog yields an empty selection.
func SelectRenditions(catalog []model.Rendition, req model.SelectionRequest) model.Selection {
	var sel model.Selection

	if req.Container == model.ContainerMP3 {
		// The primary track of an audio deliverable is the audio rendition.
		// Muxed renditions carry audio too; ffmpeg drops their video.
		sel.Audio = pickAudio(catalog, req.ExplicitID, true)
		return sel
	}

	sel.Video = pickVideo(catalog, req.ExplicitID)
	if sel.Video == nil || !sel.Video.HasCompanion {
		sel.Audio = pickAudio(catalog, req.ExplicitAudioID, false)
	}
	if sel.Video == nil && sel.Audio != nil {
		// Nothing to mux with; an audio-only catalog has no mp4 deliverable.
		sel.Audio = nil
	}
	return sel
}

func pickVideo(catalog []model.Rendition, explicitID string) *model.Rendition {
	videos := filter(catalog, func(r model.Rendition) bool { return r.HasVideo() })
	if len(videos) == 0 {
		return nil
	}
	if r := byID(videos, explicitID); r != nil {
		return r
	}
	for _, id := range preferredVideoIDs {
		if r := byID(videos, id); r != nil {
			return r
		}
	}

	// Prefer video-only renditions, then muxed ones.
	pool := filter(videos, func(r model.Rendition) bool { return r.Kind == model.KindVideo })
	if len(pool) == 0 {
		pool = videos
	}
	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		if a.FPS != b.FPS {
			return a.FPS > b.FPS
		}
		if pa, pb := extPriority(a.Ext), extPriority(b.Ext); pa != pb {
			return pa < pb
		}
		return a.ID < b.ID
	})
	return &pool[0]
}

// pickAudio prefers audio-only renditions. With allowMuxed, an explicit ID
// may name a muxed rendition and muxed ones are ranked when no audio-only
// rendition exists.
func pickAudio(catalog []model.Rendition, explicitID string, allowMuxed bool) *model.Rendition {
	audios := filter(catalog, func(r model.Rendition) bool { return r.Kind == model.KindAudio })
	if allowMuxed {
		withAudio := filter(catalog, func(r model.Rendition) bool { return r.HasAudio() })
		if r := byID(withAudio, explicitID); r != nil {
			return r
		}
		if len(audios) == 0 {
			audios = withAudio
		}
	}
	if len(audios) == 0 {
		return nil
	}
	if r := byID(audios, explicitID); r != nil {
		return r
	}
	for _, id := range preferredAudioIDs {
		if r := byID(audios, id); r != nil {
			return r
		}
	}
	sort.SliceStable(audios, func(i, j int) bool {
		a, b := audios[i], audios[j]
		if a.AudioBitrateKbps != b.AudioBitrateKbps {
			return a.AudioBitrateKbps > b.AudioBitrateKbps
		}
		if pa, pb := extPriority(a.Ext), extPriority(b.Ext); pa != pb {
			return pa < pb
		}
		return a.ID < b.ID
	})
	return &audios[0]
}

// filter returns copies of the matching renditions so the caller may sort
// them and hand out pointers without touching the catalog.
func filter(catalog []model.Rendition, keep func(model.Rendition) bool) []model.Rendition {
	out := make([]model.Rendition, 0, len(catalog))
	for _, r := range catalog {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func byID(rs []model.Rendition, id string) *model.Rendition {
	if id == "" {
		return nil
	}
	for i := range rs {
		if rs[i].ID == id {
			return &rs[i]
		}
	}
	return nil
}

// extPriority returns a priority score for container extensions (lower = better).
// Prefers formats that mux into mp4 without re-encoding.
func extPriority(ext string) int {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp4", "m4a":
		return 0
	case "mov":
		return 1
	case "webm":
		return 2
	case "mkv":
		return 3
	case "opus", "ogg":
		return 4
	default:
		return 100
	}
}
