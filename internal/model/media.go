package model

import "strings"

// Kind describes which media types a rendition carries.
type Kind string

const (
	KindVideo Kind = "video" // video only
	KindAudio Kind = "audio" // audio only
	KindBoth  Kind = "both"  // video with muxed audio
)

// Container is the deliverable a caller asks for.
type Container string

const (
	ContainerMP4 Container = "mp4" // video + audio
	ContainerMP3 Container = "mp3" // audio only
)

// ParseContainer maps a request value onto a Container. Empty means mp4.
func ParseContainer(s string) (Container, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mp4", "video":
		return ContainerMP4, true
	case "mp3", "audio":
		return ContainerMP3, true
	default:
		return "", false
	}
}

// Rendition is one available encoding of a media asset as reported by the
// catalog provider. Values are rebuilt on every catalog fetch.
type Rendition struct {
	ID               string // itag / yt-dlp format_id
	Kind             Kind
	Quality          string  // "1080p" for video, "128kbps" for audio
	Height           int     // 0 for audio
	Width            int     // 0 for audio
	FPS              float64 // 0 for audio
	AudioBitrateKbps float64 // 0 when unknown or video only
	Ext              string
	VideoCodec       string
	AudioCodec       string
	Filesize         int64  // 0 when unknown
	URL              string // direct stream URL when the provider exposes one
	HasCompanion     bool   // already carries the other media type
}

// HasVideo reports whether the rendition carries a video track.
func (r Rendition) HasVideo() bool { return r.Kind == KindVideo || r.Kind == KindBoth }

// HasAudio reports whether the rendition carries an audio track.
func (r Rendition) HasAudio() bool { return r.Kind == KindAudio || r.Kind == KindBoth }

// MediaInfo is the catalog for one source URL.
type MediaInfo struct {
	ID          string
	Title       string
	Thumbnail   string
	Uploader    string
	DurationSec float64
	SourceURL   string
	Platform    string
	Renditions  []Rendition
}

// VideoFormats returns the renditions carrying video, in catalog order.
func (m MediaInfo) VideoFormats() []Rendition {
	out := make([]Rendition, 0, len(m.Renditions))
	for _, r := range m.Renditions {
		if r.HasVideo() {
			out = append(out, r)
		}
	}
	return out
}

// AudioFormats returns the audio-only renditions, in catalog order.
func (m MediaInfo) AudioFormats() []Rendition {
	out := make([]Rendition, 0, len(m.Renditions))
	for _, r := range m.Renditions {
		if r.Kind == KindAudio {
			out = append(out, r)
		}
	}
	return out
}

// SelectionRequest is what the caller wants delivered.
type SelectionRequest struct {
	Container       Container
	ExplicitID      string // optional rendition ID for the primary track
	ExplicitAudioID string // optional companion audio rendition ID (mp4 only)
}

// Selection is the outcome of format selection. Either field may be nil.
type Selection struct {
	Video *Rendition
	Audio *Rendition
}

// Empty reports whether nothing deliverable was selected.
func (s Selection) Empty() bool { return s.Video == nil && s.Audio == nil }

// NeedsMerge reports whether separate video and audio streams must be muxed.
func (s Selection) NeedsMerge() bool {
	return s.Video != nil && s.Audio != nil && !s.Video.HasCompanion
}
