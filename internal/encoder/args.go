package encoder

import (
	"fmt"

	"mediakit/internal/util/bitrate"
)

// MuxSpec describes one ffmpeg invocation. An empty VideoPath selects the
// audio-only (mp3) transcode.
type MuxSpec struct {
	JobID            string
	VideoPath        string
	AudioPath        string
	OutputPath       string
	AudioBitrateKbps int
	DurationSec      float64 // used for progress percent; 0 if unknown
}

// AudioOnly reports whether spec produces an mp3 from a single input.
func (s MuxSpec) AudioOnly() bool { return s.VideoPath == "" }

// BuildMuxArgs constructs ffmpeg arguments that copy the video stream and
// encode the audio stream to AAC in an mp4 container.
func BuildMuxArgs(spec MuxSpec, includeProgress bool) []string {
	args := []string{
		"-y",
		"-i", spec.VideoPath,
		"-i", spec.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", bitrate.SafeAudioKbps(spec.AudioBitrateKbps)),
		"-movflags", "+faststart",
	}
	if includeProgress {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}
	args = append(args, spec.OutputPath)
	return args
}

// BuildAudioArgs constructs ffmpeg arguments for audio-only mp3 output.
func BuildAudioArgs(spec MuxSpec, includeProgress bool) []string {
	args := []string{
		"-y",
		"-i", spec.AudioPath,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrate.SafeAudioKbps(spec.AudioBitrateKbps)),
	}
	if includeProgress {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}
	args = append(args, spec.OutputPath)
	return args
}
