package encoder

import (
	"strings"
	"testing"
)

func TestBuildMuxArgs(t *testing.T) {
	tests := []struct {
		name            string
		spec            MuxSpec
		includeProgress bool
		wantContains    []string
		wantNotContains []string
	}{
		{
			name: "copy video aac audio",
			spec: MuxSpec{
				VideoPath:        "/tmp/v.mp4",
				AudioPath:        "/tmp/a.m4a",
				OutputPath:       "/tmp/out.mp4",
				AudioBitrateKbps: 192,
			},
			wantContains: []string{
				"-i /tmp/v.mp4 -i /tmp/a.m4a",
				"-map 0:v:0 -map 1:a:0",
				"-c:v copy",
				"-c:a aac",
				"-b:a 192k",
				"-movflags +faststart",
			},
			wantNotContains: []string{"-progress", "libx264", "-vf"},
		},
		{
			name: "unknown bitrate defaults",
			spec: MuxSpec{
				VideoPath:  "/tmp/v.webm",
				AudioPath:  "/tmp/a.webm",
				OutputPath: "/tmp/out.mp4",
			},
			includeProgress: true,
			wantContains:    []string{"-b:a 128k", "-progress pipe:1 -nostats"},
		},
		{
			name: "bitrate clamped",
			spec: MuxSpec{
				VideoPath:        "/tmp/v.mp4",
				AudioPath:        "/tmp/a.m4a",
				OutputPath:       "/tmp/out.mp4",
				AudioBitrateKbps: 999,
			},
			wantContains: []string{"-b:a 320k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := BuildMuxArgs(tt.spec, tt.includeProgress)

			argsStr := strings.Join(args, " ")
			for _, want := range tt.wantContains {
				if !strings.Contains(argsStr, want) {
					t.Errorf("BuildMuxArgs() args missing %q, got: %v", want, args)
				}
			}
			for _, notWant := range tt.wantNotContains {
				if strings.Contains(argsStr, notWant) {
					t.Errorf("BuildMuxArgs() args should not contain %q, got: %v", notWant, args)
				}
			}

			// Verify output path is last arg
			if args[len(args)-1] != tt.spec.OutputPath {
				t.Errorf("BuildMuxArgs() last arg = %v, want %v", args[len(args)-1], tt.spec.OutputPath)
			}
		})
	}
}

func TestBuildAudioArgs(t *testing.T) {
	spec := MuxSpec{AudioPath: "/tmp/a.webm", OutputPath: "/tmp/out.mp3", AudioBitrateKbps: 160}
	if !spec.AudioOnly() {
		t.Fatal("spec without video should be audio-only")
	}

	args := BuildAudioArgs(spec, true)
	argsStr := strings.Join(args, " ")
	for _, want := range []string{"-i /tmp/a.webm", "-vn", "-c:a libmp3lame", "-b:a 160k", "-progress pipe:1"} {
		if !strings.Contains(argsStr, want) {
			t.Errorf("BuildAudioArgs() args missing %q, got: %v", want, args)
		}
	}
	if strings.Contains(argsStr, "-c:v") {
		t.Errorf("BuildAudioArgs() should not touch video: %v", args)
	}
	if args[len(args)-1] != "/tmp/out.mp3" {
		t.Errorf("BuildAudioArgs() last arg = %v", args[len(args)-1])
	}
}
