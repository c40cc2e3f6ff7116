package downloader

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"mediakit/internal/apperr"
	"mediakit/internal/model"
	"mediakit/internal/progress"
	"mediakit/internal/util"
)

type fakeRunner struct {
	stdout string
	err    error

	stderr []string
	body   string

	specs []util.CmdSpec
}

func (f *fakeRunner) Run(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	f.specs = append(f.specs, spec)
	return util.CmdResult{Stdout: []byte(f.stdout)}, f.err
}

func (f *fakeRunner) Start(_ context.Context, spec util.CmdSpec) (io.ReadCloser, error) {
	f.specs = append(f.specs, spec)
	if f.err != nil {
		return nil, f.err
	}
	for _, line := range f.stderr {
		if spec.StderrLine != nil {
			spec.StderrLine(line)
		}
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

type recorder struct {
	progress.Nop
	updates []progress.Update
}

func (r *recorder) Update(u progress.Update) { r.updates = append(r.updates, u) }

const sampleInfo = `{"id":"abc123","title":"Sample clip","uploader":"someone","duration":212.5,
"thumbnail":"https://i.ytimg.com/vi/abc123/hq.jpg","formats":[
{"format_id":"sb0","ext":"mhtml","vcodec":"none","acodec":"none"},
{"format_id":"140","ext":"m4a","vcodec":"none","acodec":"mp4a.40.2","abr":129.48,"filesize":3400000},
{"format_id":"18","ext":"mp4","vcodec":"avc1.42001E","acodec":"mp4a.40.2","height":360,"width":640,"fps":30},
{"format_id":"137","ext":"mp4","vcodec":"avc1.640028","acodec":"none","height":1080,"width":1920,"fps":30,"filesize_approx":52000000}
]}`

func TestProviderCatalog(t *testing.T) {
	fr := &fakeRunner{stdout: sampleInfo}
	p := NewProvider(Options{DownloaderPath: "yt-dlp", Runner: fr})

	info, err := p.Catalog(context.Background(), "https://www.youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if info.Title != "Sample clip" || info.DurationSec != 212.5 || info.Platform != "youtube" {
		t.Errorf("unexpected info: %+v", info)
	}
	if len(info.Renditions) != 3 {
		t.Fatalf("got %d renditions, want 3 (storyboard skipped)", len(info.Renditions))
	}

	want := []struct {
		id      string
		kind    model.Kind
		quality string
	}{
		{"140", model.KindAudio, "129kbps"},
		{"18", model.KindBoth, "360p"},
		{"137", model.KindVideo, "1080p"},
	}
	for i, w := range want {
		r := info.Renditions[i]
		if r.ID != w.id || r.Kind != w.kind || r.Quality != w.quality {
			t.Errorf("rendition %d = {%s %s %s}, want {%s %s %s}", i, r.ID, r.Kind, r.Quality, w.id, w.kind, w.quality)
		}
	}
	if !info.Renditions[1].HasCompanion {
		t.Error("muxed rendition should have a companion track")
	}
	if info.Renditions[2].Filesize != 52000000 {
		t.Errorf("approx filesize not used: %d", info.Renditions[2].Filesize)
	}

	args := strings.Join(fr.specs[0].Args, " ")
	if !strings.Contains(args, "--dump-json") || !strings.Contains(args, "--no-playlist") {
		t.Errorf("unexpected args: %s", args)
	}
}

func TestProviderCatalogErrors(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		path     string
		runner   *fakeRunner
		wantKind apperr.Kind
	}{
		{
			name:     "unsupported host",
			url:      "https://example.com/video",
			path:     "yt-dlp",
			runner:   &fakeRunner{},
			wantKind: apperr.KindInvalidInput,
		},
		{
			name:     "empty url",
			url:      "",
			path:     "yt-dlp",
			runner:   &fakeRunner{},
			wantKind: apperr.KindInvalidInput,
		},
		{
			name:     "missing binary",
			url:      "https://youtu.be/abc123",
			runner:   &fakeRunner{},
			wantKind: apperr.KindUpstreamFailure,
		},
		{
			name:     "runner fails",
			url:      "https://youtu.be/abc123",
			path:     "yt-dlp",
			runner:   &fakeRunner{err: errors.New("exit 1")},
			wantKind: apperr.KindUpstreamFailure,
		},
		{
			name:     "garbage output",
			url:      "https://youtu.be/abc123",
			path:     "yt-dlp",
			runner:   &fakeRunner{stdout: "not json"},
			wantKind: apperr.KindUpstreamFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(Options{DownloaderPath: tt.path, Runner: tt.runner})
			_, err := p.Catalog(context.Background(), tt.url)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperr.KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestProviderOpenStreamsAndReportsProgress(t *testing.T) {
	fr := &fakeRunner{
		body:   "media-bytes",
		stderr: []string{"[download]  50.0% of 1.00MiB at  1.00MiB/s ETA 00:01", "noise"},
	}
	rec := &recorder{}
	p := NewProvider(Options{DownloaderPath: "yt-dlp", Runner: fr})

	rc, err := p.Open(context.Background(), "https://youtu.be/abc123", model.Rendition{ID: "137"},
		StreamOptions{JobID: "j1", Stage: progress.StageFetchingVideo, Reporter: rec})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	b, _ := io.ReadAll(rc)
	if string(b) != "media-bytes" {
		t.Errorf("body = %q", b)
	}
	if len(rec.updates) != 1 || rec.updates[0].Stage != progress.StageFetchingVideo || rec.updates[0].JobID != "j1" {
		t.Errorf("updates = %+v", rec.updates)
	}
	args := fr.specs[0].Args
	if args[0] != "-f" || args[1] != "137" || args[2] != "-o" || args[3] != "-" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestProviderOpenRequiresID(t *testing.T) {
	p := NewProvider(Options{DownloaderPath: "yt-dlp", Runner: &fakeRunner{}})
	_, err := p.Open(context.Background(), "https://youtu.be/abc123", model.Rendition{}, StreamOptions{})
	if apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestParseInfoLastLine(t *testing.T) {
	out := "{\"id\":\"\"}\n{\"id\":\"second\",\"title\":\"t\"}\n"
	info, err := parseInfo([]byte("warning line\n" + out))
	if err != nil {
		t.Fatalf("parseInfo() error = %v", err)
	}
	if info.ID != "second" {
		t.Errorf("ID = %q, want second", info.ID)
	}
	if _, err := parseInfo([]byte("   ")); err == nil {
		t.Error("expected error for empty output")
	}
}
