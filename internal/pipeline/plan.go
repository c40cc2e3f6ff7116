package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"mediakit/internal/model"
	"mediakit/internal/util/media"
)

// Mode is how a job turns its selection into a deliverable.
type Mode string

const (
	ModeDirect    Mode = "direct"    // stream one rendition as is
	ModeMerge     Mode = "merge"     // mux video-only and audio-only into mp4
	ModeTranscode Mode = "transcode" // re-encode audio to mp3
)

// Plan contains the computed plan for a job (also used for introspection).
type Plan struct {
	Mode        Mode
	Filename    string
	Ext         string
	ContentType string
}

// PlanFor decides the delivery mode and the deliverable's name and type.
func PlanFor(req Request) (Plan, error) {
	sel := req.Selection
	if sel.Empty() {
		return Plan{}, errors.New("nothing selected")
	}

	var p Plan
	switch {
	case req.Container == model.ContainerMP3:
		if sel.Audio == nil {
			return Plan{}, errors.New("mp3 requires an audio rendition")
		}
		p = Plan{Mode: ModeTranscode, Ext: "mp3"}
	case sel.NeedsMerge():
		p = Plan{Mode: ModeMerge, Ext: "mp4"}
	default:
		r := p.Primary(sel)
		if r == nil {
			return Plan{}, errors.New("nothing selected")
		}
		ext := strings.ToLower(strings.TrimPrefix(r.Ext, "."))
		if ext == "" {
			ext = "mp4"
		}
		p = Plan{Mode: ModeDirect, Ext: ext}
	}

	p.ContentType = media.ContentType(p.Ext)
	p.Filename = fmt.Sprintf("%s.%s", media.OutputBasename(req.Info, sel, req.Container), p.Ext)
	return p, nil
}

// Primary returns the rendition streamed in direct mode: the video when
// present, else the audio.
func (Plan) Primary(sel model.Selection) *model.Rendition {
	if sel.Video != nil {
		return sel.Video
	}
	return sel.Audio
}

// tempPattern names a job's temp file so leaks are attributable to a job.
func tempPattern(jobID, role, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s-%s-*.%s", jobID, role, ext)
}
