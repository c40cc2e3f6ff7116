// Package pipeline turns a media selection into one deliverable byte stream:
// it fetches the chosen renditions, muxes them when needed, and streams the
// result to a sink, removing every temporary file on the way out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mediakit/internal/apperr"
	"mediakit/internal/downloader"
	"mediakit/internal/encoder"
	"mediakit/internal/metrics"
	"mediakit/internal/model"
	"mediakit/internal/progress"
	"mediakit/internal/util"
	"mediakit/internal/util/format"
)

// DefaultStreamStartTimeout bounds the wait for the first byte of a stream.
const DefaultStreamStartTimeout = 20 * time.Second

// ErrStreamStartTimeout is returned when a stream produces no data in time.
var ErrStreamStartTimeout = errors.New("stream did not start in time")

// Source catalogs a URL and opens byte streams for its renditions.
type Source interface {
	Catalog(ctx context.Context, url string) (model.MediaInfo, error)
	Open(ctx context.Context, url string, r model.Rendition, so downloader.StreamOptions) (io.ReadCloser, error)
}

// Muxer combines local video and audio files into one output file.
type Muxer interface {
	Mux(ctx context.Context, spec encoder.MuxSpec) error
}

// Deliverable is the final byte stream handed to a Sink.
type Deliverable struct {
	Filename    string
	ContentType string
	Size        int64 // -1 when unknown
	Body        io.Reader
}

// Sink consumes a deliverable. HTTP responses and local files implement it.
type Sink interface {
	Deliver(ctx context.Context, d Deliverable) error
}

// Request is one job: a catalogued source and the renditions to deliver.
type Request struct {
	JobID     string // generated when empty
	Info      model.MediaInfo
	Selection model.Selection
	Container model.Container
}

// Result describes a delivered job.
type Result struct {
	JobID       string
	Filename    string
	ContentType string
	Bytes       int64
	Merged      bool
}

// MergeError reports the stage at which a job failed.
type MergeError struct {
	Stage progress.Stage
	Err   error
}

func (e *MergeError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *MergeError) Unwrap() error { return e.Err }

// Service runs merge jobs.
type Service struct {
	source             Source
	muxer              Muxer
	reporter           progress.Reporter
	metrics            metrics.Sink
	logger             zerolog.Logger
	tempDir            string
	streamStartTimeout time.Duration
	newID              func() string
}

// Option configures a Service.
type Option func(*Service)

// WithSource sets the catalog/stream provider.
func WithSource(src Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithMuxer sets the mux/transcode collaborator.
func WithMuxer(m Muxer) Option {
	return func(s *Service) {
		s.muxer = m
	}
}

// WithReporter attaches a progress reporter (used by TUI).
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithMetrics attaches the observability sink notified on job start and end.
func WithMetrics(m metrics.Sink) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithTempDir sets the directory for temporary media files.
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempDir = dir
	}
}

// WithStreamStartTimeout bounds the wait for the first byte of each stream.
func WithStreamStartTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.streamStartTimeout = d
	}
}

// NewService constructs a new Service with the provided options.
// It applies sensible defaults for missing components.
func NewService(opts ...Option) *Service {
	s := &Service{logger: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	if s.reporter == nil {
		s.reporter = progress.Nop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.streamStartTimeout <= 0 {
		s.streamStartTimeout = DefaultStreamStartTimeout
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Catalog returns the media info for url.
func (s *Service) Catalog(ctx context.Context, url string) (model.MediaInfo, error) {
	if s.source == nil {
		return model.MediaInfo{}, apperr.Upstream("catalog", "media provider unavailable", errors.New("no source configured"))
	}
	return s.source.Catalog(ctx, url)
}

// Download catalogs url, selects renditions for req and produces the
// deliverable into sink. An empty selection is reported as NotFound.
func (s *Service) Download(ctx context.Context, url string, req model.SelectionRequest, sink Sink) (Result, error) {
	return s.DownloadJob(ctx, "", url, req, sink)
}

// DownloadJob is Download under a caller-chosen job ID, so progress events
// can be matched to the caller's own bookkeeping. Failures before the job
// starts are reported as a job result as well.
func (s *Service) DownloadJob(ctx context.Context, jobID, url string, req model.SelectionRequest, sink Sink) (Result, error) {
	if jobID == "" {
		jobID = s.newID()
	}
	s.update(jobID, progress.StageResolving, "Fetching formats")

	info, err := s.Catalog(ctx, url)
	var sel model.Selection
	if err == nil {
		sel = downloader.SelectRenditions(info.Renditions, req)
		if sel.Empty() {
			err = apperr.NotFound("download", "no downloadable format found")
		}
	}
	if err != nil {
		s.logger.Debug().Err(err).Str("job", jobID).Str("url", url).Msg("job not started")
		s.reporter.Update(progress.Update{JobID: jobID, Stage: progress.StageError, Percent: -1, Message: err.Error()})
		s.reporter.Result(progress.Result{JobID: jobID, Err: err})
		return Result{JobID: jobID}, err
	}
	return s.Produce(ctx, Request{JobID: jobID, Info: info, Selection: sel, Container: req.Container}, sink)
}

// Produce fetches, muxes when needed, and streams the deliverable for req.
// No temporary file created by the job survives its return.
func (s *Service) Produce(ctx context.Context, req Request, sink Sink) (Result, error) {
	if req.JobID == "" {
		req.JobID = s.newID()
	}
	log := s.logger.With().Str("job", req.JobID).Logger()

	s.metrics.DownloadStarted()
	start := time.Now()
	res, err := s.produce(ctx, req, sink, log)
	s.metrics.DownloadFinished(err == nil)

	s.update(req.JobID, progress.StageCleanup, "Cleaning up")
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("job failed")
		s.reporter.Update(progress.Update{JobID: req.JobID, Stage: progress.StageError, Percent: -1, Message: err.Error()})
		s.reporter.Result(progress.Result{JobID: req.JobID, Err: err})
		return res, err
	}

	log.Info().
		Str("file", res.Filename).
		Int64("bytes", res.Bytes).
		Bool("merged", res.Merged).
		Dur("elapsed", time.Since(start)).
		Msg("job delivered")
	s.reporter.Update(progress.Update{
		JobID:   req.JobID,
		Stage:   progress.StageCompleted,
		Percent: 100,
		Message: fmt.Sprintf("Saved: %s (%s)", res.Filename, format.HumanizeBytes(res.Bytes)),
	})
	s.reporter.Result(progress.Result{JobID: req.JobID, OutputPath: res.Filename, Bytes: res.Bytes})
	return res, nil
}

func (s *Service) produce(ctx context.Context, req Request, sink Sink, log zerolog.Logger) (Result, error) {
	if s.source == nil {
		return Result{}, fail(progress.StageResolving, errors.New("no source configured"))
	}
	p, err := PlanFor(req)
	if err != nil {
		return Result{}, fail(progress.StageResolving, err)
	}
	res := Result{JobID: req.JobID, Filename: p.Filename, ContentType: p.ContentType, Merged: p.Mode == ModeMerge}

	switch p.Mode {
	case ModeDirect:
		res.Bytes, err = s.streamDirect(ctx, req, p, sink)
	case ModeMerge, ModeTranscode:
		if s.muxer == nil {
			return res, fail(progress.StageMuxing, errors.New("no muxer configured"))
		}
		res.Bytes, err = s.streamMerged(ctx, req, p, sink, log)
	}
	return res, err
}

// streamDirect delivers a single rendition as it arrives. No temp files.
func (s *Service) streamDirect(ctx context.Context, req Request, p Plan, sink Sink) (int64, error) {
	r := p.Primary(req.Selection)
	s.update(req.JobID, progress.StageStreaming, "Streaming "+r.Quality)

	rc, err := s.openStream(ctx, req, *r, progress.StageStreaming)
	if err != nil {
		return 0, fail(progress.StageStreaming, err)
	}
	defer rc.Close()

	cr := &countingReader{r: rc}
	if err := sink.Deliver(ctx, Deliverable{Filename: p.Filename, ContentType: p.ContentType, Size: -1, Body: cr}); err != nil {
		return cr.n, fail(progress.StageStreaming, err)
	}
	return cr.n, nil
}

// streamMerged fetches the inputs to temp files, runs the muxer and streams
// the output file.
func (s *Service) streamMerged(ctx context.Context, req Request, p Plan, sink Sink, log zerolog.Logger) (int64, error) {
	sel := req.Selection
	var videoTmp, audioTmp *util.TempFile
	var err error

	if p.Mode == ModeMerge {
		videoTmp, err = util.NewTempFile(s.tempDir, tempPattern(req.JobID, "video", sel.Video.Ext))
		if err != nil {
			return 0, fail(progress.StageWritingTemp, err)
		}
		defer s.release(log, videoTmp)
	}
	audioTmp, err = util.NewTempFile(s.tempDir, tempPattern(req.JobID, "audio", sel.Audio.Ext))
	if err != nil {
		return 0, fail(progress.StageWritingTemp, err)
	}
	defer s.release(log, audioTmp)

	outTmp, err := util.NewTempFile(s.tempDir, tempPattern(req.JobID, "out", p.Ext))
	if err != nil {
		return 0, fail(progress.StageWritingTemp, err)
	}
	defer s.release(log, outTmp)

	// Both fetches must finish before muxing starts.
	g, gctx := errgroup.WithContext(ctx)
	if videoTmp != nil {
		g.Go(func() error {
			return s.fetchToFile(gctx, req, *sel.Video, progress.StageFetchingVideo, videoTmp)
		})
	}
	g.Go(func() error {
		return s.fetchToFile(gctx, req, *sel.Audio, progress.StageFetchingAudio, audioTmp)
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	s.update(req.JobID, progress.StageMuxing, "Muxing")
	spec := encoder.MuxSpec{
		JobID:            req.JobID,
		AudioPath:        audioTmp.Path,
		OutputPath:       outTmp.Path,
		AudioBitrateKbps: int(math.Round(sel.Audio.AudioBitrateKbps)),
		DurationSec:      req.Info.DurationSec,
	}
	if videoTmp != nil {
		spec.VideoPath = videoTmp.Path
	}
	if err := s.muxer.Mux(ctx, spec); err != nil {
		return 0, fail(progress.StageMuxing, err)
	}

	// Inputs are no longer needed; free the disk before streaming.
	s.release(log, videoTmp)
	s.release(log, audioTmp)

	s.update(req.JobID, progress.StageStreaming, "Streaming")
	f, err := os.Open(outTmp.Path)
	if err != nil {
		return 0, fail(progress.StageStreaming, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return 0, fail(progress.StageStreaming, err)
	}

	cr := &countingReader{r: f}
	if err := sink.Deliver(ctx, Deliverable{Filename: p.Filename, ContentType: p.ContentType, Size: fi.Size(), Body: cr}); err != nil {
		return cr.n, fail(progress.StageStreaming, err)
	}
	return cr.n, nil
}

// fetchToFile copies one rendition stream into tf.
func (s *Service) fetchToFile(ctx context.Context, req Request, r model.Rendition, stage progress.Stage, tf *util.TempFile) error {
	s.update(req.JobID, stage, fmt.Sprintf("Fetching %s %s", r.ID, r.Quality))

	rc, err := s.openStream(ctx, req, r, stage)
	if err != nil {
		return fail(stage, err)
	}
	defer rc.Close()

	f, err := tf.Create()
	if err != nil {
		return fail(progress.StageWritingTemp, err)
	}
	w := &trackingWriter{w: f}
	_, copyErr := io.Copy(w, rc)
	closeErr := f.Close()
	switch {
	case w.err != nil:
		return fail(progress.StageWritingTemp, w.err)
	case copyErr != nil:
		return fail(stage, copyErr)
	case closeErr != nil:
		return fail(progress.StageWritingTemp, closeErr)
	}
	return nil
}

// openStream opens r and waits for its first byte, giving up after the
// stream start timeout.
func (s *Service) openStream(ctx context.Context, req Request, r model.Rendition, stage progress.Stage) (io.ReadCloser, error) {
	sctx, cancel := context.WithCancel(ctx)
	rc, err := s.source.Open(sctx, req.Info.SourceURL, r, downloader.StreamOptions{
		JobID:    req.JobID,
		Stage:    stage,
		Reporter: s.reporter,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	type first struct {
		n   int
		err error
	}
	buf := make([]byte, 32*1024)
	ch := make(chan first, 1)
	go func() {
		n, err := rc.Read(buf)
		ch <- first{n, err}
	}()

	timer := time.NewTimer(s.streamStartTimeout)
	defer timer.Stop()

	abort := func(err error) (io.ReadCloser, error) {
		cancel()
		_ = rc.Close()
		return nil, err
	}

	select {
	case got := <-ch:
		if got.err != nil && !(errors.Is(got.err, io.EOF) && got.n > 0) {
			if errors.Is(got.err, io.EOF) {
				got.err = fmt.Errorf("rendition %s: empty stream", r.ID)
			}
			return abort(got.err)
		}
		return &startedStream{
			Reader: io.MultiReader(bytesReader(buf[:got.n]), rc),
			rc:     rc,
			cancel: cancel,
		}, nil
	case <-timer.C:
		return abort(fmt.Errorf("rendition %s: %w after %s", r.ID, ErrStreamStartTimeout, s.streamStartTimeout))
	case <-ctx.Done():
		return abort(ctx.Err())
	}
}

func (s *Service) update(jobID string, stage progress.Stage, msg string) {
	s.reporter.Update(progress.Update{JobID: jobID, Stage: stage, Percent: -1, Message: msg})
}

// release deletes tf. Failures are logged and never returned.
func (s *Service) release(log zerolog.Logger, tf *util.TempFile) {
	if tf == nil {
		return
	}
	if err := tf.Release(); err != nil {
		log.Warn().Err(apperr.Cleanup("release temp file", err)).Str("path", tf.Path).Msg("temp file not removed")
	}
}

// fail wraps err with the failing stage. Unclassified errors become upstream
// failures.
func fail(stage progress.Stage, err error) error {
	var me *MergeError
	if errors.As(err, &me) {
		return err
	}
	if apperr.KindOf(err) == apperr.KindUnknown {
		err = apperr.Upstream(string(stage), "media processing failed", err)
	}
	return &MergeError{Stage: stage, Err: err}
}
