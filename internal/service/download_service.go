package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/ytmux/internal/artifact"
	"github.com/iconidentify/ytmux/internal/config"
	"github.com/iconidentify/ytmux/internal/domain"
	"github.com/iconidentify/ytmux/internal/downloader"
	"github.com/iconidentify/ytmux/internal/muxer"
	"github.com/iconidentify/ytmux/internal/progress"
	"github.com/iconidentify/ytmux/internal/repository"
)

// DeliverableName is the file name presented to the caller.
const DeliverableName = "video_con_audio.mp4"

// URLValidator reports whether a source URL is acceptable.
type URLValidator interface {
	ValidateURL(raw string) bool
}

// Artifacts allocates and releases a job's temporary files.
type Artifacts interface {
	Allocate(jobID domain.JobID) (domain.ArtifactPaths, error)
	Release(jobID domain.JobID)
}

// DownloadRequest describes one download.
type DownloadRequest struct {
	SourceURL  string
	EncodingID string
	// ProgressKey selects the progress topic; empty means the shared topic.
	ProgressKey string
}

// Deliverable is the muxed result handed to the caller.
type Deliverable struct {
	Name    string
	Size    int64
	ModTime time.Time
	Content io.ReadSeeker
}

// DeliverFunc transfers a deliverable to the caller. Content is only valid
// for the duration of the call.
type DeliverFunc func(ctx context.Context, d Deliverable) error

// Result summarizes a finished job.
type Result struct {
	JobID domain.JobID
	Size  int64
	// DeliveryErr is set when the transfer to the caller failed. The job
	// itself still counts as completed.
	DeliveryErr error
	Elapsed     time.Duration
}

// DownloadService runs the fetch, mux and deliver pipeline.
type DownloadService struct {
	validator URLValidator
	fetcher   downloader.Fetcher
	muxer     muxer.Muxer
	artifacts Artifacts
	jobRepo   repository.JobRepository
	publisher progress.Publisher
	cfg       config.DownloadConfig
	logger    *slog.Logger

	slots chan struct{}
}

// NewDownloadService creates a new download service.
func NewDownloadService(
	validator URLValidator,
	fetcher downloader.Fetcher,
	mux muxer.Muxer,
	artifacts Artifacts,
	jobRepo repository.JobRepository,
	publisher progress.Publisher,
	cfg config.DownloadConfig,
	logger *slog.Logger,
) *DownloadService {
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 1
	}
	return &DownloadService{
		validator: validator,
		fetcher:   fetcher,
		muxer:     mux,
		artifacts: artifacts,
		jobRepo:   jobRepo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		slots:     make(chan struct{}, cfg.MaxConcurrentJobs),
	}
}

// ActiveJobs returns the number of occupied pipeline slots.
func (s *DownloadService) ActiveJobs() int {
	return len(s.slots)
}

// Run executes one job end to end. Temporary files are always released
// before Run returns, whatever the outcome.
func (s *DownloadService) Run(ctx context.Context, req DownloadRequest, deliver DeliverFunc) (*Result, error) {
	req.SourceURL = strings.TrimSpace(req.SourceURL)
	req.EncodingID = strings.TrimSpace(req.EncodingID)

	if !s.validator.ValidateURL(req.SourceURL) {
		return nil, fmt.Errorf("%w: invalid url", domain.ErrInvalidRequest)
	}
	if req.EncodingID == "" {
		return nil, fmt.Errorf("%w: missing itag", domain.ErrInvalidRequest)
	}
	if deliver == nil {
		return nil, fmt.Errorf("%w: no delivery target", domain.ErrInvalidRequest)
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	jobID := domain.JobID("job_" + uuid.New().String())
	job := domain.NewJob(jobID, req.SourceURL, req.EncodingID, req.ProgressKey)
	logger := s.logger.With("job_id", jobID)

	paths, err := s.artifacts.Allocate(jobID)
	if err != nil {
		return nil, fmt.Errorf("allocate artifacts: %w", err)
	}
	job.Paths = paths

	if err := s.jobRepo.Add(ctx, job); err != nil {
		s.artifacts.Release(jobID)
		return nil, fmt.Errorf("register job: %w", err)
	}

	// Cleanup must run even when ctx is already cancelled.
	defer func() {
		s.artifacts.Release(jobID)
		if err := s.jobRepo.Remove(context.Background(), jobID); err != nil {
			logger.Warn("failed to unregister job", "error", err)
		}
	}()

	logger.Info("download started",
		"url", req.SourceURL,
		"itag", req.EncodingID,
	)

	reporter := progress.NewReporter(s.publisher, req.ProgressKey)

	// Video stream
	if err := s.advance(ctx, job, domain.StageFetchingVideo); err != nil {
		return nil, err
	}
	if err := s.fetchTo(ctx, req.SourceURL, downloader.VideoEncoding(req.EncodingID), paths.Video, reporter, domain.ProgressVideo); err != nil {
		return nil, s.fail(ctx, logger, job, domain.ErrFetchFailed, err)
	}

	// Audio stream
	if err := s.advance(ctx, job, domain.StageFetchingAudio); err != nil {
		return nil, err
	}
	if err := s.fetchTo(ctx, req.SourceURL, downloader.BestAudio(), paths.Audio, reporter, domain.ProgressAudio); err != nil {
		return nil, s.fail(ctx, logger, job, domain.ErrFetchFailed, err)
	}

	for _, p := range []string{paths.Video, paths.Audio} {
		if err := artifact.Verify(p); err != nil {
			return nil, s.fail(ctx, logger, job, domain.ErrMissingArtifact, err)
		}
	}

	// Mux
	if err := s.advance(ctx, job, domain.StageMuxing); err != nil {
		return nil, err
	}
	muxReq := muxer.Request{
		VideoPath:  paths.Video,
		AudioPath:  paths.Audio,
		OutputPath: paths.Output,
	}
	err = s.muxer.Mux(ctx, muxReq, func(percent float64) {
		reporter.Report(domain.ProgressMux, percent)
	})
	if err != nil {
		return nil, s.fail(ctx, logger, job, domain.ErrMuxFailed, err)
	}
	if err := artifact.Verify(paths.Output); err != nil {
		return nil, s.fail(ctx, logger, job, domain.ErrMissingOutput, err)
	}
	reporter.Complete(domain.ProgressMux)

	// Deliver
	if err := s.advance(ctx, job, domain.StageDelivering); err != nil {
		return nil, err
	}
	result, err := s.deliver(ctx, logger, job, deliver)
	if err != nil {
		return nil, err
	}

	if err := s.advance(ctx, job, domain.StageDone); err != nil {
		return nil, err
	}
	result.Elapsed = time.Since(start)

	logger.Info("download completed",
		"size", result.Size,
		"delivered", result.DeliveryErr == nil,
		"elapsed", result.Elapsed,
	)

	return result, nil
}

func (s *DownloadService) deliver(ctx context.Context, logger *slog.Logger, job *domain.Job, deliver DeliverFunc) (*Result, error) {
	f, err := os.Open(job.Paths.Output)
	if err != nil {
		return nil, s.fail(ctx, logger, job, domain.ErrMissingOutput, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, s.fail(ctx, logger, job, domain.ErrMissingOutput, err)
	}

	result := &Result{
		JobID: job.ID,
		Size:  info.Size(),
	}

	err = deliver(ctx, Deliverable{
		Name:    DeliverableName,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Content: f,
	})
	if err != nil {
		result.DeliveryErr = domain.NewPipelineError(job.ID, job.Stage, domain.ErrDeliveryFailed, err)
		logger.Warn("delivery failed", "error", err)
	}

	return result, nil
}

// fetchTo streams the selected source into path.
func (s *DownloadService) fetchTo(
	ctx context.Context,
	sourceURL string,
	sel downloader.Selector,
	path string,
	reporter *progress.Reporter,
	stage domain.ProgressStage,
) error {
	stream, err := s.fetcher.Fetch(ctx, sourceURL, sel, func(received, total int64) {
		reporter.Bytes(stage, received, total)
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	_, copyErr := io.Copy(f, stream)
	closeErr := f.Close()
	if copyErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("download interrupted: %w", ctxErr)
		}
		return fmt.Errorf("write stream: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", path, closeErr)
	}

	reporter.Complete(stage)
	return nil
}

func (s *DownloadService) advance(ctx context.Context, job *domain.Job, to domain.Stage) error {
	if err := job.Advance(to); err != nil {
		return err
	}
	if err := s.jobRepo.Update(ctx, job); err != nil {
		s.logger.Debug("job registry update failed", "job_id", job.ID, "error", err)
	}
	return nil
}

// fail records err against the job's current stage and returns it as a
// PipelineError of the given kind.
func (s *DownloadService) fail(ctx context.Context, logger *slog.Logger, job *domain.Job, kind, err error) error {
	perr := domain.NewPipelineError(job.ID, job.Stage, kind, err)
	if ferr := job.Fail(perr); ferr != nil {
		logger.Warn("failed to mark job failed", "error", ferr)
	}
	if uerr := s.jobRepo.Update(context.WithoutCancel(ctx), job); uerr != nil {
		logger.Debug("job registry update failed", "error", uerr)
	}

	logger.Error("download failed",
		"stage", perr.Stage,
		"error", err,
	)
	return perr
}

// acquire takes a pipeline slot, waiting up to the queue timeout.
func (s *DownloadService) acquire(ctx context.Context) (func(), error) {
	var once sync.Once
	release := func() {
		once.Do(func() { <-s.slots })
	}

	select {
	case s.slots <- struct{}{}:
		return release, nil
	default:
	}

	if s.cfg.QueueTimeout <= 0 {
		return nil, domain.ErrBusy
	}

	timer := time.NewTimer(s.cfg.QueueTimeout)
	defer timer.Stop()

	select {
	case s.slots <- struct{}{}:
		return release, nil
	case <-timer.C:
		return nil, domain.ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
