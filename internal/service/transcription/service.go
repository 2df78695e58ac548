package transcription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/models"
	"nexus-support-service/internal/observability/logging"
	"nexus-support-service/internal/observability/metrics"
	"nexus-support-service/internal/observability/tracing"
	"nexus-support-service/internal/repository"
	"nexus-support-service/internal/service/stt"
	"nexus-support-service/internal/storage"
	"nexus-support-service/internal/transcript"
)

// AllowedExtensions lists the accepted recording formats.
var AllowedExtensions = []string{".wav", ".mp3", ".mp4", ".flac"}

const (
	// JobNamePrefix prefixes every generated job name.
	JobNamePrefix = "transcribe_"
	// MediaPrefix is the storage prefix of uploaded recordings.
	MediaPrefix = "audio-uploads/"
	// OutputPrefix is the storage prefix of provider output.
	OutputPrefix = "transcriptions/"

	DefaultMaxUploadBytes int64 = 100 << 20
)

// Publisher publishes job events. *events.Publisher satisfies it.
type Publisher interface {
	PublishStatus(ctx context.Context, key string, event any) error
	PublishTranscript(ctx context.Context, key string, event any) error
}

// Config holds job settings.
type Config struct {
	LanguageCode   string
	MaxSpeakers    int
	MaxUploadBytes int64
	PauseThreshold time.Duration
}

// Service coordinates uploads, provider jobs and transcript grouping.
type Service struct {
	provider  stt.Provider
	store     storage.Storage
	jobs      repository.Repository[Job]
	publisher Publisher
	grouper   transcript.Grouper
	cfg       Config
	metrics   *metrics.Metrics
	log       zerolog.Logger

	newJobName func() string
	now        func() time.Time

	// per-job locks serialise refresh and cancel of the same job; an entry
	// lives only while a caller holds or waits for it
	locksMu sync.Mutex
	locks   map[string]*jobLock
}

type jobLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates a transcription service.
func NewService(provider stt.Provider, store storage.Storage, jobs repository.Repository[Job], publisher Publisher, cfg Config) *Service {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Service{
		provider:   provider,
		store:      store,
		jobs:       jobs,
		publisher:  publisher,
		grouper:    transcript.Grouper{PauseThreshold: cfg.PauseThreshold},
		cfg:        cfg,
		metrics:    metrics.DefaultMetrics,
		log:        logging.WithComponent("transcription"),
		newJobName: newJobName,
		now:        func() time.Time { return time.Now().UTC() },
		locks:      make(map[string]*jobLock),
	}
}

func newJobName() string {
	return JobNamePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Provider returns the name of the configured STT provider.
func (s *Service) Provider() string {
	return s.provider.Name()
}

func (s *Service) lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &jobLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// lockedJobs returns how many job ids currently have a lock entry.
func (s *Service) lockedJobs() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

// Submit uploads a recording and starts a provider job for it.
func (s *Service) Submit(ctx context.Context, filename string, body io.Reader) (_ *Job, err error) {
	ctx, span := tracing.Start(ctx, "transcription.submit", attribute.String("file.name", filename))
	defer func() { tracing.End(span, err) }()

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtension(ext) {
		return nil, apperrors.UnsupportedMedia(AllowedExtensions)
	}

	data, err := io.ReadAll(io.LimitReader(body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, apperrors.InvalidInput("file", "could not read upload").WithCause(err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, apperrors.PayloadTooLarge(s.cfg.MaxUploadBytes)
	}
	if len(data) == 0 {
		return nil, apperrors.InvalidInput("file", "file is empty")
	}

	jobName := s.newJobName()
	mediaKey := MediaPrefix + jobName + ext
	outputKey := OutputPrefix + jobName + ".json"
	logger := logging.WithJob(jobName, s.provider.Name())
	span.SetAttributes(attribute.String("job.id", jobName))

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.store.Upload(ctx, mediaKey, bytes.NewReader(data), contentType); err != nil {
		logger.Error().Err(err).Str("mediaKey", mediaKey).Msg("Failed to upload recording")
		return nil, apperrors.ExternalService("storage", err)
	}

	req := stt.DefaultJobRequest(jobName, s.cfg.LanguageCode, s.cfg.MaxSpeakers)
	req.MediaKey = mediaKey
	req.MediaURI = s.store.URI(mediaKey)
	req.MediaFormat = strings.TrimPrefix(ext, ".")
	req.OutputKey = outputKey

	start := time.Now()
	handle, err := s.provider.StartJob(ctx, req)
	s.metrics.RecordSTTCall(s.provider.Name(), "start", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordSTTError(s.provider.Name(), stt.ErrorType(err))
		logger.Error().Err(err).Msg("Failed to start transcription job")
		if delErr := s.store.Delete(ctx, mediaKey); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			logger.Warn().Err(delErr).Str("mediaKey", mediaKey).Msg("Failed to remove orphaned recording")
		}
		return nil, apperrors.ExternalService(s.provider.Name(), err)
	}

	now := s.now()
	job := &Job{
		ID:        jobName,
		Filename:  filename,
		MediaKey:  mediaKey,
		MediaURI:  req.MediaURI,
		OutputKey: outputKey,
		SizeBytes: int64(len(data)),
		Provider:  s.provider.Name(),
		Handle:    handle,
		State:     StateSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.Put(ctx, job.ID, *job); err != nil {
		logger.Error().Err(err).Msg("Failed to store transcription job")
		return nil, apperrors.DatabaseError(err)
	}

	s.metrics.RecordJobSubmitted(job.Provider, job.SizeBytes)
	logger.Info().
		Str("filename", filename).
		Int64("sizeBytes", job.SizeBytes).
		Str("mediaUri", job.MediaURI).
		Msg("Transcription job submitted")

	s.publishStatus(ctx, job)
	return job, nil
}

func allowedExtension(ext string) bool {
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// Get returns the stored job without polling the provider.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("transcription job", id)
		}
		return nil, apperrors.DatabaseError(err)
	}
	return &job, nil
}

// Status refreshes a non-terminal job and returns it.
func (s *Service) Status(ctx context.Context, id string) (*Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.State.IsTerminal() {
		return job, nil
	}
	return s.Refresh(ctx, id)
}

// Refresh polls the provider once and applies the result.
func (s *Service) Refresh(ctx context.Context, id string) (_ *Job, err error) {
	ctx, span := tracing.Start(ctx, "transcription.refresh", attribute.String("job.id", id))
	defer func() { tracing.End(span, err) }()

	unlock := s.lock(id)
	defer unlock()

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.State.IsTerminal() {
		return job, nil
	}
	logger := logging.WithJob(job.ID, job.Provider)

	start := time.Now()
	status, err := s.provider.JobStatus(ctx, job.Handle)
	s.metrics.RecordSTTCall(job.Provider, "status", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordSTTError(job.Provider, stt.ErrorType(err))
		if errors.Is(err, stt.ErrJobNotFound) {
			job.FailureReason = "provider job not found"
			return s.apply(ctx, job, StateFailed, logger)
		}
		logger.Warn().Err(err).Msg("Failed to poll transcription job")
		return nil, apperrors.ExternalService(job.Provider, err)
	}
	span.SetAttributes(attribute.String("stt.state", string(status.State)))

	switch status.State {
	case stt.StateQueued:
		return job, nil
	case stt.StateInProgress:
		return s.apply(ctx, job, StateInProgress, logger)
	case stt.StateFailed:
		reason := status.FailureReason
		if reason == "" {
			reason = "transcription failed"
		}
		job.FailureReason = reason
		return s.apply(ctx, job, StateFailed, logger)
	case stt.StateCompleted:
		return s.complete(ctx, job, logger)
	}
	return nil, apperrors.ExternalService(job.Provider, fmt.Errorf("unknown provider state %q", status.State))
}

func (s *Service) complete(ctx context.Context, job *Job, logger zerolog.Logger) (*Job, error) {
	start := time.Now()
	words, err := s.provider.Words(ctx, job.Handle)
	s.metrics.RecordSTTCall(job.Provider, "words", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordSTTError(job.Provider, stt.ErrorType(err))
		logger.Warn().Err(err).Msg("Failed to fetch transcript")
		return nil, apperrors.ExternalService(job.Provider, err)
	}

	if err := transcript.ValidateTokens(words); err != nil {
		logger.Error().Err(err).Msg("Provider returned an invalid transcript")
		job.FailureReason = "invalid transcript: " + err.Error()
		return s.apply(ctx, job, StateFailed, logger)
	}

	groupStart := time.Now()
	utterances := s.grouper.Group(words)
	s.metrics.RecordGrouping(len(words), len(utterances), time.Since(groupStart).Seconds())

	job.WordCount = len(words)
	job.Utterances = transcript.ToRecords(utterances)
	return s.apply(ctx, job, StateCompleted, logger)
}

// apply transitions, stores and announces the job.
func (s *Service) apply(ctx context.Context, job *Job, next State, logger zerolog.Logger) (*Job, error) {
	from := job.State
	changed, err := job.transition(next, s.now())
	if err != nil {
		s.metrics.RecordTransitionDenied(string(from), string(next))
		return nil, apperrors.Conflict(err.Error()).WithCause(err)
	}
	if !changed {
		return job, nil
	}

	if err := s.jobs.Put(ctx, job.ID, *job); err != nil {
		logger.Error().Err(err).Msg("Failed to store transcription job")
		return nil, apperrors.DatabaseError(err)
	}

	ev := logger.Info()
	if next == StateFailed {
		ev = logger.Warn().Str("failureReason", job.FailureReason)
	}
	ev.Str("from", string(from)).Str("to", string(next)).Msg("Transcription job state changed")

	if next.IsTerminal() {
		s.metrics.RecordJobFinished(job.Provider, string(next), job.UpdatedAt.Sub(job.CreatedAt).Seconds())
	}

	s.publishStatus(ctx, job)
	if next == StateCompleted {
		s.publishTranscript(ctx, job)
	}
	return job, nil
}

// Cancel stops polling a live job.
func (s *Service) Cancel(ctx context.Context, id string) (*Job, error) {
	unlock := s.lock(id)
	defer unlock()

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, job, StateCancelled, logging.WithJob(job.ID, job.Provider))
}

// Active returns every non-terminal job.
func (s *Service) Active(ctx context.Context) ([]Job, error) {
	all, err := s.jobs.List(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	active := make([]Job, 0, len(all))
	for _, j := range all {
		if !j.State.IsTerminal() {
			active = append(active, j)
		}
	}
	return active, nil
}

func (s *Service) publishStatus(ctx context.Context, job *Job) {
	if s.publisher == nil {
		return
	}
	ev := models.TranscriptionStatusEvent{
		EventType:     models.EventTranscriptionStatus,
		JobID:         job.ID,
		Provider:      job.Provider,
		State:         string(job.State),
		FailureReason: job.FailureReason,
		Timestamp:     s.now().UnixMilli(),
	}
	if job.State == StateFailed {
		ev.EventType = models.EventTranscriptionFailed
	}
	if err := s.publisher.PublishStatus(ctx, job.ID, ev); err != nil {
		s.log.Error().Err(err).Str("jobId", job.ID).Msg("Failed to publish status event")
	}
}

func (s *Service) publishTranscript(ctx context.Context, job *Job) {
	if s.publisher == nil {
		return
	}
	ev := models.TranscriptionCompletedEvent{
		EventType:  models.EventTranscriptionCompleted,
		JobID:      job.ID,
		Provider:   job.Provider,
		Utterances: job.Utterances,
		WordCount:  job.WordCount,
		Timestamp:  s.now().UnixMilli(),
	}
	if err := s.publisher.PublishTranscript(ctx, job.ID, ev); err != nil {
		s.log.Error().Err(err).Str("jobId", job.ID).Msg("Failed to publish transcript event")
	}
}
