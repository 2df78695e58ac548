package transcription

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/models"
	"nexus-support-service/internal/repository/memory"
	"nexus-support-service/internal/service/stt"
	"nexus-support-service/internal/service/stt/mock"
	"nexus-support-service/internal/storage/local"
)

type recordingPublisher struct {
	mu          sync.Mutex
	statuses    []models.TranscriptionStatusEvent
	transcripts []models.TranscriptionCompletedEvent
}

func (p *recordingPublisher) PublishStatus(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, event.(models.TranscriptionStatusEvent))
	return nil
}

func (p *recordingPublisher) PublishTranscript(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transcripts = append(p.transcripts, event.(models.TranscriptionCompletedEvent))
	return nil
}

type fixture struct {
	svc       *Service
	provider  *mock.Provider
	store     *local.Storage
	jobs      *memory.Repository[Job]
	publisher *recordingPublisher
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := &fixture{
		provider:  mock.New(),
		store:     store,
		jobs:      memory.New[Job](),
		publisher: &recordingPublisher{},
	}
	f.svc = NewService(f.provider, f.store, f.jobs, f.publisher, cfg)
	return f
}

func expectCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError with code %s, got %v", code, err)
	}
	if appErr.Code != code {
		t.Errorf("expected code %s, got %s", code, appErr.Code)
	}
}

var jobNamePattern = regexp.MustCompile(`^transcribe_[0-9a-f]{32}$`)

func TestService_Submit(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	job, err := f.svc.Submit(ctx, "call.WAV", strings.NewReader("RIFF....WAVE"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !jobNamePattern.MatchString(job.ID) {
		t.Errorf("unexpected job name %s", job.ID)
	}
	if job.State != StateSubmitted {
		t.Errorf("expected SUBMITTED, got %s", job.State)
	}
	if job.MediaKey != "audio-uploads/"+job.ID+".wav" {
		t.Errorf("unexpected media key %s", job.MediaKey)
	}
	if job.OutputKey != "transcriptions/"+job.ID+".json" {
		t.Errorf("unexpected output key %s", job.OutputKey)
	}
	if job.Provider != "mock" || job.Handle.Ref != job.ID {
		t.Errorf("unexpected provider binding %s %+v", job.Provider, job.Handle)
	}
	if job.SizeBytes != 12 {
		t.Errorf("expected 12 bytes, got %d", job.SizeBytes)
	}

	exists, err := f.store.Exists(ctx, job.MediaKey)
	if err != nil || !exists {
		t.Errorf("expected uploaded recording, exists=%v err=%v", exists, err)
	}
	if f.jobs.Len() != 1 {
		t.Errorf("expected 1 stored job, got %d", f.jobs.Len())
	}
	if len(f.publisher.statuses) != 1 || f.publisher.statuses[0].State != "SUBMITTED" {
		t.Errorf("expected one SUBMITTED status event, got %+v", f.publisher.statuses)
	}
}

func TestService_Submit_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		body     string
		code     apperrors.ErrorCode
	}{
		{"unsupported extension", "notes.txt", "hello", apperrors.ErrCodeUnsupportedMedia},
		{"no extension", "recording", "hello", apperrors.ErrCodeUnsupportedMedia},
		{"too large", "call.mp3", "123456789", apperrors.ErrCodePayloadTooLarge},
		{"empty", "call.flac", "", apperrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{MaxUploadBytes: 8})
			_, err := f.svc.Submit(context.Background(), tt.filename, strings.NewReader(tt.body))
			expectCode(t, err, tt.code)
			if f.jobs.Len() != 0 {
				t.Errorf("expected no stored job, got %d", f.jobs.Len())
			}
		})
	}
}

func TestService_Submit_AtLimit(t *testing.T) {
	f := newFixture(t, Config{MaxUploadBytes: 8})
	if _, err := f.svc.Submit(context.Background(), "call.mp4", strings.NewReader("12345678")); err != nil {
		t.Errorf("expected upload at the limit to succeed, got %v", err)
	}
}

func TestService_StatusLifecycle(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	job, err := f.svc.Submit(ctx, "call.wav", strings.NewReader("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job, err = f.svc.Status(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.State != StateInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", job.State)
	}

	job, err = f.svc.Status(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.State != StateCompleted {
		t.Fatalf("expected COMPLETED, got %s", job.State)
	}
	if job.WordCount != 27 {
		t.Errorf("expected 27 words, got %d", job.WordCount)
	}
	if len(job.Utterances) != 5 {
		t.Fatalf("expected 5 utterances, got %d", len(job.Utterances))
	}
	first := job.Utterances[0]
	if first.AgentName != "spk_0" || first.Content != "Thanks for calling support" {
		t.Errorf("unexpected first utterance %+v", first)
	}
	if first.Timestamp != "1970-01-01 00:00:00.000000" {
		t.Errorf("unexpected first timestamp %s", first.Timestamp)
	}
	if job.FinishedAt == nil {
		t.Error("expected finished timestamp")
	}

	// terminal jobs are returned without polling again
	again, err := f.svc.Status(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.State != StateCompleted {
		t.Errorf("expected COMPLETED, got %s", again.State)
	}

	if len(f.publisher.statuses) != 3 {
		t.Errorf("expected 3 status events, got %d", len(f.publisher.statuses))
	}
	if len(f.publisher.transcripts) != 1 {
		t.Fatalf("expected 1 transcript event, got %d", len(f.publisher.transcripts))
	}
	tev := f.publisher.transcripts[0]
	if tev.EventType != models.EventTranscriptionCompleted || len(tev.Utterances) != 5 {
		t.Errorf("unexpected transcript event %+v", tev)
	}
}

func TestService_PauseThreshold(t *testing.T) {
	f := newFixture(t, Config{PauseThreshold: 5 * time.Second})
	f.provider.PollsToComplete = 1
	ctx := context.Background()

	job, _ := f.svc.Submit(ctx, "call.wav", strings.NewReader("audio"))
	job, err := f.svc.Refresh(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// with a 5s threshold the customer's two lines merge
	if len(job.Utterances) != 4 {
		t.Errorf("expected 4 utterances, got %d", len(job.Utterances))
	}
}

func TestService_ProviderFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.provider.PollsToComplete = 1
	f.provider.FailReason = "The media format could not be determined"
	ctx := context.Background()

	job, _ := f.svc.Submit(ctx, "call.wav", strings.NewReader("audio"))
	job, err := f.svc.Status(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.State != StateFailed {
		t.Fatalf("expected FAILED, got %s", job.State)
	}
	if job.FailureReason != "The media format could not be determined" {
		t.Errorf("unexpected failure reason %q", job.FailureReason)
	}

	last := f.publisher.statuses[len(f.publisher.statuses)-1]
	if last.EventType != models.EventTranscriptionFailed || last.FailureReason == "" {
		t.Errorf("unexpected failure event %+v", last)
	}
	if len(f.publisher.transcripts) != 0 {
		t.Error("expected no transcript event for failed job")
	}
}

func TestService_ProviderLostJob(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	job, _ := f.svc.Submit(ctx, "call.wav", strings.NewReader("audio"))

	// a fresh provider no longer knows the job
	f.svc.provider = mock.New()

	job, err := f.svc.Refresh(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.State != StateFailed {
		t.Errorf("expected FAILED, got %s", job.State)
	}
}

func TestService_Cancel(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	job, _ := f.svc.Submit(ctx, "call.wav", strings.NewReader("audio"))

	job, err := f.svc.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.State != StateCancelled {
		t.Fatalf("expected CANCELLED, got %s", job.State)
	}

	// cancelling twice is a no-op
	if _, err := f.svc.Cancel(ctx, job.ID); err != nil {
		t.Errorf("expected no error cancelling twice, got %v", err)
	}

	// cancelled jobs are not polled
	job, err = f.svc.Refresh(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.State != StateCancelled {
		t.Errorf("expected CANCELLED after refresh, got %s", job.State)
	}
}

func TestService_Cancel_Completed(t *testing.T) {
	f := newFixture(t, Config{})
	f.provider.PollsToComplete = 1
	ctx := context.Background()

	job, _ := f.svc.Submit(ctx, "call.wav", strings.NewReader("audio"))
	if _, err := f.svc.Refresh(ctx, job.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.Cancel(ctx, job.ID)
	expectCode(t, err, apperrors.ErrCodeConflict)
	if !errors.Is(err, ErrJobTerminal) {
		t.Errorf("expected ErrJobTerminal, got %v", err)
	}
}

func TestService_NotFound(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.Status(ctx, "transcribe_missing")
	expectCode(t, err, apperrors.ErrCodeNotFound)

	_, err = f.svc.Cancel(ctx, "transcribe_missing")
	expectCode(t, err, apperrors.ErrCodeNotFound)
}

type failingProvider struct {
	*mock.Provider
}

func (failingProvider) StartJob(ctx context.Context, req stt.JobRequest) (stt.Handle, error) {
	return stt.Handle{}, errors.New("provider unavailable")
}

func TestService_Submit_ProviderError(t *testing.T) {
	f := newFixture(t, Config{})
	f.svc.provider = failingProvider{mock.New()}

	_, err := f.svc.Submit(context.Background(), "call.wav", strings.NewReader("audio"))
	expectCode(t, err, apperrors.ErrCodeExternalService)
	if f.jobs.Len() != 0 {
		t.Errorf("expected no stored job, got %d", f.jobs.Len())
	}
}

func TestService_Active(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	a, _ := f.svc.Submit(ctx, "a.wav", strings.NewReader("audio"))
	if _, err := f.svc.Submit(ctx, "b.wav", strings.NewReader("audio")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active, err := f.svc.Active(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("expected 1 active job, got %d", len(active))
	}
}

func TestService_JobLocksReleased(t *testing.T) {
	f := newFixture(t, Config{})
	f.provider.PollsToComplete = 1
	ctx := context.Background()

	job, err := f.svc.Submit(ctx, "call.wav", strings.NewReader("RIFF....WAVE"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Status(ctx, job.ID)
		}()
	}
	wg.Wait()

	_, err = f.svc.Cancel(ctx, job.ID)
	expectCode(t, err, apperrors.ErrCodeConflict)
	if n := f.svc.lockedJobs(); n != 0 {
		t.Errorf("expected no lock entries after callers return, got %d", n)
	}
}

func TestService_JobLockSerialises(t *testing.T) {
	f := newFixture(t, Config{})

	unlock := f.svc.lock("transcribe_1")
	acquired := make(chan struct{})
	released := make(chan struct{})
	go func() {
		release := f.svc.lock("transcribe_1")
		close(acquired)
		release()
		close(released)
	}()

	select {
	case <-acquired:
		t.Fatal("second caller acquired a held job lock")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired
	<-released

	if n := f.svc.lockedJobs(); n != 0 {
		t.Errorf("expected lock entry removed, got %d", n)
	}
}
