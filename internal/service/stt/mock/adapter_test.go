package mock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"nexus-support-service/internal/service/stt"
	"nexus-support-service/internal/transcript"
)

func request(name string) stt.JobRequest {
	req := stt.DefaultJobRequest(name, "en-US", 2)
	req.MediaKey = "audio-uploads/" + name + ".wav"
	req.MediaFormat = "wav"
	req.OutputKey = "transcriptions/" + name + ".json"
	return req
}

func TestProvider_New(t *testing.T) {
	p := New()
	if p.Name() != "mock" {
		t.Errorf("expected name mock, got %s", p.Name())
	}
	if p.PollsToComplete != 2 {
		t.Errorf("expected 2 polls to complete, got %d", p.PollsToComplete)
	}
}

func TestProvider_AdvancesOneStatePerPoll(t *testing.T) {
	p := New()
	ctx := context.Background()

	h, err := p.StartJob(ctx, request("j1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Ref != "j1" || h.OutputKey != "transcriptions/j1.json" {
		t.Errorf("unexpected handle %+v", h)
	}

	want := []stt.State{stt.StateInProgress, stt.StateCompleted, stt.StateCompleted}
	for i, w := range want {
		s, err := p.JobStatus(ctx, h)
		if err != nil {
			t.Fatalf("poll %d: unexpected error: %v", i, err)
		}
		if s.State != w {
			t.Errorf("poll %d: expected %s, got %s", i, w, s.State)
		}
	}
}

func TestProvider_Fails(t *testing.T) {
	p := New()
	p.PollsToComplete = 1
	p.FailReason = "unsupported codec"
	ctx := context.Background()

	h, _ := p.StartJob(ctx, request("j1"))
	s, err := p.JobStatus(ctx, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State != stt.StateFailed {
		t.Errorf("expected FAILED, got %s", s.State)
	}
	if s.FailureReason != "unsupported codec" {
		t.Errorf("expected failure reason, got %q", s.FailureReason)
	}
	if _, err := p.Words(ctx, h); err == nil {
		t.Error("expected error reading words of failed job")
	}
}

func TestProvider_DuplicateJob(t *testing.T) {
	p := New()
	if _, err := p.StartJob(context.Background(), request("dup")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.StartJob(context.Background(), request("dup")); err == nil {
		t.Error("expected error for duplicate job name")
	}
}

func TestProvider_InvalidRequest(t *testing.T) {
	p := New()
	if _, err := p.StartJob(context.Background(), stt.JobRequest{}); err == nil {
		t.Error("expected validation error")
	}
}

func TestProvider_UnknownJob(t *testing.T) {
	p := New()
	_, err := p.JobStatus(context.Background(), stt.Handle{Ref: "missing"})
	if !errors.Is(err, stt.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
	_, err = p.Words(context.Background(), stt.Handle{Ref: "missing"})
	if !errors.Is(err, stt.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestProvider_WordsBeforeCompletion(t *testing.T) {
	p := New()
	h, _ := p.StartJob(context.Background(), request("j1"))
	if _, err := p.Words(context.Background(), h); err == nil {
		t.Error("expected error reading words of queued job")
	}
}

func TestScriptWords_GroupsIntoTurns(t *testing.T) {
	words := ScriptWords(New().Base, DefaultScript)

	if len(words) != 27 {
		t.Fatalf("expected 27 words, got %d", len(words))
	}
	if words[0].Content != "Thanks" || words[0].SpeakerLabel != "spk_0" {
		t.Errorf("unexpected first word %+v", words[0])
	}

	// the customer's two lines are 3s apart and split on the pause
	utts := transcript.Group(words)
	if len(utts) != 5 {
		t.Fatalf("expected 5 utterances, got %d", len(utts))
	}
	if utts[1].Content != "I want to cancel my subscription" {
		t.Errorf("unexpected content %q", utts[1].Content)
	}
}

func TestProvider_ThreadSafety(t *testing.T) {
	p := New()
	ctx := context.Background()
	h, _ := p.StartJob(ctx, request("shared"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.JobStatus(ctx, h)
			_, _ = p.Words(ctx, h)
		}()
	}
	wg.Wait()

	s, _ := p.JobStatus(ctx, h)
	if s.State != stt.StateCompleted {
		t.Errorf("expected COMPLETED, got %s", s.State)
	}
}
