// Package mock provides a mock STT provider for running without cloud credentials.
// Jobs advance one state per status poll and complete with a scripted
// two-speaker support call.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"nexus-support-service/internal/service/stt"
	"nexus-support-service/internal/transcript"
)

// Line is one scripted speaking turn.
type Line struct {
	Speaker string
	Offset  time.Duration // start of the line relative to the recording start
	Text    string
}

// WordSpacing is the simulated distance between consecutive words of a line.
const WordSpacing = 150 * time.Millisecond

// DefaultScript is a short support call between an agent and a customer.
var DefaultScript = []Line{
	{Speaker: "spk_0", Offset: 0, Text: "Thanks for calling support"},
	{Speaker: "spk_1", Offset: 2 * time.Second, Text: "I want to cancel my subscription"},
	{Speaker: "spk_1", Offset: 5 * time.Second, Text: "I've been waiting for over an hour"},
	{Speaker: "spk_0", Offset: 8 * time.Second, Text: "I can help you with that"},
	{Speaker: "spk_1", Offset: 10 * time.Second, Text: "Thank you very much"},
}

type job struct {
	polls int
	state stt.State
}

// Provider implements stt.Provider with scripted responses.
type Provider struct {
	// PollsToComplete is the number of status polls before the job finishes.
	PollsToComplete int
	// FailReason makes every job fail with this reason when set.
	FailReason string
	Script     []Line
	// Base is the timestamp of the recording start.
	Base time.Time

	mu   sync.Mutex
	jobs map[string]*job
}

// New creates a mock provider that completes a job on its second poll.
func New() *Provider {
	return &Provider{
		PollsToComplete: 2,
		Script:          DefaultScript,
		Base:            time.Unix(0, 0).UTC(),
		jobs:            make(map[string]*job),
	}
}

func (p *Provider) Name() string { return "mock" }

// StartJob registers the job in the QUEUED state.
func (p *Provider) StartJob(ctx context.Context, req stt.JobRequest) (stt.Handle, error) {
	if err := req.Validate(); err != nil {
		return stt.Handle{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.jobs == nil {
		p.jobs = make(map[string]*job)
	}
	if _, exists := p.jobs[req.JobName]; exists {
		return stt.Handle{}, fmt.Errorf("mock: job %s already exists", req.JobName)
	}
	p.jobs[req.JobName] = &job{state: stt.StateQueued}
	return stt.Handle{Ref: req.JobName, OutputKey: req.OutputKey}, nil
}

// JobStatus advances the job by one state.
func (p *Provider) JobStatus(ctx context.Context, h stt.Handle) (stt.JobStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	j, ok := p.jobs[h.Ref]
	if !ok {
		return stt.JobStatus{}, stt.ErrJobNotFound
	}
	if j.state == stt.StateCompleted || j.state == stt.StateFailed {
		return p.status(j), nil
	}

	j.polls++
	switch {
	case j.polls < p.PollsToComplete:
		j.state = stt.StateInProgress
	case p.FailReason != "":
		j.state = stt.StateFailed
	default:
		j.state = stt.StateCompleted
	}
	return p.status(j), nil
}

func (p *Provider) status(j *job) stt.JobStatus {
	s := stt.JobStatus{State: j.state}
	if j.state == stt.StateFailed {
		s.FailureReason = p.FailReason
	}
	return s
}

// Words returns the script as word tokens once the job has completed.
func (p *Provider) Words(ctx context.Context, h stt.Handle) ([]transcript.WordToken, error) {
	p.mu.Lock()
	j, ok := p.jobs[h.Ref]
	p.mu.Unlock()
	if !ok {
		return nil, stt.ErrJobNotFound
	}
	if j.state != stt.StateCompleted {
		return nil, fmt.Errorf("mock: job %s is %s", h.Ref, j.state)
	}
	return ScriptWords(p.Base, p.Script), nil
}

// ScriptWords expands lines into one token per word.
func ScriptWords(base time.Time, script []Line) []transcript.WordToken {
	words := make([]transcript.WordToken, 0)
	for _, line := range script {
		for i, w := range strings.Fields(line.Text) {
			words = append(words, transcript.WordToken{
				SpeakerLabel: line.Speaker,
				Content:      w,
				Timestamp:    base.Add(line.Offset + time.Duration(i)*WordSpacing),
			})
		}
	}
	return words
}
