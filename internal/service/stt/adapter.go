// Package stt defines the interface for batch Speech-to-Text providers.
package stt

import (
	"context"
	"errors"
	"fmt"

	"nexus-support-service/internal/transcript"
)

// ErrJobNotFound is returned when the provider has no job for a handle.
var ErrJobNotFound = errors.New("stt: job not found")

// State is the provider-side state of a transcription job.
type State string

const (
	StateQueued     State = "QUEUED"
	StateInProgress State = "IN_PROGRESS"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// JobRequest describes a recording to transcribe.
type JobRequest struct {
	JobName string
	// MediaKey is the storage key of the uploaded recording.
	MediaKey string
	// MediaURI is the provider-readable location of the recording.
	MediaURI string
	// MediaFormat is the lowercase container format: wav, mp3, mp4 or flac.
	MediaFormat string
	// OutputKey is where providers that write results to storage put them.
	OutputKey             string
	LanguageCode          string
	MaxSpeakers           int
	ShowSpeakerLabels     bool
	ChannelIdentification bool
}

// Handle identifies a started job on the provider.
type Handle struct {
	Ref       string `json:"ref"`
	OutputKey string `json:"outputKey,omitempty"`
}

// JobStatus is the result of one status poll.
type JobStatus struct {
	State         State
	FailureReason string
}

// Provider defines the interface for STT providers (AWS, Google, mock).
type Provider interface {
	// Name returns the provider identifier used in logs and metrics.
	Name() string

	// StartJob submits an asynchronous transcription job.
	StartJob(ctx context.Context, req JobRequest) (Handle, error)

	// JobStatus polls the provider once.
	JobStatus(ctx context.Context, h Handle) (JobStatus, error)

	// Words returns the word tokens of a completed job in provider order.
	Words(ctx context.Context, h Handle) ([]transcript.WordToken, error)
}

// DefaultJobRequest fills the fixed job settings: speaker labels on, at most
// two speakers and no channel identification.
func DefaultJobRequest(jobName, languageCode string, maxSpeakers int) JobRequest {
	if languageCode == "" {
		languageCode = "en-US"
	}
	if maxSpeakers <= 0 {
		maxSpeakers = 2
	}
	return JobRequest{
		JobName:           jobName,
		LanguageCode:      languageCode,
		MaxSpeakers:       maxSpeakers,
		ShowSpeakerLabels: true,
	}
}

// Validate checks the fields every provider needs.
func (r JobRequest) Validate() error {
	switch {
	case r.JobName == "":
		return fmt.Errorf("stt: job name is required")
	case r.MediaKey == "" && r.MediaURI == "":
		return fmt.Errorf("stt: media location is required")
	case r.MediaFormat == "":
		return fmt.Errorf("stt: media format is required")
	}
	return nil
}
