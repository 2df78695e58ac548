// Package models defines the wire records and events shared across the service.
package models

// TranscriptRecord is the wire form of a word or a grouped utterance.
// AgentName carries the speaker label; the field name is kept for existing consumers.
type TranscriptRecord struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	AgentName string `json:"agent_name"`
	Content   string `json:"content"`
}

// TranscriptionStatusEvent is published whenever a transcription job changes state.
type TranscriptionStatusEvent struct {
	EventType     string `json:"eventType"`
	JobID         string `json:"jobId"`
	Provider      string `json:"provider"`
	State         string `json:"state"`
	FailureReason string `json:"failureReason,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// TranscriptionCompletedEvent carries the grouped transcript of a completed job.
type TranscriptionCompletedEvent struct {
	EventType  string             `json:"eventType"`
	JobID      string             `json:"jobId"`
	Provider   string             `json:"provider"`
	Utterances []TranscriptRecord `json:"utterances"`
	WordCount  int                `json:"wordCount"`
	Timestamp  int64              `json:"timestamp"`
}

// Event types.
const (
	EventTranscriptionStatus    = "transcription.status"
	EventTranscriptionCompleted = "transcription.completed"
	EventTranscriptionFailed    = "transcription.failed"
)
