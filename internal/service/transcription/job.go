package transcription

import (
	"time"

	"nexus-support-service/internal/models"
	"nexus-support-service/internal/service/stt"
)

// Job is a transcription job as stored in the job repository.
type Job struct {
	ID            string                    `json:"id"`
	Filename      string                    `json:"filename"`
	MediaKey      string                    `json:"mediaKey"`
	MediaURI      string                    `json:"mediaUri"`
	OutputKey     string                    `json:"outputKey"`
	SizeBytes     int64                     `json:"sizeBytes"`
	Provider      string                    `json:"provider"`
	Handle        stt.Handle                `json:"handle"`
	State         State                     `json:"state"`
	FailureReason string                    `json:"failureReason,omitempty"`
	WordCount     int                       `json:"wordCount,omitempty"`
	Utterances    []models.TranscriptRecord `json:"utterances,omitempty"`
	CreatedAt     time.Time                 `json:"createdAt"`
	UpdatedAt     time.Time                 `json:"updatedAt"`
	FinishedAt    *time.Time                `json:"finishedAt,omitempty"`
}

// transition moves the job to next. It returns whether the state changed.
func (j *Job) transition(next State, now time.Time) (bool, error) {
	if err := j.State.CanTransition(next); err != nil {
		return false, err
	}
	if j.State == next {
		return false, nil
	}
	j.State = next
	j.UpdatedAt = now
	if next.IsTerminal() {
		j.FinishedAt = &now
	}
	return true, nil
}
