package http

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/export"
	"nexus-support-service/internal/models"
	"nexus-support-service/internal/service/transcription"
)

func (a *API) handleTranscribeHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "audio-transcription-api"})
}

func (a *API) handleSubmitTranscription(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		if appErr := bodyError(err); appErr.Code == apperrors.ErrCodePayloadTooLarge {
			respondError(c, appErr)
			return
		}
		respondError(c, apperrors.MissingField("file"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, apperrors.InvalidInput("file", "could not read upload").WithCause(err))
		return
	}
	defer f.Close()

	job, err := a.transcription.Submit(c.Request.Context(), fh.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message":      "Transcription started",
		"job_id":       job.ID,
		"status_check": "/transcription-status/" + job.ID,
	})
}

func (a *API) handleTranscriptionStatus(c *gin.Context) {
	job, err := a.transcription.Status(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	switch job.State {
	case transcription.StateCompleted:
		records := job.Utterances
		if records == nil {
			records = []models.TranscriptRecord{}
		}
		c.JSON(http.StatusOK, records)
	case transcription.StateFailed:
		respondError(c, apperrors.JobFailed(job.ID, job.FailureReason))
	case transcription.StateCancelled:
		respondError(c, apperrors.Conflict("transcription job was cancelled").WithDetail("job_id", job.ID))
	default:
		c.JSON(http.StatusOK, gin.H{"status": "in_progress"})
	}
}

func (a *API) handleCancelTranscription(c *gin.Context) {
	job, err := a.transcription.Cancel(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": job.ID, "state": job.State})
}

// handleTranscriptionEvents streams job events over WebSocket, optionally
// restricted to one job.
func (a *API) handleTranscriptionEvents(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID != "" {
		if _, err := a.transcription.Get(c.Request.Context(), jobID); err != nil {
			respondError(c, err)
			return
		}
	}
	a.events.ServeWS(c.Writer, c.Request, jobID)
}

func (a *API) handleTranscriptPDF(c *gin.Context) {
	job, err := a.transcription.Status(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if job.State != transcription.StateCompleted {
		respondError(c, apperrors.Conflict("transcription is not complete").
			WithDetail("job_id", job.ID).
			WithDetail("state", string(job.State)))
		return
	}

	meta := export.TranscriptMeta{JobID: job.ID, Provider: job.Provider}
	if job.FinishedAt != nil {
		meta.CompletedAt = *job.FinishedAt
	}
	var buf bytes.Buffer
	if err := export.TranscriptPDF(&buf, meta, job.Utterances); err != nil {
		respondError(c, apperrors.Internal(err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+job.ID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
