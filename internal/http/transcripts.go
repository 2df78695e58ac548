package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nexus-support-service/internal/apperrors"
	"nexus-support-service/internal/models"
	"nexus-support-service/internal/observability/metrics"
	"nexus-support-service/internal/transcript"
)

// handleGroupTranscript groups posted word records into utterances. The
// optional pause_threshold query overrides the configured threshold.
func (a *API) handleGroupTranscript(c *gin.Context) {
	var records []models.TranscriptRecord
	if !bindJSON(c, &records) {
		return
	}

	threshold := a.cfg.PauseThreshold
	if v := c.Query("pause_threshold"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			respondError(c, apperrors.InvalidInput("pause_threshold", "must be a positive duration such as 1s or 1500ms"))
			return
		}
		threshold = d
	}

	tokens, err := transcript.ParseRecords(records)
	if err == nil {
		err = transcript.ValidateTokens(tokens)
	}
	if err != nil {
		respondError(c, apperrors.InvalidInput("records", err.Error()).WithCause(err))
		return
	}

	start := time.Now()
	utterances := transcript.Grouper{PauseThreshold: threshold}.Group(tokens)
	metrics.DefaultMetrics.RecordGrouping(len(tokens), len(utterances), time.Since(start).Seconds())

	c.JSON(http.StatusOK, transcript.ToRecords(utterances))
}
