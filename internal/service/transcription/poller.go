package transcription

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"nexus-support-service/internal/observability/logging"
)

// Poller refreshes live jobs on a fixed interval.
type Poller struct {
	svc      *Service
	interval time.Duration
	log      zerolog.Logger
}

// NewPoller creates a poller. An interval of zero or less disables it.
func NewPoller(svc *Service, interval time.Duration) *Poller {
	return &Poller{
		svc:      svc,
		interval: interval,
		log:      logging.WithComponent("transcription-poller"),
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	if p.interval <= 0 {
		p.log.Info().Msg("Transcription poller disabled")
		return
	}

	p.log.Info().Dur("interval", p.interval).Msg("Transcription poller started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Transcription poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick refreshes every non-terminal job once and returns how many finished.
func (p *Poller) Tick(ctx context.Context) int {
	active, err := p.svc.Active(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to list active jobs")
		return 0
	}

	finished := 0
	for _, j := range active {
		if ctx.Err() != nil {
			break
		}
		job, err := p.svc.Refresh(ctx, j.ID)
		if err != nil {
			p.log.Warn().Err(err).Str("jobId", j.ID).Msg("Failed to refresh job")
			continue
		}
		if job.State.IsTerminal() {
			finished++
		}
	}

	if len(active) > 0 {
		p.log.Debug().Int("active", len(active)).Int("finished", finished).Msg("Poll cycle complete")
	}
	return finished
}
