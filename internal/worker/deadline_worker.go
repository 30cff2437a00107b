package worker

import (
	"context"
	"time"

	"github.com/examly/examly-backend/internal/service"
	"github.com/rs/zerolog"
)

const (
	SweepBatchSize = 500
	// StuckGracePeriod is how long an attempt may sit in SUBMITTED before
	// the sweep assumes its grading job was lost and re-enqueues it.
	StuckGracePeriod = 2 * time.Minute
)

// DeadlineWorker is the server-side deadline authority. It periodically
// auto-submits attempts whose end time has passed, regardless of whether
// the client is still connected, and re-enqueues grading for attempts
// stuck in SUBMITTED.
type DeadlineWorker struct {
	attempts *service.AttemptService
	interval time.Duration
	log      zerolog.Logger
}

func NewDeadlineWorker(attempts *service.AttemptService, interval time.Duration, log zerolog.Logger) *DeadlineWorker {
	return &DeadlineWorker{
		attempts: attempts,
		interval: interval,
		log:      log.With().Str("component", "deadline_worker").Logger(),
	}
}

func (w *DeadlineWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("DeadlineWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("DeadlineWorker stopped")
			return

		case <-ticker.C:
			closed, err := w.attempts.SweepExpired(ctx, SweepBatchSize)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Error().Err(err).Msg("deadline sweep failed")
				}
				continue
			}
			if closed > 0 {
				w.log.Info().Int("closed", closed).Msg("expired attempts auto-submitted")
			}

			requeued, err := w.attempts.RequeueStuck(ctx, StuckGracePeriod, SweepBatchSize)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Error().Err(err).Msg("stuck-attempt sweep failed")
				}
				continue
			}
			if requeued > 0 {
				w.log.Warn().Int("requeued", requeued).Msg("stuck attempts re-enqueued for grading")
			}
		}
	}
}
