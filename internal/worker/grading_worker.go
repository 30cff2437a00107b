package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examly/examly-backend/internal/config"
	"github.com/examly/examly-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	GradePollTimeout = 1 * time.Second
	GradeRetryDelay  = 2 * time.Second
)

// GradingWorker drains the evaluation queue and grades one attempt per
// message. Evaluation is idempotent, so redelivery of the same job is safe.
type GradingWorker struct {
	grading *service.GradingService
	rdb     *redis.Client
	log     zerolog.Logger
}

func NewGradingWorker(grading *service.GradingService, rdb *redis.Client, log zerolog.Logger) *GradingWorker {
	return &GradingWorker{
		grading: grading,
		rdb:     rdb,
		log:     log.With().Str("component", "grading_worker").Logger(),
	}
}

func (w *GradingWorker) Start(ctx context.Context) {
	w.log.Info().Msg("GradingWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("GradingWorker stopped")
			return

		default:
			item, err := w.rdb.BLPop(ctx, GradePollTimeout, config.WorkerKey.EvaluateAttemptsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var job service.EvaluationJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			if err := w.grading.Evaluate(ctx, job.ExamID, job.StudentID); err != nil {
				w.log.Error().Err(err).Str("exam_id", job.ExamID).Str("student_id", job.StudentID).
					Msg("evaluation failed — requeueing")
				w.rdb.RPush(ctx, config.WorkerKey.EvaluateAttemptsQueue, item[1])
				// Back off so a persistent failure does not spin the queue.
				select {
				case <-ctx.Done():
				case <-time.After(GradeRetryDelay):
				}
			}
		}
	}
}
