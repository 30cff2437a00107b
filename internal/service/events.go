package service

import (
	"context"
	"encoding/json"

	"github.com/examly/examly-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// EvaluationJob is the payload pushed onto the grading queue.
type EvaluationJob struct {
	ExamID    string `json:"exam_id"`
	StudentID string `json:"student_id"`
}

// MonitorEvent is broadcast on the per-exam monitor channel so connected
// instructor dashboards see attempt progress live.
type MonitorEvent struct {
	Type        string `json:"type"`
	ExamID      string `json:"exam_id"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	At          int64  `json:"at"`
	Score       *int   `json:"score,omitempty"`
	MaxScore    *int   `json:"max_score,omitempty"`
}

const (
	MonitorJoined        = "joined"
	MonitorSubmitted     = "submitted"
	MonitorEvaluated     = "evaluated"
	MonitorGradingFailed = "grading_failed"
)

// Events decouples the services from the redis transport used for grading
// jobs and live monitor broadcasts.
type Events interface {
	EnqueueEvaluation(ctx context.Context, examID, studentID string) error
	PublishMonitor(ctx context.Context, ev MonitorEvent) error
}

// RedisEvents implements Events on a redis list (queue) and pub/sub channel.
type RedisEvents struct {
	rdb *redis.Client
}

func NewRedisEvents(rdb *redis.Client) *RedisEvents {
	return &RedisEvents{rdb: rdb}
}

func (e *RedisEvents) EnqueueEvaluation(ctx context.Context, examID, studentID string) error {
	payload, err := json.Marshal(EvaluationJob{ExamID: examID, StudentID: studentID})
	if err != nil {
		return err
	}
	return e.rdb.RPush(ctx, config.WorkerKey.EvaluateAttemptsQueue, payload).Err()
}

func (e *RedisEvents) PublishMonitor(ctx context.Context, ev MonitorEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return e.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(ev.ExamID), payload).Err()
}
