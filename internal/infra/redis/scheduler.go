package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const taskQueueKey = "scheduler:tasks"

// Scheduler is a durable task queue on a Redis sorted set scored by
// run-at time. Entries survive process restarts; any worker instance
// may claim a due task, and a claim (ZREM) succeeds on exactly one.
type Scheduler struct {
	client *redis.Client
	clock  func() time.Time
}

func NewScheduler(client *redis.Client) *Scheduler {
	return &Scheduler{client: client, clock: time.Now}
}

// NewSchedulerWithClock is test-only for deterministic due checks.
func NewSchedulerWithClock(client *redis.Client, clock func() time.Time) *Scheduler {
	return &Scheduler{client: client, clock: clock}
}

// queuedTask is the wire form of a scheduler entry. The id makes each
// enqueue unique so rescheduling a quiz adds entries rather than
// silently overwriting the sorted-set member.
type queuedTask struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	QuizID string `json:"quizId"`
}

func (s *Scheduler) ScheduleAt(ctx context.Context, runAt time.Time, task domain.Task) error {
	payload, err := json.Marshal(queuedTask{
		ID:     uuid.NewString(),
		Type:   task.Type,
		QuizID: task.QuizID.String(),
	})
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	err = s.client.ZAdd(ctx, taskQueueKey, redis.Z{
		Score:  float64(runAt.Unix()),
		Member: string(payload),
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Due claims every task whose run-at time has passed. Malformed
// entries are dropped with a log line rather than wedging the queue.
func (s *Scheduler) Due(ctx context.Context) ([]domain.Task, error) {
	members, err := s.client.ZRangeByScore(ctx, taskQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(s.clock().Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch due tasks: %w", err)
	}

	tasks := make([]domain.Task, 0, len(members))
	for _, member := range members {
		removed, err := s.client.ZRem(ctx, taskQueueKey, member).Result()
		if err != nil {
			return tasks, fmt.Errorf("claim task: %w", err)
		}
		if removed == 0 {
			// another worker claimed it first
			continue
		}
		var queued queuedTask
		if err := json.Unmarshal([]byte(member), &queued); err != nil {
			log.Printf("drop malformed scheduled task: %v", err)
			continue
		}
		quizID, err := uuid.Parse(queued.QuizID)
		if err != nil {
			log.Printf("drop scheduled task with bad quiz id %q: %v", queued.QuizID, err)
			continue
		}
		tasks = append(tasks, domain.Task{Type: queued.Type, QuizID: quizID})
	}
	return tasks, nil
}

// Run polls for due tasks until the context is canceled, dispatching
// each claimed task in turn.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, dispatch func(context.Context, domain.Task)) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tasks, err := s.Due(ctx)
			if err != nil {
				log.Printf("scheduler poll: %v", err)
				continue
			}
			for _, task := range tasks {
				dispatch(ctx, task)
			}
		}
	}
}
