package memory

import (
	"context"
	"sync"
	"time"

	"classroom-quiz-service/internal/domain"
)

// Scheduler fires tasks with in-process timers. It is not durable
// across restarts; the Redis scheduler is the production path.
type Scheduler struct {
	dispatch func(context.Context, domain.Task)
	mu       sync.Mutex
	timers   []*time.Timer
	stopped  bool
}

func NewScheduler(dispatch func(context.Context, domain.Task)) *Scheduler {
	return &Scheduler{dispatch: dispatch}
}

func (s *Scheduler) ScheduleAt(_ context.Context, runAt time.Time, task domain.Task) error {
	delay := time.Until(runAt)
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	timer := time.AfterFunc(delay, func() {
		s.dispatch(context.Background(), task)
	})
	s.timers = append(s.timers, timer)
	return nil
}

// Stop cancels all pending timers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = nil
}
