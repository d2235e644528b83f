package redis

import (
	"context"
	"testing"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSchedulerClaimsOnlyDueTasks(t *testing.T) {
	client := newTestClient(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sched := NewSchedulerWithClock(client, func() time.Time { return now })
	ctx := context.Background()

	dueQuiz := uuid.New()
	futureQuiz := uuid.New()
	if err := sched.ScheduleAt(ctx, now.Add(-time.Minute), domain.Task{Type: domain.TaskQuizReminder, QuizID: dueQuiz}); err != nil {
		t.Fatalf("schedule due: %v", err)
	}
	if err := sched.ScheduleAt(ctx, now.Add(time.Hour), domain.Task{Type: domain.TaskReportGeneration, QuizID: futureQuiz}); err != nil {
		t.Fatalf("schedule future: %v", err)
	}

	tasks, err := sched.Due(ctx)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 due task, got %d", len(tasks))
	}
	if tasks[0].Type != domain.TaskQuizReminder || tasks[0].QuizID != dueQuiz {
		t.Fatalf("unexpected task %+v", tasks[0])
	}

	// claimed tasks must not come back
	again, err := sched.Due(ctx)
	if err != nil {
		t.Fatalf("due again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no tasks on second poll, got %d", len(again))
	}
}

func TestSchedulerFutureTaskBecomesDue(t *testing.T) {
	client := newTestClient(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sched := NewSchedulerWithClock(client, func() time.Time { return now })
	ctx := context.Background()

	quizID := uuid.New()
	if err := sched.ScheduleAt(ctx, now.Add(time.Minute), domain.Task{Type: domain.TaskReportGeneration, QuizID: quizID}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	tasks, err := sched.Due(ctx)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("task due too early: %+v", tasks)
	}

	now = now.Add(2 * time.Minute)
	tasks, err = sched.Due(ctx)
	if err != nil {
		t.Fatalf("due after advance: %v", err)
	}
	if len(tasks) != 1 || tasks[0].QuizID != quizID {
		t.Fatalf("expected the scheduled task, got %+v", tasks)
	}
}

func TestSchedulerRescheduleKeepsBothEntries(t *testing.T) {
	client := newTestClient(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sched := NewSchedulerWithClock(client, func() time.Time { return now })
	ctx := context.Background()

	quizID := uuid.New()
	if err := sched.ScheduleAt(ctx, now.Add(-2*time.Minute), domain.Task{Type: domain.TaskQuizReminder, QuizID: quizID}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := sched.ScheduleAt(ctx, now.Add(-time.Minute), domain.Task{Type: domain.TaskQuizReminder, QuizID: quizID}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	tasks, err := sched.Due(ctx)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 entries after reschedule, got %d", len(tasks))
	}
}
