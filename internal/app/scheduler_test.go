package app_test

import (
	"context"
	"testing"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
)

func newTestDispatcher(f *fixture) *app.TaskDispatcher {
	return app.NewTaskDispatcher(f.store, f.dir, f.announcer, f.reports())
}

func TestQuizCreationSchedulesTasks(t *testing.T) {
	f := newFixture()
	scheduledAt := f.now.Add(time.Hour)
	quiz := mustCreateQuiz(t, f, scheduledAt, 30)

	entries := f.scheduler.entries
	if len(entries) != 2 {
		t.Fatalf("expected 2 scheduled tasks, got %d", len(entries))
	}

	reminder, report := entries[0], entries[1]
	if reminder.task.Type != domain.TaskQuizReminder || reminder.task.QuizID != quiz.ID {
		t.Fatalf("unexpected reminder task %+v", reminder.task)
	}
	if !reminder.runAt.Equal(scheduledAt.Add(-time.Minute)) {
		t.Fatalf("reminder at %v, want one minute before start", reminder.runAt)
	}
	if report.task.Type != domain.TaskReportGeneration || report.task.QuizID != quiz.ID {
		t.Fatalf("unexpected report task %+v", report.task)
	}
	if !report.runAt.Equal(quiz.Deadline.Add(time.Minute)) {
		t.Fatalf("report at %v, want one minute after deadline", report.runAt)
	}
}

func TestQuizUpdateReschedules(t *testing.T) {
	f := newFixture()
	quiz := mustCreateQuiz(t, f, f.now.Add(time.Hour), 30)

	newScheduledAt := f.now.Add(3 * time.Hour)
	updated, err := f.catalog().UpdateQuiz(context.Background(), adminID, quiz.ID, app.QuizInput{
		Title:           "Midterm",
		ScheduledAt:     newScheduledAt,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("update quiz: %v", err)
	}

	entries := f.scheduler.entries
	if len(entries) != 4 {
		t.Fatalf("expected 4 scheduled tasks after update, got %d", len(entries))
	}
	if !entries[2].runAt.Equal(newScheduledAt.Add(-time.Minute)) {
		t.Fatalf("rescheduled reminder at %v", entries[2].runAt)
	}
	if !entries[3].runAt.Equal(updated.Deadline.Add(time.Minute)) {
		t.Fatalf("rescheduled report at %v", entries[3].runAt)
	}
}

func TestDispatcherSendsReminderToAllMembers(t *testing.T) {
	f := newFixture()
	quiz := mustCreateQuiz(t, f, f.now.Add(time.Hour), 30)

	dispatcher := newTestDispatcher(f)
	dispatcher.Dispatch(context.Background(), domain.Task{Type: domain.TaskQuizReminder, QuizID: quiz.ID})

	want := "Reminder: the quiz 'Midterm' is starting in 1 minute."
	for _, userID := range []string{adminID, studentID, student2ID} {
		messages := f.announcer.notifications[userID]
		if len(messages) != 1 || messages[0] != want {
			t.Fatalf("notifications for %s: %v", userID, messages)
		}
	}
}

func TestDispatcherGeneratesReport(t *testing.T) {
	f := newFixture()
	quiz := mustCreateQuiz(t, f, f.now.Add(-2*time.Hour), 30)

	dispatcher := newTestDispatcher(f)
	dispatcher.Dispatch(context.Background(), domain.Task{Type: domain.TaskReportGeneration, QuizID: quiz.ID})

	reports, err := f.store.ListReports(context.Background(), quiz.ID)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
}

func TestDispatcherSwallowsDeletedQuiz(t *testing.T) {
	f := newFixture()
	dispatcher := newTestDispatcher(f)

	// the quiz was deleted between enqueue and dispatch; nothing fires
	dispatcher.Dispatch(context.Background(), domain.Task{Type: domain.TaskQuizReminder, QuizID: uuid.New()})
	dispatcher.Dispatch(context.Background(), domain.Task{Type: domain.TaskReportGeneration, QuizID: uuid.New()})

	if len(f.announcer.notifications) != 0 {
		t.Fatalf("unexpected notifications %v", f.announcer.notifications)
	}
	if len(f.announcer.announcements) != 0 {
		t.Fatalf("unexpected announcements %v", f.announcer.announcements)
	}
}
