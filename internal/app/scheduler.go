package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// Reminder fires shortly before the quiz starts; report generation
// shortly after the deadline.
const (
	reminderLead = time.Minute
	reportLag    = time.Minute
)

// SchedulerBridge computes the two trigger timestamps for a quiz and
// hands them to the durable scheduler. Enqueue failures are logged;
// quiz creation never fails because a task could not be queued.
type SchedulerBridge struct {
	scheduler Scheduler
}

func NewSchedulerBridge(scheduler Scheduler) *SchedulerBridge {
	return &SchedulerBridge{scheduler: scheduler}
}

// ScheduleForQuiz enqueues the reminder and report-generation tasks
// for a freshly created or rescheduled quiz.
func (b *SchedulerBridge) ScheduleForQuiz(ctx context.Context, quiz domain.Quiz) {
	if b == nil || b.scheduler == nil {
		return
	}
	reminderAt := quiz.ScheduledAt.Add(-reminderLead)
	if err := b.scheduler.ScheduleAt(ctx, reminderAt, domain.Task{Type: domain.TaskQuizReminder, QuizID: quiz.ID}); err != nil {
		log.Printf("schedule reminder for quiz %s: %v", quiz.ID, err)
	}
	reportAt := quiz.Deadline.Add(reportLag)
	if err := b.scheduler.ScheduleAt(ctx, reportAt, domain.Task{Type: domain.TaskReportGeneration, QuizID: quiz.ID}); err != nil {
		log.Printf("schedule report generation for quiz %s: %v", quiz.ID, err)
	}
}

// TaskDispatcher executes scheduled tasks. All state is re-resolved at
// run time; failures are logged and never surfaced to any caller.
type TaskDispatcher struct {
	catalog   CatalogStore
	dir       CourseDirectory
	announcer Announcer
	reports   *ReportService
}

func NewTaskDispatcher(catalog CatalogStore, dir CourseDirectory, announcer Announcer, reports *ReportService) *TaskDispatcher {
	return &TaskDispatcher{catalog: catalog, dir: dir, announcer: announcer, reports: reports}
}

// Dispatch routes a due task to its handler.
func (d *TaskDispatcher) Dispatch(ctx context.Context, task domain.Task) {
	switch task.Type {
	case domain.TaskQuizReminder:
		d.sendReminder(ctx, task.QuizID)
	case domain.TaskReportGeneration:
		d.reports.GenerateScheduled(ctx, task.QuizID)
	default:
		log.Printf("unknown scheduled task type %q", task.Type)
	}
}

func (d *TaskDispatcher) sendReminder(ctx context.Context, quizID uuid.UUID) {
	quiz, err := d.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		log.Printf("quiz reminder %s: %v", quizID, err)
		return
	}
	members, err := d.dir.Members(ctx, quiz.CourseID)
	if err != nil {
		log.Printf("quiz reminder %s: %v", quizID, err)
		return
	}
	message := fmt.Sprintf("Reminder: the quiz '%s' is starting in 1 minute.", quiz.Title)
	for _, member := range members {
		if err := d.announcer.NotifyUser(ctx, member.UserID, message); err != nil {
			log.Printf("notify %s for quiz %s: %v", member.UserID, quiz.ID, err)
		}
	}
}
