package app

import (
	"context"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// CatalogStore persists quizzes, questions and options. Delete-tree
// operations remove children before the parent inside one transaction.
type CatalogStore interface {
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	GetQuiz(ctx context.Context, id uuid.UUID) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, courseID uuid.UUID) ([]domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error
	DeleteQuizTree(ctx context.Context, quizID uuid.UUID) error

	CreateQuestion(ctx context.Context, question *domain.Question) error
	GetQuestion(ctx context.Context, id uuid.UUID) (domain.Question, error)
	ListQuestions(ctx context.Context, quizID uuid.UUID) ([]domain.Question, error)
	UpdateQuestion(ctx context.Context, question *domain.Question) error
	DeleteQuestionTree(ctx context.Context, questionID uuid.UUID) error

	CreateOption(ctx context.Context, option *domain.Option) error
	GetOption(ctx context.Context, id uuid.UUID) (domain.Option, error)
	ListOptions(ctx context.Context, questionID uuid.UUID) ([]domain.Option, error)
	UpdateOption(ctx context.Context, option *domain.Option) error
	DeleteOption(ctx context.Context, id uuid.UUID) error
}

// ResponseStore persists submissions. CreateResponse writes the
// response and all its answers atomically and returns
// domain.ErrAlreadySubmitted when a response for the same
// (quiz, user) pair already exists, closing the check-then-insert race.
type ResponseStore interface {
	CreateResponse(ctx context.Context, response *domain.QuizResponse, answers []domain.Answer) error
	GetResponse(ctx context.Context, quizID uuid.UUID, userID string) (domain.QuizResponse, error)
	ListResponsesByQuiz(ctx context.Context, quizID uuid.UUID) ([]domain.QuizResponse, error)
	ListUserResponses(ctx context.Context, userID string, quizIDs []uuid.UUID) ([]domain.QuizResponse, error)
	ListAnswers(ctx context.Context, responseID uuid.UUID) ([]domain.Answer, error)
}

// ReportStore persists report rows. CreateReport also flips the quiz's
// report_generated flag in the same transaction.
type ReportStore interface {
	CreateReport(ctx context.Context, report *domain.Report) error
	ListReports(ctx context.Context, quizID uuid.UUID) ([]domain.Report, error)
}

// CourseDirectory resolves course and membership facts. It is the
// read-only view onto the external identity and membership provider.
type CourseDirectory interface {
	GetCourse(ctx context.Context, id uuid.UUID) (domain.Course, error)
	IsMember(ctx context.Context, courseID uuid.UUID, userID string) (bool, error)
	IsAdmin(ctx context.Context, courseID uuid.UUID, userID string) (bool, error)
	Members(ctx context.Context, courseID uuid.UUID) ([]domain.CourseMember, error)
}

// BlobStore uploads opaque artifacts and returns a retrievable URL.
type BlobStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Announcer delivers fire-and-forget messages to a course's subscriber
// group or to a single user.
type Announcer interface {
	Publish(ctx context.Context, courseID uuid.UUID, announcement domain.Announcement) error
	NotifyUser(ctx context.Context, userID, message string) error
}

// Scheduler enqueues a task to run at a future wall-clock time. The
// queue is durable; whether the task actually fires is the scheduler's
// responsibility, not the caller's.
type Scheduler interface {
	ScheduleAt(ctx context.Context, runAt time.Time, task domain.Task) error
}
