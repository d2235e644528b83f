package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Course is the enrollment boundary. The service reads courses and
// members through the directory; it never mutates them.
type Course struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	AdminID   string    `bun:"admin_id,notnull" json:"adminId"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// CourseMember enrolls one user into one course.
type CourseMember struct {
	bun.BaseModel `bun:"table:course_members,alias:cm"`

	ID       uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	CourseID uuid.UUID `bun:"course_id,notnull,type:uuid" json:"courseId"`
	UserID   string    `bun:"user_id,notnull" json:"userId"`
	FullName string    `bun:"full_name,notnull" json:"fullName"`
	Role     string    `bun:"role,notnull" json:"role"`
}

// Quiz is a scheduled, timed, multiple-choice assessment scoped to one
// course. Deadline is derived at create/update time as
// scheduledAt + duration + grace and is never recomputed on read.
type Quiz struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID              uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	CourseID        uuid.UUID `bun:"course_id,notnull,type:uuid" json:"courseId"`
	Title           string    `bun:"title,notnull" json:"title"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"createdAt"`
	ScheduledAt     time.Time `bun:"scheduled_at,notnull" json:"scheduledAt"`
	DurationMinutes int       `bun:"duration_minutes,notnull" json:"durationMinutes"`
	Deadline        time.Time `bun:"deadline,notnull" json:"deadline"`
	ReportGenerated bool      `bun:"report_generated,notnull" json:"reportGenerated"`
}

// Question belongs to exactly one quiz. Points defaults to 1 and
// weights the score of a correct answer.
type Question struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID         uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	QuizID     uuid.UUID `bun:"quiz_id,notnull,type:uuid" json:"quizId"`
	Text       string    `bun:"text,notnull" json:"text"`
	Difficulty int       `bun:"difficulty,notnull" json:"difficulty"`
	Points     int       `bun:"points,notnull" json:"points"`
}

// Option is one possible answer for a question. At most one option per
// question may be marked correct.
type Option struct {
	bun.BaseModel `bun:"table:options,alias:o"`

	ID         uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	QuestionID uuid.UUID `bun:"question_id,notnull,type:uuid" json:"questionId"`
	Text       string    `bun:"text,notnull" json:"text"`
	Correct    bool      `bun:"is_correct,notnull" json:"correct"`
}

// QuizResponse is one learner's completed submission for one quiz.
// There is at most one per (quiz, user) pair; the store enforces the
// uniqueness. Responses outlive their quiz so that score history is
// never silently lost.
type QuizResponse struct {
	bun.BaseModel `bun:"table:quiz_responses,alias:qr"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	QuizID      uuid.UUID `bun:"quiz_id,notnull,type:uuid" json:"quizId"`
	UserID      string    `bun:"user_id,notnull" json:"userId"`
	Score       int       `bun:"score,notnull" json:"score"`
	SubmittedAt time.Time `bun:"submitted_at,notnull" json:"submittedAt"`
}

// Answer records the option a learner chose for one question.
type Answer struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID         uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	ResponseID uuid.UUID `bun:"response_id,notnull,type:uuid" json:"responseId"`
	QuestionID uuid.UUID `bun:"question_id,notnull,type:uuid" json:"questionId"`
	OptionID   uuid.UUID `bun:"option_id,notnull,type:uuid" json:"optionId"`
}

// Report links a quiz to a generated score-sheet artifact. Repeated
// generation appends rows; nothing enforces one report per quiz.
type Report struct {
	bun.BaseModel `bun:"table:reports,alias:r"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	QuizID    uuid.UUID `bun:"quiz_id,notnull,type:uuid" json:"quizId"`
	URL       string    `bun:"url,notnull" json:"url"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// AnswerSubmission is the scoring input for a single question.
type AnswerSubmission struct {
	QuestionID uuid.UUID `json:"questionId"`
	OptionID   uuid.UUID `json:"optionId"`
}

// AnswerDetail joins a stored answer with the question text and the
// correctness of the chosen option, for admin review.
type AnswerDetail struct {
	QuestionText string `json:"question"`
	OptionText   string `json:"answerGiven"`
	Correct      bool   `json:"answerGivenIsCorrect"`
}

// QuestionWithOptions bundles a question and its options for reads.
type QuestionWithOptions struct {
	Question Question `json:"question"`
	Options  []Option `json:"options"`
}

// Announcement is the course-wide message pushed when a report is
// published.
type Announcement struct {
	ID         uuid.UUID `json:"id"`
	CourseID   uuid.UUID `json:"courseId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Message    string    `json:"message"`
	FileName   string    `json:"fileName,omitempty"`
	FileURL    string    `json:"fileUrl,omitempty"`
	SentAt     time.Time `json:"sentAt"`
}

// Task types handled by the scheduler worker.
const (
	TaskQuizReminder     = "quiz.reminder"
	TaskReportGeneration = "quiz.report"
)

// Task is a durable scheduler entry. The worker re-resolves all quiz
// state at run time; only the quiz id is captured at enqueue time.
type Task struct {
	Type   string    `json:"type"`
	QuizID uuid.UUID `json:"quizId"`
}
