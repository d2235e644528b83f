package app

import (
	"context"
	"fmt"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// DefaultGrace is the extra window past scheduledAt+duration before
// the submission deadline is reached.
const DefaultGrace = 20 * time.Minute

// CatalogService owns the Quiz/Question/Option lifecycle. Every
// mutation walks the owning-course chain and requires the course
// admin; reads require course membership.
type CatalogService struct {
	store  CatalogStore
	dir    CourseDirectory
	bridge *SchedulerBridge
	grace  time.Duration
	now    func() time.Time
}

func NewCatalogService(store CatalogStore, dir CourseDirectory, bridge *SchedulerBridge, grace time.Duration) *CatalogService {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &CatalogService{store: store, dir: dir, bridge: bridge, grace: grace, now: time.Now}
}

// NewCatalogServiceWithClock is test-only for deterministic timestamps.
func NewCatalogServiceWithClock(store CatalogStore, dir CourseDirectory, bridge *SchedulerBridge, grace time.Duration, now func() time.Time) *CatalogService {
	s := NewCatalogService(store, dir, bridge, grace)
	s.now = now
	return s
}

// QuizInput carries the mutable quiz fields for create and update.
type QuizInput struct {
	Title           string
	ScheduledAt     time.Time
	DurationMinutes int
}

func (in QuizInput) validate() error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(in.Title) > 100 {
		return fmt.Errorf("%w: title exceeds 100 characters", domain.ErrValidation)
	}
	if in.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduledAt is required", domain.ErrValidation)
	}
	if in.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", domain.ErrValidation)
	}
	return nil
}

func (s *CatalogService) deadlineFor(scheduledAt time.Time, durationMinutes int) time.Time {
	return scheduledAt.Add(time.Duration(durationMinutes)*time.Minute + s.grace)
}

// CreateQuiz creates a quiz, derives its deadline and enqueues the
// reminder and report-generation tasks.
func (s *CatalogService) CreateQuiz(ctx context.Context, callerID string, courseID uuid.UUID, in QuizInput) (domain.Quiz, error) {
	if callerID == "" {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return domain.Quiz{}, err
	}
	course, err := s.dir.GetCourse(ctx, courseID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := s.requireAdmin(ctx, course.ID, callerID); err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:              uuid.New(),
		CourseID:        course.ID,
		Title:           in.Title,
		CreatedAt:       s.now(),
		ScheduledAt:     in.ScheduledAt,
		DurationMinutes: in.DurationMinutes,
		Deadline:        s.deadlineFor(in.ScheduledAt, in.DurationMinutes),
	}
	if err := s.store.CreateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.bridge.ScheduleForQuiz(ctx, quiz)
	return quiz, nil
}

// UpdateQuiz rewrites the mutable fields, recomputes the deadline with
// the same grace window as create, and re-enqueues the trigger tasks
// for the new schedule.
func (s *CatalogService) UpdateQuiz(ctx context.Context, callerID string, quizID uuid.UUID, in QuizInput) (domain.Quiz, error) {
	if callerID == "" {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return domain.Quiz{}, err
	}
	quiz, _, err := s.quizChainAdmin(ctx, quizID, callerID)
	if err != nil {
		return domain.Quiz{}, err
	}

	quiz.Title = in.Title
	quiz.ScheduledAt = in.ScheduledAt
	quiz.DurationMinutes = in.DurationMinutes
	quiz.Deadline = s.deadlineFor(in.ScheduledAt, in.DurationMinutes)
	if err := s.store.UpdateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.bridge.ScheduleForQuiz(ctx, quiz)
	return quiz, nil
}

// DeleteQuiz removes the quiz with its questions, options and reports
// in one transaction. Responses are retained.
func (s *CatalogService) DeleteQuiz(ctx context.Context, callerID string, quizID uuid.UUID) error {
	if callerID == "" {
		return domain.ErrUnauthorized
	}
	if _, _, err := s.quizChainAdmin(ctx, quizID, callerID); err != nil {
		return err
	}
	return s.store.DeleteQuizTree(ctx, quizID)
}

// GetQuiz returns a quiz to any member of its course.
func (s *CatalogService) GetQuiz(ctx context.Context, callerID string, quizID uuid.UUID) (domain.Quiz, error) {
	if callerID == "" {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	quiz, _, err := s.quizChainMember(ctx, quizID, callerID)
	return quiz, err
}

// ListQuizzes returns all quizzes of a course to any of its members.
func (s *CatalogService) ListQuizzes(ctx context.Context, callerID string, courseID uuid.UUID) ([]domain.Quiz, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthorized
	}
	course, err := s.dir.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, course.ID, callerID); err != nil {
		return nil, err
	}
	return s.store.ListQuizzes(ctx, course.ID)
}

// QuestionInput carries the mutable question fields.
type QuestionInput struct {
	Text       string
	Difficulty int
	Points     int
}

func (in QuestionInput) validate() error {
	if in.Text == "" {
		return fmt.Errorf("%w: text is required", domain.ErrValidation)
	}
	if in.Difficulty < 1 {
		return fmt.Errorf("%w: difficulty must be at least 1", domain.ErrValidation)
	}
	if in.Points < 0 {
		return fmt.Errorf("%w: points must not be negative", domain.ErrValidation)
	}
	return nil
}

// AddQuestion appends a question to a quiz. Points defaults to 1.
func (s *CatalogService) AddQuestion(ctx context.Context, callerID string, quizID uuid.UUID, in QuestionInput) (domain.Question, error) {
	if callerID == "" {
		return domain.Question{}, domain.ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return domain.Question{}, err
	}
	quiz, _, err := s.quizChainAdmin(ctx, quizID, callerID)
	if err != nil {
		return domain.Question{}, err
	}

	points := in.Points
	if points == 0 {
		points = 1
	}
	question := domain.Question{
		ID:         uuid.New(),
		QuizID:     quiz.ID,
		Text:       in.Text,
		Difficulty: in.Difficulty,
		Points:     points,
	}
	if err := s.store.CreateQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *CatalogService) UpdateQuestion(ctx context.Context, callerID string, questionID uuid.UUID, in QuestionInput) (domain.Question, error) {
	if callerID == "" {
		return domain.Question{}, domain.ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return domain.Question{}, err
	}
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if _, _, err := s.quizChainAdmin(ctx, question.QuizID, callerID); err != nil {
		return domain.Question{}, err
	}

	question.Text = in.Text
	question.Difficulty = in.Difficulty
	question.Points = in.Points
	if question.Points == 0 {
		question.Points = 1
	}
	if err := s.store.UpdateQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

// DeleteQuestion removes a question and its options in one transaction.
func (s *CatalogService) DeleteQuestion(ctx context.Context, callerID string, questionID uuid.UUID) error {
	if callerID == "" {
		return domain.ErrUnauthorized
	}
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if _, _, err := s.quizChainAdmin(ctx, question.QuizID, callerID); err != nil {
		return err
	}
	return s.store.DeleteQuestionTree(ctx, question.ID)
}

func (s *CatalogService) GetQuestion(ctx context.Context, callerID string, questionID uuid.UUID) (domain.Question, error) {
	if callerID == "" {
		return domain.Question{}, domain.ErrUnauthorized
	}
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if _, _, err := s.quizChainMember(ctx, question.QuizID, callerID); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *CatalogService) ListQuestions(ctx context.Context, callerID string, quizID uuid.UUID) ([]domain.Question, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if _, _, err := s.quizChainMember(ctx, quizID, callerID); err != nil {
		return nil, err
	}
	return s.store.ListQuestions(ctx, quizID)
}

// ListQuestionsWithOptions returns each question of a quiz bundled
// with its options.
func (s *CatalogService) ListQuestionsWithOptions(ctx context.Context, callerID string, quizID uuid.UUID) ([]domain.QuestionWithOptions, error) {
	questions, err := s.ListQuestions(ctx, callerID, quizID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuestionWithOptions, 0, len(questions))
	for _, question := range questions {
		options, err := s.store.ListOptions(ctx, question.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.QuestionWithOptions{Question: question, Options: options})
	}
	return out, nil
}

// OptionInput carries the mutable option fields.
type OptionInput struct {
	Text    string
	Correct bool
}

func (in OptionInput) validate() error {
	if in.Text == "" {
		return fmt.Errorf("%w: text is required", domain.ErrValidation)
	}
	return nil
}

// AddOption appends an option to a question. Marking it correct fails
// when the question already has a correct option.
func (s *CatalogService) AddOption(ctx context.Context, callerID string, questionID uuid.UUID, in OptionInput) (domain.Option, error) {
	if callerID == "" {
		return domain.Option{}, domain.ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return domain.Option{}, err
	}
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Option{}, err
	}
	if _, _, err := s.quizChainAdmin(ctx, question.QuizID, callerID); err != nil {
		return domain.Option{}, err
	}
	if in.Correct {
		if err := s.requireNoOtherCorrect(ctx, question.ID, uuid.Nil); err != nil {
			return domain.Option{}, err
		}
	}

	option := domain.Option{
		ID:         uuid.New(),
		QuestionID: question.ID,
		Text:       in.Text,
		Correct:    in.Correct,
	}
	if err := s.store.CreateOption(ctx, &option); err != nil {
		return domain.Option{}, err
	}
	return option, nil
}

func (s *CatalogService) UpdateOption(ctx context.Context, callerID string, optionID uuid.UUID, in OptionInput) (domain.Option, error) {
	if callerID == "" {
		return domain.Option{}, domain.ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return domain.Option{}, err
	}
	option, err := s.store.GetOption(ctx, optionID)
	if err != nil {
		return domain.Option{}, err
	}
	question, err := s.store.GetQuestion(ctx, option.QuestionID)
	if err != nil {
		return domain.Option{}, err
	}
	if _, _, err := s.quizChainAdmin(ctx, question.QuizID, callerID); err != nil {
		return domain.Option{}, err
	}
	if in.Correct && !option.Correct {
		if err := s.requireNoOtherCorrect(ctx, question.ID, option.ID); err != nil {
			return domain.Option{}, err
		}
	}

	option.Text = in.Text
	option.Correct = in.Correct
	if err := s.store.UpdateOption(ctx, &option); err != nil {
		return domain.Option{}, err
	}
	return option, nil
}

func (s *CatalogService) DeleteOption(ctx context.Context, callerID string, optionID uuid.UUID) error {
	if callerID == "" {
		return domain.ErrUnauthorized
	}
	option, err := s.store.GetOption(ctx, optionID)
	if err != nil {
		return err
	}
	question, err := s.store.GetQuestion(ctx, option.QuestionID)
	if err != nil {
		return err
	}
	if _, _, err := s.quizChainAdmin(ctx, question.QuizID, callerID); err != nil {
		return err
	}
	return s.store.DeleteOption(ctx, option.ID)
}

func (s *CatalogService) GetOption(ctx context.Context, callerID string, optionID uuid.UUID) (domain.Option, error) {
	if callerID == "" {
		return domain.Option{}, domain.ErrUnauthorized
	}
	option, err := s.store.GetOption(ctx, optionID)
	if err != nil {
		return domain.Option{}, err
	}
	question, err := s.store.GetQuestion(ctx, option.QuestionID)
	if err != nil {
		return domain.Option{}, err
	}
	if _, _, err := s.quizChainMember(ctx, question.QuizID, callerID); err != nil {
		return domain.Option{}, err
	}
	return option, nil
}

func (s *CatalogService) ListOptions(ctx context.Context, callerID string, questionID uuid.UUID) ([]domain.Option, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthorized
	}
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.quizChainMember(ctx, question.QuizID, callerID); err != nil {
		return nil, err
	}
	return s.store.ListOptions(ctx, question.ID)
}

func (s *CatalogService) requireNoOtherCorrect(ctx context.Context, questionID, excludeOptionID uuid.UUID) error {
	options, err := s.store.ListOptions(ctx, questionID)
	if err != nil {
		return err
	}
	for _, existing := range options {
		if existing.Correct && existing.ID != excludeOptionID {
			return fmt.Errorf("%w: question already has a correct option", domain.ErrValidation)
		}
	}
	return nil
}

func (s *CatalogService) requireAdmin(ctx context.Context, courseID uuid.UUID, callerID string) error {
	ok, err := s.dir.IsAdmin(ctx, courseID, callerID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

func (s *CatalogService) requireMember(ctx context.Context, courseID uuid.UUID, callerID string) error {
	ok, err := s.dir.IsMember(ctx, courseID, callerID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

func (s *CatalogService) quizChainAdmin(ctx context.Context, quizID uuid.UUID, callerID string) (domain.Quiz, domain.Course, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, domain.Course{}, err
	}
	course, err := s.dir.GetCourse(ctx, quiz.CourseID)
	if err != nil {
		return domain.Quiz{}, domain.Course{}, err
	}
	if err := s.requireAdmin(ctx, course.ID, callerID); err != nil {
		return domain.Quiz{}, domain.Course{}, err
	}
	return quiz, course, nil
}

func (s *CatalogService) quizChainMember(ctx context.Context, quizID uuid.UUID, callerID string) (domain.Quiz, domain.Course, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, domain.Course{}, err
	}
	course, err := s.dir.GetCourse(ctx, quiz.CourseID)
	if err != nil {
		return domain.Quiz{}, domain.Course{}, err
	}
	if err := s.requireMember(ctx, course.ID, callerID); err != nil {
		return domain.Quiz{}, domain.Course{}, err
	}
	return quiz, course, nil
}
