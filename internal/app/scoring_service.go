package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// ScoringService validates and records quiz submissions. It reads the
// catalog but never mutates it.
type ScoringService struct {
	catalog   CatalogStore
	responses ResponseStore
	dir       CourseDirectory
	now       func() time.Time
}

func NewScoringService(catalog CatalogStore, responses ResponseStore, dir CourseDirectory) *ScoringService {
	return &ScoringService{catalog: catalog, responses: responses, dir: dir, now: time.Now}
}

// NewScoringServiceWithClock is test-only for deterministic deadlines.
func NewScoringServiceWithClock(catalog CatalogStore, responses ResponseStore, dir CourseDirectory, now func() time.Time) *ScoringService {
	s := NewScoringService(catalog, responses, dir)
	s.now = now
	return s
}

// Submit records one learner's answers for a quiz. Preconditions are
// checked in order and each failure is distinct: unresolved caller,
// missing quiz, missing course, non-membership, passed deadline,
// prior submission. The response and all answer rows are persisted as
// one atomic unit; the store's uniqueness guarantee makes concurrent
// submissions for the same pair resolve to exactly one winner.
func (s *ScoringService) Submit(ctx context.Context, callerID string, quizID uuid.UUID, submissions []domain.AnswerSubmission) (domain.QuizResponse, error) {
	if callerID == "" {
		return domain.QuizResponse{}, domain.ErrUnauthorized
	}
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizResponse{}, err
	}
	course, err := s.dir.GetCourse(ctx, quiz.CourseID)
	if err != nil {
		return domain.QuizResponse{}, err
	}
	isMember, err := s.dir.IsMember(ctx, course.ID, callerID)
	if err != nil {
		return domain.QuizResponse{}, err
	}
	if !isMember {
		return domain.QuizResponse{}, domain.ErrForbidden
	}
	if s.now().After(quiz.Deadline) {
		return domain.QuizResponse{}, domain.ErrDeadlinePassed
	}
	if _, err := s.responses.GetResponse(ctx, quiz.ID, callerID); err == nil {
		return domain.QuizResponse{}, domain.ErrAlreadySubmitted
	} else if !errors.Is(err, domain.ErrResponseNotFound) {
		return domain.QuizResponse{}, err
	}

	seen := make(map[uuid.UUID]struct{}, len(submissions))
	for _, submission := range submissions {
		if _, dup := seen[submission.QuestionID]; dup {
			return domain.QuizResponse{}, fmt.Errorf("%w: duplicate answer for question %s", domain.ErrValidation, submission.QuestionID)
		}
		seen[submission.QuestionID] = struct{}{}
	}

	response := domain.QuizResponse{
		ID:          uuid.New(),
		QuizID:      quiz.ID,
		UserID:      callerID,
		SubmittedAt: s.now(),
	}
	answers := make([]domain.Answer, 0, len(submissions))
	score := 0
	for _, submission := range submissions {
		question, err := s.catalog.GetQuestion(ctx, submission.QuestionID)
		if err != nil {
			return domain.QuizResponse{}, err
		}
		if question.QuizID != quiz.ID {
			return domain.QuizResponse{}, domain.ErrQuestionNotFound
		}
		option, err := s.catalog.GetOption(ctx, submission.OptionID)
		if err != nil {
			return domain.QuizResponse{}, err
		}
		if option.QuestionID != question.ID {
			return domain.QuizResponse{}, domain.ErrOptionNotFound
		}
		if option.Correct {
			score += questionPoints(question)
		}
		answers = append(answers, domain.Answer{
			ID:         uuid.New(),
			ResponseID: response.ID,
			QuestionID: question.ID,
			OptionID:   option.ID,
		})
	}
	response.Score = score

	if err := s.responses.CreateResponse(ctx, &response, answers); err != nil {
		return domain.QuizResponse{}, err
	}
	return response, nil
}

// ListResponses returns every response for a quiz to the course admin.
func (s *ScoringService) ListResponses(ctx context.Context, callerID string, quizID uuid.UUID) ([]domain.QuizResponse, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthorized
	}
	quiz, course, err := s.quizChain(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, course.ID, callerID); err != nil {
		return nil, err
	}
	return s.responses.ListResponsesByQuiz(ctx, quiz.ID)
}

// ListMemberResponses returns a member's responses across all quizzes
// of a course. Admins may inspect anyone; learners only themselves.
func (s *ScoringService) ListMemberResponses(ctx context.Context, callerID string, courseID uuid.UUID, memberID string) ([]domain.QuizResponse, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthorized
	}
	course, err := s.dir.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdminOrSelf(ctx, course.ID, callerID, memberID); err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, course.ID, memberID); err != nil {
		return nil, err
	}

	quizzes, err := s.catalog.ListQuizzes(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	if len(quizzes) == 0 {
		return nil, nil
	}
	quizIDs := make([]uuid.UUID, 0, len(quizzes))
	for _, quiz := range quizzes {
		quizIDs = append(quizIDs, quiz.ID)
	}
	return s.responses.ListUserResponses(ctx, memberID, quizIDs)
}

// ListMemberAnswers returns a member's answers for one quiz joined
// with the question text and the correctness of the chosen option.
func (s *ScoringService) ListMemberAnswers(ctx context.Context, callerID string, quizID uuid.UUID, memberID string) ([]domain.AnswerDetail, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthorized
	}
	quiz, course, err := s.quizChain(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdminOrSelf(ctx, course.ID, callerID, memberID); err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, course.ID, memberID); err != nil {
		return nil, err
	}

	response, err := s.responses.GetResponse(ctx, quiz.ID, memberID)
	if err != nil {
		return nil, err
	}
	answers, err := s.responses.ListAnswers(ctx, response.ID)
	if err != nil {
		return nil, err
	}

	details := make([]domain.AnswerDetail, 0, len(answers))
	for _, answer := range answers {
		question, err := s.catalog.GetQuestion(ctx, answer.QuestionID)
		if err != nil {
			return nil, err
		}
		option, err := s.catalog.GetOption(ctx, answer.OptionID)
		if err != nil {
			return nil, err
		}
		details = append(details, domain.AnswerDetail{
			QuestionText: question.Text,
			OptionText:   option.Text,
			Correct:      option.Correct,
		})
	}
	return details, nil
}

func questionPoints(question domain.Question) int {
	if question.Points <= 0 {
		return 1
	}
	return question.Points
}

func (s *ScoringService) quizChain(ctx context.Context, quizID uuid.UUID) (domain.Quiz, domain.Course, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, domain.Course{}, err
	}
	course, err := s.dir.GetCourse(ctx, quiz.CourseID)
	if err != nil {
		return domain.Quiz{}, domain.Course{}, err
	}
	return quiz, course, nil
}

func (s *ScoringService) requireAdmin(ctx context.Context, courseID uuid.UUID, callerID string) error {
	ok, err := s.dir.IsAdmin(ctx, courseID, callerID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

func (s *ScoringService) requireAdminOrSelf(ctx context.Context, courseID uuid.UUID, callerID, memberID string) error {
	if callerID == memberID {
		return nil
	}
	return s.requireAdmin(ctx, courseID, callerID)
}

// requireMembership reports ErrUserNotFound when the target user is
// not enrolled, mirroring how lookups of unknown users fail.
func (s *ScoringService) requireMembership(ctx context.Context, courseID uuid.UUID, userID string) error {
	ok, err := s.dir.IsMember(ctx, courseID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return nil
}
