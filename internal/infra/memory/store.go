package memory

import (
	"context"
	"sort"
	"sync"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of the catalog, response and
// report stores, used for demo wiring and tests. A single mutex
// serializes all writes, which also closes the concurrent-submission
// race the way the Postgres unique constraint does.
type Store struct {
	mu        sync.RWMutex
	quizzes   map[uuid.UUID]domain.Quiz
	questions map[uuid.UUID]domain.Question
	options   map[uuid.UUID]domain.Option
	responses map[uuid.UUID]domain.QuizResponse
	answers   map[uuid.UUID]domain.Answer
	reports   map[uuid.UUID]domain.Report
}

func NewStore() *Store {
	return &Store{
		quizzes:   make(map[uuid.UUID]domain.Quiz),
		questions: make(map[uuid.UUID]domain.Question),
		options:   make(map[uuid.UUID]domain.Option),
		responses: make(map[uuid.UUID]domain.QuizResponse),
		answers:   make(map[uuid.UUID]domain.Answer),
		reports:   make(map[uuid.UUID]domain.Report),
	}
}

func (s *Store) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = *quiz
	return nil
}

func (s *Store) GetQuiz(_ context.Context, id uuid.UUID) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(_ context.Context, courseID uuid.UUID) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Quiz
	for _, quiz := range s.quizzes {
		if quiz.CourseID == courseID {
			out = append(out, quiz)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.quizzes[quiz.ID] = *quiz
	return nil
}

// DeleteQuizTree removes options, questions and reports before the
// quiz itself. Responses and answers are retained.
func (s *Store) DeleteQuizTree(_ context.Context, quizID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	for questionID, question := range s.questions {
		if question.QuizID != quizID {
			continue
		}
		for optionID, option := range s.options {
			if option.QuestionID == questionID {
				delete(s.options, optionID)
			}
		}
		delete(s.questions, questionID)
	}
	for reportID, report := range s.reports {
		if report.QuizID == quizID {
			delete(s.reports, reportID)
		}
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *Store) CreateQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[question.ID] = *question
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id uuid.UUID) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

func (s *Store) ListQuestions(_ context.Context, quizID uuid.UUID) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, question := range s.questions {
		if question.QuizID == quizID {
			out = append(out, question)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) UpdateQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.questions[question.ID] = *question
	return nil
}

func (s *Store) DeleteQuestionTree(_ context.Context, questionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	for optionID, option := range s.options {
		if option.QuestionID == questionID {
			delete(s.options, optionID)
		}
	}
	delete(s.questions, questionID)
	return nil
}

func (s *Store) CreateOption(_ context.Context, option *domain.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[option.ID] = *option
	return nil
}

func (s *Store) GetOption(_ context.Context, id uuid.UUID) (domain.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	option, ok := s.options[id]
	if !ok {
		return domain.Option{}, domain.ErrOptionNotFound
	}
	return option, nil
}

func (s *Store) ListOptions(_ context.Context, questionID uuid.UUID) ([]domain.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Option
	for _, option := range s.options {
		if option.QuestionID == questionID {
			out = append(out, option)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) UpdateOption(_ context.Context, option *domain.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.options[option.ID]; !ok {
		return domain.ErrOptionNotFound
	}
	s.options[option.ID] = *option
	return nil
}

func (s *Store) DeleteOption(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.options[id]; !ok {
		return domain.ErrOptionNotFound
	}
	delete(s.options, id)
	return nil
}

// CreateResponse persists the response and its answers atomically;
// the lock makes the existence check and the insert one critical
// section, so concurrent submissions resolve to a single winner.
func (s *Store) CreateResponse(_ context.Context, response *domain.QuizResponse, answers []domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.responses {
		if existing.QuizID == response.QuizID && existing.UserID == response.UserID {
			return domain.ErrAlreadySubmitted
		}
	}
	s.responses[response.ID] = *response
	for _, answer := range answers {
		s.answers[answer.ID] = answer
	}
	return nil
}

func (s *Store) GetResponse(_ context.Context, quizID uuid.UUID, userID string) (domain.QuizResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, response := range s.responses {
		if response.QuizID == quizID && response.UserID == userID {
			return response, nil
		}
	}
	return domain.QuizResponse{}, domain.ErrResponseNotFound
}

func (s *Store) ListResponsesByQuiz(_ context.Context, quizID uuid.UUID) ([]domain.QuizResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.QuizResponse
	for _, response := range s.responses {
		if response.QuizID == quizID {
			out = append(out, response)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (s *Store) ListUserResponses(_ context.Context, userID string, quizIDs []uuid.UUID) ([]domain.QuizResponse, error) {
	wanted := make(map[uuid.UUID]struct{}, len(quizIDs))
	for _, id := range quizIDs {
		wanted[id] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.QuizResponse
	for _, response := range s.responses {
		if response.UserID != userID {
			continue
		}
		if _, ok := wanted[response.QuizID]; ok {
			out = append(out, response)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (s *Store) ListAnswers(_ context.Context, responseID uuid.UUID) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Answer
	for _, answer := range s.answers {
		if answer.ResponseID == responseID {
			out = append(out, answer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) CreateReport(_ context.Context, report *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[report.QuizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	s.reports[report.ID] = *report
	quiz.ReportGenerated = true
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) ListReports(_ context.Context, quizID uuid.UUID) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Report
	for _, report := range s.reports {
		if report.QuizID == quizID {
			out = append(out, report)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
