package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewDB opens a bun database over the pgdriver connector.
func NewDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Store is the bun-backed implementation of the catalog, response and
// report stores.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	if _, err := s.db.NewInsert().Model(quiz).Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (s *Store) GetQuiz(ctx context.Context, id uuid.UUID) (domain.Quiz, error) {
	quiz := new(domain.Quiz)
	err := s.db.NewSelect().Model(quiz).Where("q.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("select quiz: %w", err)
	}
	return *quiz, nil
}

func (s *Store) ListQuizzes(ctx context.Context, courseID uuid.UUID) ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	err := s.db.NewSelect().Model(&quizzes).
		Where("q.course_id = ?", courseID).
		Order("q.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	res, err := s.db.NewUpdate().Model(quiz).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return requireAffected(res, domain.ErrQuizNotFound)
}

// DeleteQuizTree removes options, questions, reports and the quiz in
// that order inside one transaction. Response history is untouched.
func (s *Store) DeleteQuizTree(ctx context.Context, quizID uuid.UUID) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*domain.Option)(nil)).
			Where("question_id IN (SELECT id FROM questions WHERE quiz_id = ?)", quizID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete quiz options: %w", err)
		}
		if _, err := tx.NewDelete().Model((*domain.Question)(nil)).
			Where("quiz_id = ?", quizID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete quiz questions: %w", err)
		}
		if _, err := tx.NewDelete().Model((*domain.Report)(nil)).
			Where("quiz_id = ?", quizID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete quiz reports: %w", err)
		}
		res, err := tx.NewDelete().Model((*domain.Quiz)(nil)).
			Where("id = ?", quizID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete quiz: %w", err)
		}
		return requireAffected(res, domain.ErrQuizNotFound)
	})
}

func (s *Store) CreateQuestion(ctx context.Context, question *domain.Question) error {
	if _, err := s.db.NewInsert().Model(question).Exec(ctx); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, id uuid.UUID) (domain.Question, error) {
	question := new(domain.Question)
	err := s.db.NewSelect().Model(question).Where("qn.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("select question: %w", err)
	}
	return *question, nil
}

func (s *Store) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]domain.Question, error) {
	var questions []domain.Question
	err := s.db.NewSelect().Model(&questions).
		Where("qn.quiz_id = ?", quizID).
		Order("qn.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, question *domain.Question) error {
	res, err := s.db.NewUpdate().Model(question).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return requireAffected(res, domain.ErrQuestionNotFound)
}

func (s *Store) DeleteQuestionTree(ctx context.Context, questionID uuid.UUID) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*domain.Option)(nil)).
			Where("question_id = ?", questionID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete question options: %w", err)
		}
		res, err := tx.NewDelete().Model((*domain.Question)(nil)).
			Where("id = ?", questionID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		return requireAffected(res, domain.ErrQuestionNotFound)
	})
}

func (s *Store) CreateOption(ctx context.Context, option *domain.Option) error {
	if _, err := s.db.NewInsert().Model(option).Exec(ctx); err != nil {
		return fmt.Errorf("insert option: %w", err)
	}
	return nil
}

func (s *Store) GetOption(ctx context.Context, id uuid.UUID) (domain.Option, error) {
	option := new(domain.Option)
	err := s.db.NewSelect().Model(option).Where("o.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Option{}, domain.ErrOptionNotFound
	}
	if err != nil {
		return domain.Option{}, fmt.Errorf("select option: %w", err)
	}
	return *option, nil
}

func (s *Store) ListOptions(ctx context.Context, questionID uuid.UUID) ([]domain.Option, error) {
	var options []domain.Option
	err := s.db.NewSelect().Model(&options).
		Where("o.question_id = ?", questionID).
		Order("o.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	return options, nil
}

func (s *Store) UpdateOption(ctx context.Context, option *domain.Option) error {
	res, err := s.db.NewUpdate().Model(option).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update option: %w", err)
	}
	return requireAffected(res, domain.ErrOptionNotFound)
}

func (s *Store) DeleteOption(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.NewDelete().Model((*domain.Option)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete option: %w", err)
	}
	return requireAffected(res, domain.ErrOptionNotFound)
}

// CreateResponse inserts the response and its answers in one
// transaction. The unique index on (quiz_id, user_id) turns the
// concurrent-submission race into ErrAlreadySubmitted for the losers.
func (s *Store) CreateResponse(ctx context.Context, response *domain.QuizResponse, answers []domain.Answer) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(response).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadySubmitted
			}
			return fmt.Errorf("insert response: %w", err)
		}
		if len(answers) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&answers).Exec(ctx); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		return nil
	})
}

func (s *Store) GetResponse(ctx context.Context, quizID uuid.UUID, userID string) (domain.QuizResponse, error) {
	response := new(domain.QuizResponse)
	err := s.db.NewSelect().Model(response).
		Where("qr.quiz_id = ?", quizID).
		Where("qr.user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizResponse{}, domain.ErrResponseNotFound
	}
	if err != nil {
		return domain.QuizResponse{}, fmt.Errorf("select response: %w", err)
	}
	return *response, nil
}

func (s *Store) ListResponsesByQuiz(ctx context.Context, quizID uuid.UUID) ([]domain.QuizResponse, error) {
	var responses []domain.QuizResponse
	err := s.db.NewSelect().Model(&responses).
		Where("qr.quiz_id = ?", quizID).
		Order("qr.submitted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return responses, nil
}

func (s *Store) ListUserResponses(ctx context.Context, userID string, quizIDs []uuid.UUID) ([]domain.QuizResponse, error) {
	if len(quizIDs) == 0 {
		return nil, nil
	}
	var responses []domain.QuizResponse
	err := s.db.NewSelect().Model(&responses).
		Where("qr.user_id = ?", userID).
		Where("qr.quiz_id IN (?)", bun.In(quizIDs)).
		Order("qr.submitted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user responses: %w", err)
	}
	return responses, nil
}

func (s *Store) ListAnswers(ctx context.Context, responseID uuid.UUID) ([]domain.Answer, error) {
	var answers []domain.Answer
	err := s.db.NewSelect().Model(&answers).
		Where("a.response_id = ?", responseID).
		Order("a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return answers, nil
}

// CreateReport inserts the report row and flips the quiz flag in the
// same transaction, so a stored report always implies the flag.
func (s *Store) CreateReport(ctx context.Context, report *domain.Report) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(report).Exec(ctx); err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
		res, err := tx.NewUpdate().Model((*domain.Quiz)(nil)).
			Set("report_generated = TRUE").
			Where("id = ?", report.QuizID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("mark report generated: %w", err)
		}
		return requireAffected(res, domain.ErrQuizNotFound)
	})
}

func (s *Store) ListReports(ctx context.Context, quizID uuid.UUID) ([]domain.Report, error) {
	var reports []domain.Report
	err := s.db.NewSelect().Model(&reports).
		Where("r.quiz_id = ?", quizID).
		Order("r.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

func requireAffected(res sql.Result, missing error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return missing
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
