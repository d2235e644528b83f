package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
)

func TestCreateResponseRejectsDuplicatePair(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	quizID := uuid.New()

	first := domain.QuizResponse{ID: uuid.New(), QuizID: quizID, UserID: "student-1", Score: 3, SubmittedAt: time.Now()}
	if err := store.CreateResponse(ctx, &first, nil); err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := domain.QuizResponse{ID: uuid.New(), QuizID: quizID, UserID: "student-1", SubmittedAt: time.Now()}
	if err := store.CreateResponse(ctx, &second, nil); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("duplicate create: got %v, want ErrAlreadySubmitted", err)
	}

	// a different user on the same quiz is fine
	other := domain.QuizResponse{ID: uuid.New(), QuizID: quizID, UserID: "student-2", SubmittedAt: time.Now()}
	if err := store.CreateResponse(ctx, &other, nil); err != nil {
		t.Fatalf("other user create: %v", err)
	}
}

func TestCreateResponseConcurrentSingleWinner(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	quizID := uuid.New()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			response := domain.QuizResponse{ID: uuid.New(), QuizID: quizID, UserID: "student-1", SubmittedAt: time.Now()}
			errs[i] = store.CreateResponse(ctx, &response, nil)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else if !errors.Is(err, domain.ErrAlreadySubmitted) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestDeleteQuizTreeRetainsResponses(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	quiz := domain.Quiz{ID: uuid.New(), CourseID: uuid.New(), Title: "Midterm", CreatedAt: time.Now()}
	if err := store.CreateQuiz(ctx, &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	question := domain.Question{ID: uuid.New(), QuizID: quiz.ID, Text: "Pick one"}
	if err := store.CreateQuestion(ctx, &question); err != nil {
		t.Fatalf("create question: %v", err)
	}
	option := domain.Option{ID: uuid.New(), QuestionID: question.ID, Text: "Right", Correct: true}
	if err := store.CreateOption(ctx, &option); err != nil {
		t.Fatalf("create option: %v", err)
	}
	response := domain.QuizResponse{ID: uuid.New(), QuizID: quiz.ID, UserID: "student-1", SubmittedAt: time.Now()}
	answer := domain.Answer{ID: uuid.New(), ResponseID: response.ID, QuestionID: question.ID, OptionID: option.ID}
	if err := store.CreateResponse(ctx, &response, []domain.Answer{answer}); err != nil {
		t.Fatalf("create response: %v", err)
	}
	report := domain.Report{ID: uuid.New(), QuizID: quiz.ID, URL: "memory://r.pdf", CreatedAt: time.Now()}
	if err := store.CreateReport(ctx, &report); err != nil {
		t.Fatalf("create report: %v", err)
	}

	if err := store.DeleteQuizTree(ctx, quiz.ID); err != nil {
		t.Fatalf("delete quiz tree: %v", err)
	}

	if _, err := store.GetQuestion(ctx, question.ID); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("question survived: %v", err)
	}
	if _, err := store.GetOption(ctx, option.ID); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("option survived: %v", err)
	}
	reports, err := store.ListReports(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != 0 {
		t.Fatalf("reports survived: %d", len(reports))
	}
	if _, err := store.GetResponse(ctx, quiz.ID, "student-1"); err != nil {
		t.Fatalf("response lost: %v", err)
	}
	answers, err := store.ListAnswers(ctx, response.ID)
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("answers lost: %d", len(answers))
	}
}

func TestCreateReportFlipsQuizFlag(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	quiz := domain.Quiz{ID: uuid.New(), CourseID: uuid.New(), Title: "Midterm", CreatedAt: time.Now()}
	if err := store.CreateQuiz(ctx, &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	report := domain.Report{ID: uuid.New(), QuizID: quiz.ID, URL: "memory://r.pdf", CreatedAt: time.Now()}
	if err := store.CreateReport(ctx, &report); err != nil {
		t.Fatalf("create report: %v", err)
	}

	got, err := store.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if !got.ReportGenerated {
		t.Fatal("reportGenerated flag not set")
	}

	// reports for missing quizzes are rejected
	orphan := domain.Report{ID: uuid.New(), QuizID: uuid.New(), URL: "memory://x.pdf", CreatedAt: time.Now()}
	if err := store.CreateReport(ctx, &orphan); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("orphan report: got %v, want ErrQuizNotFound", err)
	}
}
