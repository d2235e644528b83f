package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/memory"
	"github.com/google/uuid"
)

const (
	adminID   = "teacher-1"
	studentID = "student-1"
	otherID   = "outsider-1"
)

func newTestServer(t *testing.T) (*httptest.Server, uuid.UUID) {
	t.Helper()
	courseID := uuid.New()
	dir := memory.NewDirectory(
		[]domain.Course{{ID: courseID, Name: "Algorithms", AdminID: adminID, CreatedAt: time.Now()}},
		[]domain.CourseMember{
			{ID: uuid.New(), CourseID: courseID, UserID: adminID, FullName: "Ada Lovelace", Role: "teacher"},
			{ID: uuid.New(), CourseID: courseID, UserID: studentID, FullName: "Alan Turing", Role: "student"},
		},
	)
	store := memory.NewStore()
	blobs := memory.NewBlobStore()
	hub := NewHub()
	announcer := NewHubAnnouncer(hub, dir)

	catalog := app.NewCatalogService(store, dir, nil, 0)
	scoring := app.NewScoringService(store, store, dir)
	reports := app.NewReportService(store, store, store, dir, blobs, announcer)

	server := httptest.NewServer(NewHandler(catalog, scoring, reports, hub).Routes())
	t.Cleanup(server.Close)
	return server, courseID
}

func do(t *testing.T, method, url, userID string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func createQuiz(t *testing.T, server *httptest.Server, courseID uuid.UUID, scheduledAt time.Time) domain.Quiz {
	t.Helper()
	resp := do(t, http.MethodPost, fmt.Sprintf("%s/courses/%s/quizzes", server.URL, courseID), adminID, map[string]any{
		"title":           "Midterm",
		"scheduledAt":     scheduledAt,
		"durationMinutes": 30,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create quiz: status %d", resp.StatusCode)
	}
	return decodeBody[domain.Quiz](t, resp)
}

func TestQuizLifecycle(t *testing.T) {
	server, courseID := newTestServer(t)
	scheduledAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	quiz := createQuiz(t, server, courseID, scheduledAt)
	wantDeadline := scheduledAt.Add(30*time.Minute + app.DefaultGrace)
	if !quiz.Deadline.Equal(wantDeadline) {
		t.Fatalf("deadline %v, want %v", quiz.Deadline, wantDeadline)
	}

	// members can read
	resp := do(t, http.MethodGet, fmt.Sprintf("%s/quizzes/%s", server.URL, quiz.ID), studentID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get quiz as member: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// non-members cannot
	resp = do(t, http.MethodGet, fmt.Sprintf("%s/quizzes/%s", server.URL, quiz.ID), otherID, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("get quiz as outsider: status %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	// students cannot mutate
	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/quizzes/%s", server.URL, quiz.ID), studentID, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("delete quiz as student: status %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/quizzes/%s", server.URL, quiz.ID), adminID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete quiz as admin: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do(t, http.MethodGet, fmt.Sprintf("%s/quizzes/%s", server.URL, quiz.ID), adminID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted quiz: status %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMissingIdentityIsUnauthorized(t *testing.T) {
	server, courseID := newTestServer(t)
	resp := do(t, http.MethodPost, fmt.Sprintf("%s/courses/%s/quizzes", server.URL, courseID), "", map[string]any{
		"title":           "Midterm",
		"scheduledAt":     time.Now().Add(time.Hour),
		"durationMinutes": 30,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubmissionFlow(t *testing.T) {
	server, courseID := newTestServer(t)
	quiz := createQuiz(t, server, courseID, time.Now().Add(-time.Minute).UTC())

	questionResp := do(t, http.MethodPost, fmt.Sprintf("%s/quizzes/%s/questions", server.URL, quiz.ID), adminID, map[string]any{
		"text": "What is 2 + 2?", "difficulty": 1, "points": 2,
	})
	if questionResp.StatusCode != http.StatusCreated {
		t.Fatalf("add question: status %d", questionResp.StatusCode)
	}
	question := decodeBody[domain.Question](t, questionResp)

	wrongResp := do(t, http.MethodPost, fmt.Sprintf("%s/questions/%s/options", server.URL, question.ID), adminID, map[string]any{
		"text": "3", "isCorrect": false,
	})
	decodeBody[domain.Option](t, wrongResp)
	rightResp := do(t, http.MethodPost, fmt.Sprintf("%s/questions/%s/options", server.URL, question.ID), adminID, map[string]any{
		"text": "4", "isCorrect": true,
	})
	right := decodeBody[domain.Option](t, rightResp)

	submitURL := fmt.Sprintf("%s/quizzes/%s/submissions", server.URL, quiz.ID)
	resp := do(t, http.MethodPost, submitURL, studentID, map[string]any{
		"answers": []map[string]any{{"questionId": question.ID, "optionId": right.ID}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit: status %d", resp.StatusCode)
	}
	response := decodeBody[domain.QuizResponse](t, resp)
	if response.Score != 2 {
		t.Fatalf("score %d, want 2", response.Score)
	}

	// a second submission conflicts
	resp = do(t, http.MethodPost, submitURL, studentID, map[string]any{
		"answers": []map[string]any{{"questionId": question.ID, "optionId": right.ID}},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("resubmit: status %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	// admins list responses, students may not
	resp = do(t, http.MethodGet, fmt.Sprintf("%s/quizzes/%s/responses", server.URL, quiz.ID), adminID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list responses: status %d", resp.StatusCode)
	}
	responses := decodeBody[[]domain.QuizResponse](t, resp)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	resp = do(t, http.MethodGet, fmt.Sprintf("%s/quizzes/%s/responses", server.URL, quiz.ID), studentID, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("list responses as student: status %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	// a student can review their own answers
	resp = do(t, http.MethodGet, fmt.Sprintf("%s/quizzes/%s/members/%s/answers", server.URL, quiz.ID, studentID), studentID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list answers: status %d", resp.StatusCode)
	}
	answers := decodeBody[[]domain.AnswerDetail](t, resp)
	if len(answers) != 1 || !answers[0].Correct {
		t.Fatalf("unexpected answers %+v", answers)
	}
}

func TestSubmissionAfterDeadline(t *testing.T) {
	server, courseID := newTestServer(t)
	// schedule far enough in the past that the grace window has closed
	quiz := createQuiz(t, server, courseID, time.Now().Add(-2*time.Hour).UTC())

	resp := do(t, http.MethodPost, fmt.Sprintf("%s/quizzes/%s/submissions", server.URL, quiz.ID), studentID, map[string]any{
		"answers": []map[string]any{},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("late submit: status %d, want 422", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestReportGeneration(t *testing.T) {
	server, courseID := newTestServer(t)
	quiz := createQuiz(t, server, courseID, time.Now().Add(-2*time.Hour).UTC())

	reportURL := fmt.Sprintf("%s/quizzes/%s/reports", server.URL, quiz.ID)

	// only the course admin may trigger generation
	resp := do(t, http.MethodPost, reportURL, studentID, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("generate as student: status %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do(t, http.MethodPost, reportURL, adminID, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("generate report: status %d", resp.StatusCode)
	}
	generated := decodeBody[domain.Report](t, resp)
	if generated.URL == "" {
		t.Fatal("expected a report url")
	}

	resp = do(t, http.MethodGet, reportURL, adminID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list reports: status %d", resp.StatusCode)
	}
	reports := decodeBody[[]domain.Report](t, resp)
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}

	// the quiz now carries the generated flag
	resp = do(t, http.MethodGet, fmt.Sprintf("%s/quizzes/%s", server.URL, quiz.ID), adminID, nil)
	updated := decodeBody[domain.Quiz](t, resp)
	if !updated.ReportGenerated {
		t.Fatal("expected reportGenerated to be true")
	}
}

func TestInvalidQuizPayload(t *testing.T) {
	server, courseID := newTestServer(t)
	resp := do(t, http.MethodPost, fmt.Sprintf("%s/courses/%s/quizzes", server.URL, courseID), adminID, map[string]any{
		"title": "", "durationMinutes": 0,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}
