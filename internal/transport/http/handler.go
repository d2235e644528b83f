// Package http exposes the quiz catalog, scoring and report use cases
// over a JSON REST API plus a websocket push channel.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Handler struct {
	catalog  *app.CatalogService
	scoring  *app.ScoringService
	reports  *app.ReportService
	validate *validator.Validate
	hub      *Hub
}

func NewHandler(catalog *app.CatalogService, scoring *app.ScoringService, reports *app.ReportService, hub *Hub) *Handler {
	return &Handler{
		catalog:  catalog,
		scoring:  scoring,
		reports:  reports,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		hub:      hub,
	}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /courses/{courseID}/quizzes", h.createQuiz)
	mux.HandleFunc("GET /courses/{courseID}/quizzes", h.listQuizzes)
	mux.HandleFunc("GET /quizzes/{quizID}", h.getQuiz)
	mux.HandleFunc("PUT /quizzes/{quizID}", h.updateQuiz)
	mux.HandleFunc("DELETE /quizzes/{quizID}", h.deleteQuiz)

	mux.HandleFunc("POST /quizzes/{quizID}/questions", h.addQuestion)
	mux.HandleFunc("GET /quizzes/{quizID}/questions", h.listQuestions)
	mux.HandleFunc("GET /questions/{questionID}", h.getQuestion)
	mux.HandleFunc("PUT /questions/{questionID}", h.updateQuestion)
	mux.HandleFunc("DELETE /questions/{questionID}", h.deleteQuestion)

	mux.HandleFunc("POST /questions/{questionID}/options", h.addOption)
	mux.HandleFunc("GET /questions/{questionID}/options", h.listOptions)
	mux.HandleFunc("GET /options/{optionID}", h.getOption)
	mux.HandleFunc("PUT /options/{optionID}", h.updateOption)
	mux.HandleFunc("DELETE /options/{optionID}", h.deleteOption)

	mux.HandleFunc("POST /quizzes/{quizID}/submissions", h.submit)
	mux.HandleFunc("GET /quizzes/{quizID}/responses", h.listResponses)
	mux.HandleFunc("GET /courses/{courseID}/members/{userID}/responses", h.listMemberResponses)
	mux.HandleFunc("GET /quizzes/{quizID}/members/{userID}/answers", h.listMemberAnswers)

	mux.HandleFunc("POST /quizzes/{quizID}/reports", h.generateReport)
	mux.HandleFunc("GET /quizzes/{quizID}/reports", h.listReports)

	mux.HandleFunc("GET /ws", h.hub.ServeWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

// identity reads the caller id forwarded by the gateway. The websocket
// path also accepts a query parameter since browsers cannot set
// headers on upgrade requests.
func identity(r *http.Request) string {
	if id := r.Header.Get("X-User-Id"); id != "" {
		return id
	}
	return r.URL.Query().Get("userId")
}

type quizRequest struct {
	Title           string    `json:"title" validate:"required,max=100"`
	ScheduledAt     time.Time `json:"scheduledAt" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"required,gt=0"`
}

type questionRequest struct {
	Text       string `json:"text" validate:"required"`
	Difficulty int    `json:"difficulty" validate:"gte=0"`
	Points     int    `json:"points" validate:"gte=0"`
}

type optionRequest struct {
	Text    string `json:"text" validate:"required"`
	Correct bool   `json:"isCorrect"`
}

type submitRequest struct {
	Answers []answerRequest `json:"answers" validate:"required,dive"`
}

type answerRequest struct {
	QuestionID uuid.UUID `json:"questionId" validate:"required"`
	OptionID   uuid.UUID `json:"optionId" validate:"required"`
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathUUID(w, r, "courseID")
	if !ok {
		return
	}
	var req quizRequest
	if !h.decode(w, r, &req) {
		return
	}
	quiz, err := h.catalog.CreateQuiz(r.Context(), identity(r), courseID, app.QuizInput{
		Title:           req.Title,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathUUID(w, r, "courseID")
	if !ok {
		return
	}
	quizzes, err := h.catalog.ListQuizzes(r.Context(), identity(r), courseID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathUUID(w, r, "quizID")
	if !ok {
		return
	}
	quiz, err := h.catalog.GetQuiz(r.Context(), identity(r), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathUUID(w, r, "quizID")
	if !ok {
		return
	}
	var req quizRequest
	if !h.decode(w, r, &req) {
		return
	}
	quiz, err := h.catalog.UpdateQuiz(r.Context(), identity(r), quizID, app.QuizInput{
		Title:           req.Title,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathUUID(w, r, "quizID")
	if !ok {
		return
	}
	if err := h.catalog.DeleteQuiz(r.Context(), identity(r), quizID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathUUID(w, r, "quizID")
	if !ok {
		return
	}
	var req questionRequest
	if !h.decode(w, r, &req) {
		return
	}
	question, err := h.catalog.AddQuestion(r.Context(), identity(r), quizID, app.QuestionInput{
		Text:       req.Text,
		Difficulty: req.Difficulty,
		Points:     req.Points,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathUUID(w, r, "quizID")
	if !ok {
		return
	}
	if r.URL.Query().Get("withOptions") == "true" {
		questions, err := h.catalog.ListQuestionsWithOptions(r.Context(), identity(r), quizID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, questions)
		return
	}
	questions, err := h.catalog.ListQuestions(r.Context(), identity(r), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathUUID(w, r, "questionID")
	if !ok {
		return
	}
	question, err := h.catalog.GetQuestion(r.Context(), identity(r), questionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathUUID(w, r, "questionID")
	if !ok {
		return
	}
	var req questionRequest
	if !h.decode(w, r, &req) {
		return
	}
	question, err := h.catalog.UpdateQuestion(r.Context(), identity(r), questionID, app.QuestionInput{
		Text:       req.Text,
		Difficulty: req.Difficulty,
		Points:     req.Points,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathUUID(w, r, "questionID")
	if !ok {
		return
	}
	if err := h.catalog.DeleteQuestion(r.Context(), identity(r), questionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addOption(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathUUID(w, r, "questionID")
	if !ok {
		return
	}
	var req optionRequest
	if !h.decode(w, r, &req) {
		return
	}
	option, err := h.catalog.AddOption(r.Context(), identity(r), questionID, app.OptionInput{
		Text:    req.Text,
		Correct: req.Correct,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, option)
}

func (h *Handler) listOptions(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathUUID(w, r, "questionID")
	if !ok {
		return
	}
	options, err := h.catalog.ListOptions(r.Context(), identity(r), questionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (h *Handler) getOption(w http.ResponseWriter, r *http.Request) {
	optionID, ok := pathUUID(w, r, "optionID")
	if !ok {
		return
	}
	option, err := h.catalog.GetOption(r.Context(), identity(r), optionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, option)
}

func (h *Handler) updateOption(w http.ResponseWriter, r *http.Request) {
	optionID, ok := pathUUID(w, r, "optionID")
	if !ok {
		return
	}
	var req optionRequest
	if !h.decode(w, r, &req) {
		return
	}
	option, err := h.catalog.UpdateOption(r.Context(), identity(r), optionID, app.OptionInput{
		Text:    req.Text,
		Correct: req.Correct,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, option)
}

func (h *Handler) deleteOption(w http.ResponseWriter, r *http.Request) {
	optionID, ok := pathUUID(w, r, "optionID")
	if !ok {
		return
	}
	if err := h.catalog.DeleteOption(r.Context(), identity(r), optionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathUUID(w, r, "quizID")
	if !ok {
		return
	}
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	submissions := make([]domain.AnswerSubmission, 0, len(req.Answers))
	for _, answer := range req.Answers {
		submissions = append(submissions, domain.AnswerSubmission{
			QuestionID: answer.QuestionID,
			OptionID:   answer.OptionID,
		})
	}
	response, err := h.scoring.Submit(r.Context(), identity(r), quizID, submissions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response)
}

func (h *Handler) listResponses(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathUUID(w, r, "quizID")
	if !ok {
		return
	}
	responses, err := h.scoring.ListResponses(r.Context(), identity(r), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *Handler) listMemberResponses(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathUUID(w, r, "courseID")
	if !ok {
		return
	}
	memberID := r.PathValue("userID")
	responses, err := h.scoring.ListMemberResponses(r.Context(), identity(r), courseID, memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *Handler) listMemberAnswers(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathUUID(w, r, "quizID")
	if !ok {
		return
	}
	memberID := r.PathValue("userID")
	answers, err := h.scoring.ListMemberAnswers(r.Context(), identity(r), quizID, memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

func (h *Handler) generateReport(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathUUID(w, r, "quizID")
	if !ok {
		return
	}
	report, err := h.reports.GenerateForCaller(r.Context(), identity(r), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathUUID(w, r, "quizID")
	if !ok {
		return
	}
	reports, err := h.reports.ListReports(r.Context(), identity(r), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// decode unmarshals and validates the request body, writing the error
// response itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrCourseNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrResponseNotFound),
		errors.Is(err, domain.ErrReportNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDeadlinePassed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAlreadySubmitted):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrStorage):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
