package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/report"
	"github.com/google/uuid"
)

// ReportService aggregates per-member scores for a quiz into a PDF
// score sheet, uploads it and announces it to the course.
type ReportService struct {
	catalog   CatalogStore
	responses ResponseStore
	reports   ReportStore
	dir       CourseDirectory
	blobs     BlobStore
	announcer Announcer
	now       func() time.Time
}

func NewReportService(catalog CatalogStore, responses ResponseStore, reports ReportStore, dir CourseDirectory, blobs BlobStore, announcer Announcer) *ReportService {
	return &ReportService{
		catalog:   catalog,
		responses: responses,
		reports:   reports,
		dir:       dir,
		blobs:     blobs,
		announcer: announcer,
		now:       time.Now,
	}
}

// NewReportServiceWithClock is test-only for deterministic timestamps.
func NewReportServiceWithClock(catalog CatalogStore, responses ResponseStore, reports ReportStore, dir CourseDirectory, blobs BlobStore, announcer Announcer, now func() time.Time) *ReportService {
	s := NewReportService(catalog, responses, reports, dir, blobs, announcer)
	s.now = now
	return s
}

// Generate builds the score sheet for a quiz: one line per course
// member with their score (0 when absent) and a Present/Absent status
// derived purely from whether a response exists. The artifact key is
// derived from the quiz id so regeneration overwrites the same blob.
// Each call appends a new Report row; the quiz flag stays true.
func (s *ReportService) Generate(ctx context.Context, quizID uuid.UUID) (domain.Report, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Report{}, err
	}
	course, err := s.dir.GetCourse(ctx, quiz.CourseID)
	if err != nil {
		return domain.Report{}, err
	}
	members, err := s.dir.Members(ctx, course.ID)
	if err != nil {
		return domain.Report{}, err
	}

	adminName := "Instructor"
	rows := make([]report.Row, 0, len(members))
	for _, member := range members {
		if member.UserID == course.AdminID {
			adminName = member.FullName
		}
		row := report.Row{Name: member.FullName}
		response, err := s.responses.GetResponse(ctx, quiz.ID, member.UserID)
		switch {
		case err == nil:
			row.Score = response.Score
			row.Present = true
		case errors.Is(err, domain.ErrResponseNotFound):
			// absent, score stays 0
		default:
			return domain.Report{}, err
		}
		rows = append(rows, row)
	}

	data, err := report.Render(quiz.Title, rows)
	if err != nil {
		return domain.Report{}, fmt.Errorf("render report: %w", err)
	}

	fileName := fmt.Sprintf("%s.pdf", quiz.ID)
	url, err := s.blobs.Upload(ctx, "quiz-reports/"+fileName, "application/pdf", data)
	if err != nil {
		return domain.Report{}, fmt.Errorf("%w: upload report: %v", domain.ErrStorage, err)
	}

	generated := domain.Report{
		ID:        uuid.New(),
		QuizID:    quiz.ID,
		URL:       url,
		CreatedAt: s.now(),
	}
	if err := s.reports.CreateReport(ctx, &generated); err != nil {
		return domain.Report{}, err
	}

	announcement := domain.Announcement{
		ID:         uuid.New(),
		CourseID:   course.ID,
		SenderID:   course.AdminID,
		SenderName: adminName,
		Message:    "Quiz report: " + quiz.Title,
		FileName:   fileName,
		FileURL:    url,
		SentAt:     s.now(),
	}
	if err := s.announcer.Publish(ctx, course.ID, announcement); err != nil {
		// Delivery is fire-and-forget; the report itself is durable.
		log.Printf("announce report for quiz %s: %v", quiz.ID, err)
	}
	return generated, nil
}

// GenerateForCaller is the synchronous admin-facing entry point; it
// surfaces failures to the caller.
func (s *ReportService) GenerateForCaller(ctx context.Context, callerID string, quizID uuid.UUID) (domain.Report, error) {
	if callerID == "" {
		return domain.Report{}, domain.ErrUnauthorized
	}
	if err := s.requireQuizAdmin(ctx, callerID, quizID); err != nil {
		return domain.Report{}, err
	}
	return s.Generate(ctx, quizID)
}

// GenerateScheduled is the fire-and-forget entry point for the
// scheduler worker: failures are logged and swallowed, recovery is the
// next scheduled run or a manual retry.
func (s *ReportService) GenerateScheduled(ctx context.Context, quizID uuid.UUID) {
	if _, err := s.Generate(ctx, quizID); err != nil {
		log.Printf("scheduled report generation for quiz %s failed: %v", quizID, err)
	}
}

// ListReports returns every report row for a quiz to the course admin.
func (s *ReportService) ListReports(ctx context.Context, callerID string, quizID uuid.UUID) ([]domain.Report, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := s.requireQuizAdmin(ctx, callerID, quizID); err != nil {
		return nil, err
	}
	return s.reports.ListReports(ctx, quizID)
}

func (s *ReportService) requireQuizAdmin(ctx context.Context, callerID string, quizID uuid.UUID) error {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	course, err := s.dir.GetCourse(ctx, quiz.CourseID)
	if err != nil {
		return err
	}
	ok, err := s.dir.IsAdmin(ctx, course.ID, callerID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}
