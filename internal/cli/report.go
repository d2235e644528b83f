package cli

import (
	"context"
	"fmt"
	"log"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/config"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/blob"
	"classroom-quiz-service/internal/infra/memory"
	ossblob "classroom-quiz-service/internal/infra/oss"
	pg "classroom-quiz-service/internal/infra/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewReportCmd regenerates the score sheet for one quiz. It is the
// operator escape hatch when a scheduled generation failed.
func NewReportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "report <quiz-id>",
		Short: "Generate the score report for a quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), *configPath, args[0])
		},
	}
}

func runReport(ctx context.Context, configPath, rawQuizID string) error {
	quizID, err := uuid.Parse(rawQuizID)
	if err != nil {
		return fmt.Errorf("invalid quiz id %q: %w", rawQuizID, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := pg.NewDB(cfg.Postgres.URL)
	defer db.Close()
	store := pg.NewStore(db)

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	dir := pg.NewDirectory(pool)

	var blobs app.BlobStore
	switch {
	case cfg.Blob.OSS.Bucket != "":
		blobs, err = ossblob.NewStore(ossblob.Config{
			Endpoint:        cfg.Blob.OSS.Endpoint,
			AccessKeyID:     cfg.Blob.OSS.AccessKeyID,
			AccessKeySecret: cfg.Blob.OSS.AccessKeySecret,
			Bucket:          cfg.Blob.OSS.Bucket,
		})
		if err != nil {
			return err
		}
	case cfg.Blob.Dir != "":
		blobs = blob.NewFSStore(cfg.Blob.Dir, cfg.Blob.BaseURL)
	default:
		blobs = memory.NewBlobStore()
	}

	service := app.NewReportService(store, store, store, dir, blobs, logAnnouncer{})
	generated, err := service.Generate(ctx, quizID)
	if err != nil {
		return err
	}
	log.Printf("report generated: %s", generated.URL)
	return nil
}

// logAnnouncer records announcements on stdout; there is no connected
// client to push to from a one-shot CLI run.
type logAnnouncer struct{}

func (logAnnouncer) Publish(ctx context.Context, courseID uuid.UUID, announcement domain.Announcement) error {
	log.Printf("announcement for course %s: %s", courseID, announcement.Message)
	return nil
}

func (logAnnouncer) NotifyUser(ctx context.Context, userID, message string) error {
	log.Printf("notify %s: %s", userID, message)
	return nil
}
