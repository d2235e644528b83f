package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/config"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/blob"
	"classroom-quiz-service/internal/infra/memory"
	ossblob "classroom-quiz-service/internal/infra/oss"
	pg "classroom-quiz-service/internal/infra/postgres"
	redisinfra "classroom-quiz-service/internal/infra/redis"
	transport "classroom-quiz-service/internal/transport/http"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var (
		catalogStore  app.CatalogStore
		responseStore app.ResponseStore
		reportStore   app.ReportStore
		dir           app.CourseDirectory
	)
	if cfg.Postgres.URL != "" {
		db := pg.NewDB(cfg.Postgres.URL)
		defer db.Close()
		store := pg.NewStore(db)
		catalogStore, responseStore, reportStore = store, store, store

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		dir = pg.NewDirectory(pool)
	} else {
		store := memory.NewStore()
		catalogStore, responseStore, reportStore = store, store, store
		dir = sampleDirectory()
	}

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

	hub := transport.NewHub()

	var announcer app.Announcer
	if redisClient != nil {
		announcer = redisinfra.NewAnnouncer(redisClient)
	} else {
		announcer = transport.NewHubAnnouncer(hub, dir)
	}

	reportSvc := app.NewReportService(catalogStore, responseStore, reportStore, dir, blobs, announcer)
	dispatcher := app.NewTaskDispatcher(catalogStore, dir, announcer, reportSvc)

	var (
		bridge     *app.SchedulerBridge
		memSched   *memory.Scheduler
		redisSched *redisinfra.Scheduler
	)
	if redisClient != nil {
		redisSched = redisinfra.NewScheduler(redisClient)
		bridge = app.NewSchedulerBridge(redisSched)
	} else {
		memSched = memory.NewScheduler(dispatcher.Dispatch)
		defer memSched.Stop()
		bridge = app.NewSchedulerBridge(memSched)
	}

	grace := config.Duration(cfg.Quiz.Grace, app.DefaultGrace)
	catalog := app.NewCatalogService(catalogStore, dir, bridge, grace)
	scoring := app.NewScoringService(catalogStore, responseStore, dir)

	handler := transport.NewHandler(catalog, scoring, reportSvc, hub)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	group, groupCtx := errgroup.WithContext(workerCtx)
	if redisClient != nil {
		relay := redisinfra.NewRelay(redisClient, dir, hub)
		group.Go(func() error { return relay.Run(groupCtx) })

		pollInterval := config.Duration(cfg.Scheduler.PollInterval, 5*time.Second)
		group.Go(func() error { return redisSched.Run(groupCtx, pollInterval, dispatcher.Dispatch) })
	}

	go func() {
		log.Printf("starting classroom quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	cancelWorkers()
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("worker shutdown: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleDirectory seeds one course with a teacher and two students;
// the real membership tables arrive with a Postgres configuration.
func sampleDirectory() *memory.Directory {
	courseID := uuid.MustParse("7b0d8a2e-4f15-4c33-9a39-3f2b1d6f0c01")
	return memory.NewDirectory(
		[]domain.Course{
			{ID: courseID, Name: "Introduction to Algorithms", AdminID: "teacher-1", CreatedAt: time.Now()},
		},
		[]domain.CourseMember{
			{ID: uuid.New(), CourseID: courseID, UserID: "teacher-1", FullName: "Ada Lovelace", Role: "teacher"},
			{ID: uuid.New(), CourseID: courseID, UserID: "student-1", FullName: "Alan Turing", Role: "student"},
			{ID: uuid.New(), CourseID: courseID, UserID: "student-2", FullName: "Grace Hopper", Role: "student"},
		},
	)
}
