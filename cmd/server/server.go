package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	gormlogger "gorm.io/gorm/logger"

	"tramway-server/internal/config"
	"tramway-server/internal/domain/chat"
	"tramway-server/internal/domain/layout"
	"tramway-server/internal/domain/project"
	"tramway-server/internal/domain/timeline"
	"tramway-server/internal/infrastructure/database"
	"tramway-server/internal/infrastructure/llmprovider"
	"tramway-server/internal/infrastructure/logger"
	"tramway-server/internal/infrastructure/metrics"
	"tramway-server/internal/infrastructure/observability"
	"tramway-server/internal/infrastructure/queue"
	"tramway-server/internal/infrastructure/repository/projectrepo"
	"tramway-server/internal/infrastructure/repository/timelinerepo"
	"tramway-server/internal/interfaces/httpserver"
	"tramway-server/internal/interfaces/httpserver/handlers"
	"tramway-server/internal/worker"
)

type Application struct {
	httpServer *httpserver.HttpServer
	taskQueue  queue.TaskQueue
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, taskQueue queue.TaskQueue, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		taskQueue:  taskQueue,
		log:        log,
	}
}

// Start runs the HTTP listener, the pprof listener, and the queue depth
// sampler until the context is cancelled or one of them fails.
func (a *Application) Start(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.httpServer.Run(egCtx)
	})
	eg.Go(func() error {
		pprofServer := &http.Server{Addr: "0.0.0.0:6060"}
		go func() {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = pprofServer.Shutdown(shutdownCtx)
		}()
		if err := pprofServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		return a.sampleQueueDepth(egCtx)
	})
	return eg.Wait()
}

// sampleQueueDepth keeps the queue depth gauge honest between enqueues.
func (a *Application) sampleQueueDepth(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			depth, err := a.taskQueue.GetQueueDepth(ctx)
			if err != nil {
				a.log.Warn().Err(err).Msg("read queue depth")
				continue
			}
			metrics.SetQueueDepth(int(depth))
		}
	}
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	timelineRepository := timelinerepo.NewRepository(db)
	projectRepository := projectrepo.NewRepository(db)

	timelineService := timeline.NewService(timelineRepository, log)
	layoutService := layout.NewService(layout.NewEngine(), layout.NewCache(), timelineService, timelineRepository, log)
	projectService := project.NewService(projectRepository, timelineRepository, timelineService, layoutService, log)
	llmClient := llmprovider.NewClient(cfg)
	chatService := chat.NewService(timelineService, timelineRepository, llmClient, log)

	taskQueue := queue.NewMemoryQueue(cfg.LayoutQueueSize)
	scheduler := worker.NewScheduler(taskQueue, layoutService)
	workerPool := worker.NewPool(
		taskQueue,
		layoutService,
		worker.Config{
			WorkerCount: cfg.LayoutWorkers,
			TaskTimeout: cfg.LayoutTimeout,
		},
		log,
	)

	workerPool.Start(ctx)
	defer func() {
		log.Info().Msg("stopping worker pool")
		workerPool.Stop()
	}()

	handlerProvider := handlers.NewProvider(
		projectService,
		timelineService,
		layoutService,
		chatService,
		scheduler,
		log,
	)

	httpServer := httpserver.New(cfg, log, handlerProvider)
	app := NewApplication(httpServer, taskQueue, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
