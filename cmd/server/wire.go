//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tramway-server/internal/config"
	"tramway-server/internal/domain/chat"
	"tramway-server/internal/domain/layout"
	"tramway-server/internal/domain/project"
	"tramway-server/internal/domain/timeline"
	"tramway-server/internal/infrastructure/database"
	"tramway-server/internal/infrastructure/llmprovider"
	"tramway-server/internal/infrastructure/logger"
	"tramway-server/internal/infrastructure/queue"
	"tramway-server/internal/infrastructure/repository/projectrepo"
	"tramway-server/internal/infrastructure/repository/timelinerepo"
	"tramway-server/internal/interfaces/httpserver"
	"tramway-server/internal/interfaces/httpserver/handlers"
	"tramway-server/internal/worker"
)

var tramwaySet = wire.NewSet(
	timelinerepo.NewRepository,
	wire.Bind(new(timeline.Repository), new(*timelinerepo.Repository)),
	projectrepo.NewRepository,
	wire.Bind(new(project.Repository), new(*projectrepo.Repository)),
	timeline.NewService,
	layout.NewEngine,
	layout.NewCache,
	layout.NewService,
	project.NewService,
	llmprovider.NewClient,
	wire.Bind(new(chat.Provider), new(*llmprovider.Client)),
	chat.NewService,
	newTaskQueue,
	worker.NewScheduler,
	newHandlerProvider,
)

// BuildApplication demonstrates how to assemble the tramway service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		tramwaySet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func newTaskQueue(cfg *config.Config) queue.TaskQueue {
	return queue.NewMemoryQueue(cfg.LayoutQueueSize)
}

func newHandlerProvider(
	projectService *project.Service,
	timelineService *timeline.Service,
	layoutService *layout.Service,
	chatService *chat.Service,
	scheduler *worker.Scheduler,
	log zerolog.Logger,
) *handlers.Provider {
	return handlers.NewProvider(projectService, timelineService, layoutService, chatService, scheduler, log)
}
