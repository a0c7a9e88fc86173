package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"recurring-planner/internal/bot"
	"recurring-planner/internal/config"
	"recurring-planner/internal/httpserver"
	"recurring-planner/internal/lock"
	"recurring-planner/internal/logging"
	"recurring-planner/internal/repository"
	"recurring-planner/internal/repository/postgres"
	"recurring-planner/internal/service"
)

type categoryStore interface {
	service.CategoryResolver
	service.CategoryLister
}

// stores groups the persistence the services need, whichever driver backs it.
type stores struct {
	generation service.GenerationStore
	tasks      service.TaskStore
	categories categoryStore
	close      func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	locker, closeLock := newLocker(ctx, cfg, logger)
	defer closeLock()

	generator := service.NewGenerationService(st.generation, locker, service.GenerationConfig{
		MaxCatchUpPerTemplate: cfg.MaxCatchUpPerTemplate,
		PassBudget:            cfg.PassBudget,
	}, logger.Named("generation"))

	var notifier service.PassNotifier
	if cfg.Telegram.Token != "" {
		alerter, err := bot.NewAlerter(cfg.Telegram.Token, cfg.Telegram.AlertChatID, logger.Named("alerts"))
		if err != nil {
			return fmt.Errorf("telegram alerts: %w", err)
		}
		notifier = alerter
	}
	job := service.NewGenerationJob(generator, notifier, cfg.PassTimeout, logger.Named("job"))

	scheduler := service.NewSchedulerService(time.UTC, logger.Named("scheduler"))
	entryID, err := scheduler.ScheduleSpec(cfg.GenerationSchedule, job.Run)
	if err != nil {
		return fmt.Errorf("schedule generation: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("Generation scheduled",
		zap.String("schedule", cfg.GenerationSchedule),
		zap.Time("next_run", scheduler.Next(entryID)),
	)

	if cfg.RunOnStart {
		go job.Run()
	}

	router := httpserver.NewRouter(httpserver.Deps{
		Passes:      job,
		Templates:   service.NewTaskService(st.tasks, st.categories),
		Chains:      service.NewChainService(st.tasks),
		Occurrences: service.NewOccurrenceService(st.tasks),
		Categories:  service.NewCategoryService(st.categories),
		Logger:      logger.Named("http"),
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
		tasks := postgres.NewTaskStore(pool, logger.Named("postgres"))
		return stores{
			generation: tasks,
			tasks:      tasks,
			categories: postgres.NewCategoryStore(pool),
			close:      pool.Close,
		}, nil
	default:
		db, err := repository.NewDB(cfg.DatabaseURL, logger)
		if err != nil {
			return stores{}, err
		}
		tasks := repository.NewTaskRepository(db)
		return stores{
			generation: tasks,
			tasks:      tasks,
			categories: repository.NewCategoryRepository(db),
			close: func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			},
		}, nil
	}
}

func newLocker(ctx context.Context, cfg config.Config, logger *zap.Logger) (lock.Locker, func()) {
	if cfg.Lock.Backend != "redis" {
		return lock.NewMemory(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Lock.RedisAddr,
		Password: cfg.Lock.RedisPassword,
		DB:       cfg.Lock.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis not reachable at startup, passes will fail until it is", zap.Error(err))
	}
	return lock.NewRedis(client, cfg.Lock.Key, cfg.Lock.TTL, logger.Named("lock")), func() { _ = client.Close() }
}
