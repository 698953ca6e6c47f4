package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"task-manager/internal/api"
	"task-manager/internal/bot"
	"task-manager/internal/cache"
	"task-manager/internal/config"
	"task-manager/internal/repository"
	"task-manager/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "taskmanager",
		Short:         "Personal task manager: REST API and Telegram front end",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), botCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatalf("taskmanager: %v", err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := repository.NewDB(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			log.Println("[info] schema is up to date")
			return nil
		},
	}
}

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram front end against the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateBot(); err != nil {
				return err
			}
			telegramBot, err := bot.New(cfg)
			if err != nil {
				return err
			}
			log.Println("Task manager bot started.")
			if err := telegramBot.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Println("Shutdown complete.")
			return nil
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	var taskCache cache.TaskCache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.CacheTTL)
		if err != nil {
			log.Printf("[warn] redis unavailable, caching disabled: %v", err)
		} else {
			defer redisCache.Close()
			taskCache = redisCache
		}
	}

	authSvc := service.NewAuthService(userRepo, tokenRepo, service.AuthConfig{
		Secret:   []byte(cfg.JWTSecret),
		TokenTTL: cfg.TokenTTL,
	})
	categorySvc := service.NewCategoryService(categoryRepo)
	taskSvc := service.NewTaskService(taskRepo, categoryRepo, taskCache)

	if cfg.TokenTTL > 0 {
		scheduler := service.NewSchedulerService(time.Local)
		if err := scheduler.ScheduleTokenPurge(authSvc, cfg.TokenCleanupAt, cfg.TokenCleanupInterval); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	handler := api.NewHandler(authSvc, categorySvc, taskSvc, cfg.RequestTimeout)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] api listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("Shutdown complete.")
	return nil
}
