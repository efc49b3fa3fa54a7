package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	coreconfig "github.com/m3rciful/surveybot/core/config"
	coredatabase "github.com/m3rciful/surveybot/core/database"
	"github.com/m3rciful/surveybot/core/logger"
	coretelegram "github.com/m3rciful/surveybot/core/telegram"
	"github.com/m3rciful/surveybot/core/telegram/middleware"
	surveybot "github.com/m3rciful/surveybot/survey/bot"
	"github.com/m3rciful/surveybot/survey/catalog"
	"github.com/m3rciful/surveybot/survey/engine"
	"github.com/m3rciful/surveybot/survey/storage"
	"log/slog"
)

func main() {
	if err := run(); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitLogger(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Dir:     cfg.Logging.Dir,
		File:    cfg.Logging.File,
		Profile: cfg.Logging.Profile,
	}); err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	db, err := coredatabase.Connect(cfg.Storage.Database)
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewResponses(db, cfg.Storage.Table)
	if err != nil {
		return fmt.Errorf("response store init failed: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("response schema failed: %w", err)
	}

	cat, err := catalog.Load(cfg.Survey.CatalogPath)
	if err != nil {
		return fmt.Errorf("catalog load failed: %w", err)
	}
	logger.L.With("component", "app").Info("catalog loaded",
		slog.String("event", "catalog"),
		slog.String("path", cfg.Survey.CatalogPath),
		slog.Int("questions", cat.Len()),
	)

	runOpts := coretelegram.Options{
		Token:                  cfg.Telegram.Token,
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: coretelegram.WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	}

	tgBot, err := coretelegram.NewBot(runOpts)
	if err != nil {
		return err
	}

	eng := engine.New(cat, store, surveybot.NewPrompter(tgBot), engine.Options{
		IdleTimeout: time.Duration(cfg.Session.IdleTimeoutMinutes) * time.Minute,
	})
	go eng.Run(ctx)

	startedAt := time.Now()
	runOpts.Middlewares = []coretelegram.Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}
	runOpts.Routes = surveybot.Routes(eng, store)
	runOpts.Commands = surveybot.Commands()
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.L.With("component", "app").Info("app ready",
			slog.String("event", "ready"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.L.With("component", "app").Info("shutting down...",
			slog.String("event", "shutdown"),
		)
		return nil
	}

	return coretelegram.Run(ctx, tgBot, runOpts)
}
