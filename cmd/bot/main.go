// Package main contains the entrypoint for the phraseguard moderation bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/edgard/phraseguard/internal/bot"
	"github.com/edgard/phraseguard/internal/bot/handlers"
	"github.com/edgard/phraseguard/internal/bot/tasks"
	"github.com/edgard/phraseguard/internal/config"
	"github.com/edgard/phraseguard/internal/database"
	"github.com/edgard/phraseguard/internal/httpapi"
	"github.com/edgard/phraseguard/internal/logger"
	"github.com/edgard/phraseguard/internal/moderation"
	"github.com/edgard/phraseguard/internal/observability"
	"github.com/edgard/phraseguard/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components, blocks until shutdown and returns the
// process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.Open(cfg.Database.Path, log)
	if err != nil {
		log.Error("Failed to open journal database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.Close(db, log)
	store := database.NewStore(db, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	phrases := moderation.NewPhraseStore(cfg.InitialPhrases(log))

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:     log,
		Store:      store,
		Phrases:    phrases,
		Retention:  cfg.Database.Retention,
		EnvFile:    cfg.EnvFile,
		PhrasesEnv: cfg.Moderation.PhrasesEnv,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	inflight := &handlers.Inflight{}
	hDeps := handlers.HandlerDeps{Logger: log}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(inflight.Middleware(), logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewIgnoreHandler(hDeps)),
	)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	client := telegram.NewClient(tg, log)
	replier := moderation.NewReplier(client, sched, cfg.Moderation.ReplyTTL, log)
	processor := moderation.NewProcessor(moderation.ProcessorDeps{
		Store:       phrases,
		Members:     client,
		Replier:     replier,
		Journal:     store,
		Metrics:     metrics,
		Messages:    cfg.Messages.Moderation(),
		BotUsername: me.Username,
		Logger:      log,
	})
	executor := moderation.NewExecutor(client, cfg.SanctionMode(), store, metrics, log)
	hDeps.Router = moderation.NewRouter(phrases, processor, executor, metrics, log)

	if _, err := telegram.RegisterUpdateHandler(tg, log, handlers.MatchMessage, handlers.NewUpdateHandler(hDeps)); err != nil {
		log.Error("Failed to register update handler", "error", err)
		return 1
	}
	if err := telegram.RegisterCommands(ctx, tg, log, moderation.Commands()); err != nil {
		log.Warn("Continuing without a published command list", "error", err)
	}

	deps := bot.Deps{
		Logger:    log,
		Config:    cfg,
		Listener:  tg,
		Scheduler: sched,
		Inflight:  inflight,
		Phrases:   phrases,
	}
	if cfg.HTTP.ListenAddr != "" {
		deps.API = httpapi.New(store, phrases, metrics, log)
	}
	app := bot.NewBot(deps)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished.")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
