// Package bot wires the moderation components together and manages their
// lifecycle: the Telegram listener, the scheduler, the ops API and the
// shutdown sequence.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/phraseguard/internal/bot/handlers"
	"github.com/edgard/phraseguard/internal/config"
	"github.com/edgard/phraseguard/internal/moderation"
)

// Listener receives updates until ctx is cancelled. *bot.Bot from
// go-telegram/bot satisfies it.
type Listener interface {
	Start(ctx context.Context)
}

// OpsServer serves the operator API until ctx is cancelled.
type OpsServer interface {
	Run(ctx context.Context, addr string) error
}

// Deps groups the components run by Bot. API is optional.
type Deps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Listener  Listener
	Scheduler *Scheduler
	Inflight  *handlers.Inflight
	Phrases   *moderation.PhraseStore
	API       OpsServer
}

// Bot represents the main application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	listener  Listener
	scheduler *Scheduler
	inflight  *handlers.Inflight
	phrases   *moderation.PhraseStore
	api       OpsServer
}

// NewBot creates the orchestrator.
func NewBot(deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	inflight := deps.Inflight
	if inflight == nil {
		inflight = &handlers.Inflight{}
	}
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       deps.Config,
		listener:  deps.Listener,
		scheduler: deps.Scheduler,
		inflight:  inflight,
		phrases:   deps.Phrases,
		api:       deps.API,
	}
}

// Run starts all components and blocks until ctx is cancelled or one of them
// fails. It then drains in-flight updates, stops the scheduler and exports
// the phrase list.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	if err := b.scheduler.Start(); err != nil {
		b.logger.Error("Failed to start scheduler", "error", err)
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")

		b.listener.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	if b.api != nil && b.cfg.HTTP.ListenAddr != "" {
		g.Go(func() error {
			if err := b.api.Run(gCtx, b.cfg.HTTP.ListenAddr); err != nil {
				b.logger.Error("Ops API failed", "error", err)
				return err
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	b.shutdown()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

func (b *Bot) shutdown() {
	timeout := b.cfg.Telegram.DrainTimeout
	if timeout <= 0 {
		timeout = config.DefaultDrainTimeout
	}
	if b.inflight.Wait(timeout) {
		b.logger.Info("In-flight updates drained")
	} else {
		b.logger.Warn("Timed out waiting for in-flight updates", "timeout", timeout, "remaining", b.inflight.Count())
	}

	if err := b.scheduler.Stop(); err != nil {
		b.logger.Error("Error stopping scheduler", "error", err)
	}

	b.exportPhrases()
}

// exportPhrases rewrites the phrase line of the env file. On failure the line
// that should have been written is logged so the operator can restore it.
func (b *Bot) exportPhrases() {
	if b.phrases == nil {
		return
	}
	snap := b.phrases.Snapshot()
	key := b.cfg.Moderation.PhrasesEnv
	line := moderation.ExportLine(key, snap)

	if b.cfg.EnvFile == "" {
		b.logger.Info("No env file configured, phrase list not exported", "phrases_line", line)
		return
	}

	if err := moderation.ExportPhrases(b.cfg.EnvFile, key, snap); err != nil {
		b.logger.Error("Failed to export phrase list", "error", err, "path", b.cfg.EnvFile)
		b.logger.Error("Phrase list that was not written", "phrases_line", line)
		return
	}
	b.logger.Info("Phrase list exported", "path", b.cfg.EnvFile, "count", snap.Len())
}
