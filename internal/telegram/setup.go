// Package telegram connects the moderation engine to the Telegram Bot API
// through the go-telegram/bot library.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/phraseguard/internal/moderation"
)

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", tokenPrefix(token))
	return b, nil
}

// RegisterUpdateHandler routes the updates accepted by match to handler.
// Global middlewares passed to NewTelegramBot still wrap it.
func RegisterUpdateHandler(b *bot.Bot, logger *slog.Logger, match bot.MatchFunc, handler bot.HandlerFunc) (string, error) {
	if b == nil {
		return "", fmt.Errorf("bot instance cannot be nil")
	}
	if match == nil || handler == nil {
		return "", fmt.Errorf("match and handler functions are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	id := b.RegisterHandlerMatchFunc(match, handler)
	logger.With("component", "handler_registry").Debug("Registered update handler", "handler_id", id)
	return id, nil
}

// RegisterCommands publishes the admin command list so clients can offer
// completion. Only primary names are published.
func RegisterCommands(ctx context.Context, b *bot.Bot, logger *slog.Logger, infos []moderation.CommandInfo) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "command_registry")

	commands := make([]models.BotCommand, 0, len(infos))
	for _, info := range infos {
		description := info.Description
		if info.Args != "" {
			description = info.Args + " - " + description
		}
		commands = append(commands, models.BotCommand{Command: info.Name, Description: description})
	}

	ok, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands})
	if err != nil {
		log.ErrorContext(ctx, "Failed to set bot commands", "error", err)
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	if !ok {
		return fmt.Errorf("telegram refused the command list")
	}

	log.InfoContext(ctx, "Registered bot commands", "count", len(commands))
	return nil
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return "..."
	}
	return token[:8] + "..."
}
