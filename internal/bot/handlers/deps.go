// Package handlers contains the go-telegram/bot handlers and middleware that
// feed updates into the moderation engine.
package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/phraseguard/internal/moderation"
)

// UpdateRouter routes one flattened message.
type UpdateRouter interface {
	Route(ctx context.Context, msg moderation.Message) moderation.RouteKind
}

// HandlerDeps provides dependencies for the Telegram update handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Router UpdateRouter
}
