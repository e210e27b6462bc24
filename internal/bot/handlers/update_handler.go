package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/phraseguard/internal/moderation"
)

// updateTimeout bounds the transport calls made for a single update. The
// handler context is detached from the listener so in-flight work survives
// the shutdown signal and can be drained.
const updateTimeout = 30 * time.Second

type updateHandler struct {
	deps HandlerDeps
}

// NewUpdateHandler creates the default handler. Every message and edited
// message goes through the moderation router.
func NewUpdateHandler(deps HandlerDeps) bot.HandlerFunc {
	return updateHandler{deps}.Handle
}

func (h updateHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "update")

	msg, ok := ToMessage(update)
	if !ok {
		log.DebugContext(ctx, "Ignoring update without a message", "update_id", updateID(update))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), updateTimeout)
	defer cancel()

	route := h.deps.Router.Route(ctx, msg)
	log.DebugContext(ctx, "Update routed", "update_id", update.ID, "chat_id", msg.ChatID, "route", route)
}

func updateID(update *models.Update) int64 {
	if update == nil {
		return 0
	}
	return update.ID
}

// MatchMessage selects the updates handled by the update handler.
func MatchMessage(update *models.Update) bool {
	return update != nil && (update.Message != nil || update.EditedMessage != nil)
}

// NewIgnoreHandler creates the fallback handler for updates no other handler
// matched.
func NewIgnoreHandler(deps HandlerDeps) bot.HandlerFunc {
	log := deps.Logger.With("handler", "ignore")
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		log.DebugContext(ctx, "Ignoring unsupported update", "update_id", updateID(update))
	}
}

// ToMessage flattens a Telegram update into the engine's message. Messages
// sent on behalf of a chat (anonymous admins, linked channels) carry no
// author. Captions are not treated as text.
func ToMessage(update *models.Update) (moderation.Message, bool) {
	if update == nil {
		return moderation.Message{}, false
	}

	src, edited := update.Message, false
	if src == nil {
		src, edited = update.EditedMessage, true
	}
	if src == nil {
		return moderation.Message{}, false
	}

	msg := moderation.Message{
		ID:      src.ID,
		ChatID:  src.Chat.ID,
		Text:    src.Text,
		HasText: src.Text != "",
		Edited:  edited,
	}
	if src.From != nil && src.SenderChat == nil {
		msg.Author = &moderation.Author{ID: src.From.ID, Username: src.From.Username}
	}
	return msg, true
}
