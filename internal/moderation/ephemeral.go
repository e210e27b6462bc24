package moderation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// DefaultReplyTTL is how long a command response stays visible.
const DefaultReplyTTL = 30 * time.Second

// cleanupTimeout bounds a single deferred delete call.
const cleanupTimeout = 10 * time.Second

type replyTransport interface {
	MessageDeleter
	MessageSender
}

// Replier sends command responses that remove themselves, together with the
// command that triggered them.
type Replier struct {
	transport replyTransport
	deferrer  Deferrer
	ttl       time.Duration
	logger    *slog.Logger
}

// NewReplier creates a Replier. A non-positive ttl selects DefaultReplyTTL.
func NewReplier(transport Transport, deferrer Deferrer, ttl time.Duration, logger *slog.Logger) *Replier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if ttl <= 0 {
		ttl = DefaultReplyTTL
	}
	return &Replier{
		transport: transport,
		deferrer:  deferrer,
		ttl:       ttl,
		logger:    logger.With("component", "replier"),
	}
}

// RespondAndExpire deletes original, posts text to the same chat and schedules
// the deletion of the posted reply after the TTL. It returns once the reply is
// sent; the deletion runs later on its own.
func (r *Replier) RespondAndExpire(ctx context.Context, original Message, text string) {
	log := r.logger.With("chat_id", original.ChatID, "command_message_id", original.ID)

	if err := r.transport.DeleteMessage(ctx, original.ChatID, original.ID); err != nil {
		log.WarnContext(ctx, "Failed to delete command message", "error", err)
	}

	replyID, err := r.transport.SendMessage(ctx, original.ChatID, text)
	if err != nil {
		log.WarnContext(ctx, "Failed to send command response", "error", err)
		return
	}

	chatID := original.ChatID
	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
		defer cancel()
		if err := r.transport.DeleteMessage(ctx, chatID, replyID); err != nil {
			log.WarnContext(ctx, "Failed to delete expired response", "reply_message_id", replyID, "error", err)
			return
		}
		log.DebugContext(ctx, "Deleted expired response", "reply_message_id", replyID)
	}

	name := fmt.Sprintf("expire_reply_%d_%d", chatID, replyID)
	if r.deferrer != nil {
		err := r.deferrer.After(r.ttl, name, cleanup)
		if err == nil {
			log.DebugContext(ctx, "Scheduled response cleanup", "reply_message_id", replyID, "ttl", r.ttl)
			return
		}
		log.WarnContext(ctx, "Scheduler rejected response cleanup, using timer", "reply_message_id", replyID, "error", err)
	}
	time.AfterFunc(r.ttl, func() { cleanup(context.Background()) })
}
