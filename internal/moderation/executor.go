package moderation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/phraseguard/internal/observability"
)

// Sanction selects what happens to the author of a flagged message.
type Sanction string

// Sanction modes.
const (
	// SanctionBan bans the author and revokes their recent messages.
	SanctionBan Sanction = "ban"
	// SanctionKick bans with revocation, then unbans so the author may rejoin.
	SanctionKick Sanction = "kick"
	// SanctionNone only deletes the message.
	SanctionNone Sanction = "none"
)

// ParseSanction validates a configured sanction mode.
func ParseSanction(s string) (Sanction, error) {
	switch Sanction(s) {
	case SanctionBan, SanctionKick, SanctionNone:
		return Sanction(s), nil
	default:
		return "", fmt.Errorf("unknown sanction mode %q", s)
	}
}

// ActionResult reports what the executor managed to do for one message.
type ActionResult struct {
	EventID    string
	Deleted    bool
	Sanctioned bool
}

// Executor deletes flagged messages and sanctions their authors. Each step is
// attempted once; failures are logged and never retried.
type Executor struct {
	deleter    MessageDeleter
	sanctioner MemberSanctioner
	sanction   Sanction
	journal    Journal
	metrics    *observability.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewExecutor creates an executor. journal and metrics may be nil.
func NewExecutor(transport Transport, sanction Sanction, journal Journal, metrics *observability.Metrics, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if sanction == "" {
		sanction = SanctionBan
	}
	return &Executor{
		deleter:    transport,
		sanctioner: transport,
		sanction:   sanction,
		journal:    journal,
		metrics:    metrics,
		logger:     logger.With("component", "executor"),
		now:        time.Now,
	}
}

// Execute applies moderation to msg, which matched phrase.
func (e *Executor) Execute(ctx context.Context, msg Message, phrase string) ActionResult {
	res := ActionResult{EventID: uuid.NewString()}
	log := e.logger.With("event_id", res.EventID, "chat_id", msg.ChatID, "message_id", msg.ID)

	if err := e.deleter.DeleteMessage(ctx, msg.ChatID, msg.ID); err != nil {
		log.WarnContext(ctx, "Failed to delete flagged message", "error", err)
		e.metrics.ObserveAction("delete", observability.ResultError)
	} else {
		res.Deleted = true
		e.metrics.ObserveAction("delete", observability.ResultOK)
	}

	switch {
	case msg.Author == nil:
		log.InfoContext(ctx, "Flagged message has no author, skipping sanction")
		e.metrics.ObserveAction(string(e.sanction), observability.ResultSkipped)
	case e.sanction == SanctionNone:
		log.DebugContext(ctx, "Sanctions disabled, message deleted only", "user_id", msg.Author.ID)
	default:
		res.Sanctioned = e.sanctionAuthor(ctx, log, msg.ChatID, msg.Author.ID)
	}

	log.InfoContext(ctx, "Moderated flagged message",
		"phrase", phrase, "edited", msg.Edited, "deleted", res.Deleted,
		"sanction", e.sanction, "sanctioned", res.Sanctioned)

	e.record(ctx, log, msg, phrase, res)
	return res
}

func (e *Executor) sanctionAuthor(ctx context.Context, log *slog.Logger, chatID, userID int64) bool {
	log = log.With("user_id", userID, "sanction", e.sanction)

	if err := e.sanctioner.BanMember(ctx, chatID, userID, true); err != nil {
		log.WarnContext(ctx, "Failed to ban author of flagged message", "error", err)
		e.metrics.ObserveAction("ban", observability.ResultError)
		return false
	}
	e.metrics.ObserveAction("ban", observability.ResultOK)

	if e.sanction == SanctionKick {
		if err := e.sanctioner.UnbanMember(ctx, chatID, userID); err != nil {
			log.WarnContext(ctx, "Failed to lift ban after kick", "error", err)
			e.metrics.ObserveAction("unban", observability.ResultError)
		} else {
			e.metrics.ObserveAction("unban", observability.ResultOK)
		}
	}
	return true
}

func (e *Executor) record(ctx context.Context, log *slog.Logger, msg Message, phrase string, res ActionResult) {
	if e.journal == nil {
		return
	}
	rec := ModerationRecord{
		EventID:    res.EventID,
		ChatID:     msg.ChatID,
		MessageID:  msg.ID,
		Phrase:     phrase,
		Edited:     msg.Edited,
		Deleted:    res.Deleted,
		Sanction:   e.sanction,
		Sanctioned: res.Sanctioned,
		At:         e.now().UTC(),
	}
	if msg.Author != nil {
		rec.UserID = msg.Author.ID
	}
	if err := e.journal.RecordModeration(ctx, rec); err != nil {
		log.WarnContext(ctx, "Failed to record moderation event", "error", err)
	}
}
