package moderation

import (
	"context"
	"io"
	"log/slog"

	"github.com/edgard/phraseguard/internal/observability"
)

// RouteKind is the outcome of classifying one inbound message.
type RouteKind int

// Routes.
const (
	RouteIgnore RouteKind = iota
	RouteCommand
	RouteScreen
)

func (k RouteKind) String() string {
	switch k {
	case RouteCommand:
		return "command"
	case RouteScreen:
		return "screen"
	default:
		return "ignore"
	}
}

// Route is the flattened routing decision for a message.
type Route struct {
	Kind    RouteKind
	Command Command
}

// Classify decides how msg is handled. Edited messages are screened like new
// ones; only new messages can carry commands.
func Classify(msg Message, botUsername string) Route {
	if !msg.HasText || msg.Text == "" {
		return Route{Kind: RouteIgnore}
	}
	if !msg.Edited {
		if cmd, ok := ParseCommand(msg.Text, botUsername); ok {
			return Route{Kind: RouteCommand, Command: cmd}
		}
	}
	return Route{Kind: RouteScreen}
}

// Router sends each message to the command processor or the screening path.
type Router struct {
	store     *PhraseStore
	processor *Processor
	executor  *Executor
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewRouter creates a router over the given components.
func NewRouter(store *PhraseStore, processor *Processor, executor *Executor, metrics *observability.Metrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{
		store:     store,
		processor: processor,
		executor:  executor,
		metrics:   metrics,
		logger:    logger.With("component", "router"),
	}
}

// Route handles one message and returns the route it took. A command from an
// unprivileged user falls through to screening.
func (r *Router) Route(ctx context.Context, msg Message) RouteKind {
	route := Classify(msg, r.processor.BotUsername())

	switch route.Kind {
	case RouteCommand:
		if r.processor.Handle(ctx, msg, route.Command) {
			return RouteCommand
		}
		r.screen(ctx, msg)
		return RouteScreen
	case RouteScreen:
		r.screen(ctx, msg)
		return RouteScreen
	default:
		r.logger.DebugContext(ctx, "Ignoring message without text", "chat_id", msg.ChatID, "message_id", msg.ID)
		return RouteIgnore
	}
}

// screen classifies msg against the current snapshot and moderates a match.
func (r *Router) screen(ctx context.Context, msg Message) {
	r.metrics.ObserveScreened(msg.Edited)

	phrase, flagged := r.store.Snapshot().Match(msg.Text)
	if !flagged {
		return
	}
	r.metrics.ObserveFlagged()
	r.executor.Execute(ctx, msg, phrase)
}
