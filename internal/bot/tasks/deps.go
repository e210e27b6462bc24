// Package tasks implements the periodic maintenance tasks of the bot.
package tasks

import (
	"log/slog"
	"time"

	"github.com/edgard/phraseguard/internal/database"
	"github.com/edgard/phraseguard/internal/moderation"
)

// TaskDeps contains the dependencies of the scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Phrases *moderation.PhraseStore

	// Retention is how long journal rows are kept. Zero keeps them forever.
	Retention time.Duration
	// EnvFile and PhrasesEnv locate the phrase line rewritten by checkpoints.
	EnvFile    string
	PhrasesEnv string
}
