package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/edgard/phraseguard/internal/moderation"
)

// Defaults for optional settings.
const (
	DefaultLogLevel     = "info"
	DefaultDrainTimeout = 10 * time.Second
	DefaultPhrasesEnv   = "SPAM_PHRASES"
	DefaultSanction     = "ban"
	DefaultDBPath       = "phraseguard.db"
	DefaultRetention    = 30 * 24 * time.Hour
	DefaultEnvFile      = ".env"
)

// Task names known to the scheduler.
const (
	TaskSQLMaintenance   = "sql_maintenance"
	TaskJournalPrune     = "journal_prune"
	TaskPhraseCheckpoint = "phrase_checkpoint"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("env_file", DefaultEnvFile)

	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.drain_timeout", DefaultDrainTimeout)

	v.SetDefault("moderation.phrases_env", DefaultPhrasesEnv)
	v.SetDefault("moderation.sanction", DefaultSanction)
	v.SetDefault("moderation.reply_ttl", moderation.DefaultReplyTTL)

	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.retention", DefaultRetention)

	v.SetDefault("http.listen_addr", "")

	v.SetDefault("scheduler.tasks."+TaskSQLMaintenance+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskSQLMaintenance+".schedule", "0 4 * * 0")
	v.SetDefault("scheduler.tasks."+TaskJournalPrune+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskJournalPrune+".schedule", "30 3 * * *")
	v.SetDefault("scheduler.tasks."+TaskPhraseCheckpoint+".enabled", false)
	v.SetDefault("scheduler.tasks."+TaskPhraseCheckpoint+".schedule", "0 * * * *")

	m := moderation.DefaultMessages()
	v.SetDefault("messages.input_empty", m.InputEmpty)
	v.SetDefault("messages.phrase_too_short", m.PhraseTooShort)
	v.SetDefault("messages.phrase_added", m.PhraseAdded)
	v.SetDefault("messages.phrase_exists", m.PhraseExists)
	v.SetDefault("messages.phrase_removed", m.PhraseRemoved)
	v.SetDefault("messages.phrase_not_found", m.PhraseNotFound)
	v.SetDefault("messages.list_empty", m.ListEmpty)
	v.SetDefault("messages.list_header", m.ListHeader)
	v.SetDefault("messages.help_header", m.HelpHeader)
}
