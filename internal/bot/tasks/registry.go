package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/phraseguard/internal/config"
)

// ScheduledTaskFunc is the signature of every scheduled task. The context
// provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns all known tasks keyed by name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	tasks := map[string]ScheduledTaskFunc{
		config.TaskSQLMaintenance:   newSQLMaintenanceTask(deps),
		config.TaskJournalPrune:     newJournalPruneTask(deps),
		config.TaskPhraseCheckpoint: newPhraseCheckpointTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
