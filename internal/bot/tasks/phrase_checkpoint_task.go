package tasks

import (
	"context"
	"fmt"

	"github.com/edgard/phraseguard/internal/config"
	"github.com/edgard/phraseguard/internal/moderation"
)

// newPhraseCheckpointTask creates the task that writes the current phrase
// list to the env file, so a crash loses at most one interval of changes.
func newPhraseCheckpointTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskPhraseCheckpoint)

	return func(ctx context.Context) error {
		if deps.EnvFile == "" || deps.Phrases == nil {
			log.DebugContext(ctx, "No env file configured, skipping phrase checkpoint")
			return nil
		}

		snap := deps.Phrases.Snapshot()
		if err := moderation.ExportPhrases(deps.EnvFile, deps.PhrasesEnv, snap); err != nil {
			return fmt.Errorf("phrase checkpoint failed: %w", err)
		}

		log.InfoContext(ctx, "Phrase list checkpointed", "path", deps.EnvFile, "count", snap.Len())
		return nil
	}
}
