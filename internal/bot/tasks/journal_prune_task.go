package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/phraseguard/internal/config"
)

// newJournalPruneTask creates the task that drops journal rows older than the
// configured retention.
func newJournalPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskJournalPrune)

	return func(ctx context.Context) error {
		if deps.Retention <= 0 {
			log.DebugContext(ctx, "Journal retention disabled, nothing to prune")
			return nil
		}

		cutoff := time.Now().Add(-deps.Retention)
		removed, err := deps.Store.PruneBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("journal prune failed: %w", err)
		}

		log.InfoContext(ctx, "Journal prune completed", "cutoff", cutoff, "rows_removed", removed)
		return nil
	}
}
