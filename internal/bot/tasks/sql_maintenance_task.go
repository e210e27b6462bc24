package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/phraseguard/internal/config"
)

// newSQLMaintenanceTask creates the task that vacuums the journal database.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskSQLMaintenance)

	return func(ctx context.Context) error {
		startTime := time.Now()

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Scheduled SQL maintenance task completed successfully", "duration", time.Since(startTime))
		return nil
	}
}
