package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/phraseguard/internal/moderation"
)

// DefaultEventsLimit caps RecentModerationEvents when no positive limit is given.
const DefaultEventsLimit = 50

// Store defines the database operations of the moderation journal.
type Store interface {
	moderation.Journal

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RecentModerationEvents returns the newest moderation events first.
	RecentModerationEvents(ctx context.Context, limit int) ([]ModerationEvent, error)

	// RecentPhraseChanges returns the newest phrase changes first.
	RecentPhraseChanges(ctx context.Context, limit int) ([]PhraseChange, error)

	// PruneBefore deletes journal rows older than cutoff and returns how many
	// rows were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// RecordModeration inserts one moderation event row.
func (s *sqlxStore) RecordModeration(ctx context.Context, rec moderation.ModerationRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	event := ModerationEvent{
		EventID:    rec.EventID,
		CreatedAt:  at.UTC(),
		ChatID:     rec.ChatID,
		MessageID:  int64(rec.MessageID),
		UserID:     sql.NullInt64{Int64: rec.UserID, Valid: rec.UserID != 0},
		Phrase:     rec.Phrase,
		Edited:     rec.Edited,
		Deleted:    rec.Deleted,
		Sanction:   string(rec.Sanction),
		Sanctioned: rec.Sanctioned,
	}

	query := `INSERT INTO moderation_events
		(event_id, created_at, chat_id, message_id, user_id, phrase, edited, deleted, sanction, sanctioned)
		VALUES (:event_id, :created_at, :chat_id, :message_id, :user_id, :phrase, :edited, :deleted, :sanction, :sanctioned)`

	if _, err := s.db.NamedExecContext(ctx, query, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record moderation event",
			"error", err, "event_id", rec.EventID, "chat_id", rec.ChatID)
		return fmt.Errorf("failed to record moderation event %s: %w", rec.EventID, err)
	}

	s.logger.DebugContext(ctx, "Moderation event recorded", "event_id", rec.EventID, "chat_id", rec.ChatID)
	return nil
}

// RecordPhraseChange inserts one phrase change row.
func (s *sqlxStore) RecordPhraseChange(ctx context.Context, change moderation.PhraseChange) error {
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}
	row := PhraseChange{
		CreatedAt: at.UTC(),
		ChatID:    change.ChatID,
		UserID:    change.UserID,
		Action:    string(change.Action),
		Phrase:    change.Phrase,
	}

	query := `INSERT INTO phrase_changes (created_at, chat_id, user_id, action, phrase)
		VALUES (:created_at, :chat_id, :user_id, :action, :phrase)`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record phrase change",
			"error", err, "action", change.Action, "chat_id", change.ChatID)
		return fmt.Errorf("failed to record phrase change: %w", err)
	}
	return nil
}

func (s *sqlxStore) RecentModerationEvents(ctx context.Context, limit int) ([]ModerationEvent, error) {
	if limit <= 0 {
		limit = DefaultEventsLimit
	}

	var events []ModerationEvent
	query := `SELECT * FROM moderation_events ORDER BY created_at DESC, id DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &events, query, limit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []ModerationEvent{}, nil
		}
		s.logger.ErrorContext(ctx, "Failed to get recent moderation events", "error", err, "limit", limit)
		return nil, fmt.Errorf("failed to get recent moderation events: %w", err)
	}
	if events == nil {
		events = []ModerationEvent{}
	}
	return events, nil
}

func (s *sqlxStore) RecentPhraseChanges(ctx context.Context, limit int) ([]PhraseChange, error) {
	if limit <= 0 {
		limit = DefaultEventsLimit
	}

	var changes []PhraseChange
	query := `SELECT * FROM phrase_changes ORDER BY created_at DESC, id DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &changes, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Failed to get recent phrase changes", "error", err, "limit", limit)
		return nil, fmt.Errorf("failed to get recent phrase changes: %w", err)
	}
	if changes == nil {
		changes = []PhraseChange{}
	}
	return changes, nil
}

// PruneBefore removes rows from both journal tables in a single transaction.
func (s *sqlxStore) PruneBefore(ctx context.Context, cutoff time.Time) (removed int64, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for journal prune", "error", err)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if tx == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.ErrorContext(ctx, "Failed to rollback journal prune transaction", "error", rbErr)
			if err == nil {
				err = fmt.Errorf("failed to rollback transaction: %w", rbErr)
			}
		}
	}()

	cutoff = cutoff.UTC()
	for _, table := range []string{"moderation_events", "phrase_changes"} {
		res, execErr := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE created_at < ?", cutoff)
		if execErr != nil {
			s.logger.ErrorContext(ctx, "Failed to prune journal table", "error", execErr, "table", table)
			return 0, fmt.Errorf("failed to prune %s: %w", table, execErr)
		}
		n, rowsErr := res.RowsAffected()
		if rowsErr != nil {
			s.logger.WarnContext(ctx, "Could not get rows affected after prune", "error", rowsErr, "table", table)
			continue
		}
		removed += n
	}

	if err = tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit journal prune transaction", "error", err)
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Journal pruned", "cutoff", cutoff, "rows_removed", removed)
	return removed, nil
}

// RunSQLMaintenance sets a busy timeout and reclaims free pages.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting SQL maintenance")

	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy_timeout before VACUUM", "error", err)
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "SQL maintenance failed", "error", err)
		return fmt.Errorf("failed to run VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "SQL maintenance completed successfully")
	return nil
}
