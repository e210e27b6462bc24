package moderation

import (
	"context"
	"time"
)

// ModerationRecord describes one executed moderation.
type ModerationRecord struct {
	EventID    string
	ChatID     int64
	MessageID  int
	UserID     int64 // zero when the message had no author
	Phrase     string
	Edited     bool
	Deleted    bool
	Sanction   Sanction
	Sanctioned bool
	At         time.Time
}

// PhraseAction is the kind of an accepted phrase list mutation.
type PhraseAction string

// Phrase actions.
const (
	PhraseAdded   PhraseAction = "add"
	PhraseRemoved PhraseAction = "remove"
)

// PhraseChange describes one accepted Add or Remove command.
type PhraseChange struct {
	ChatID int64
	UserID int64
	Action PhraseAction
	Phrase string
	At     time.Time
}

// Journal keeps an audit trail of moderation activity for operators.
// Writes are best effort: callers log failures and carry on.
type Journal interface {
	RecordModeration(ctx context.Context, rec ModerationRecord) error
	RecordPhraseChange(ctx context.Context, change PhraseChange) error
}
