package database

import (
	"database/sql"
	"time"
)

// ModerationEvent is one executed moderation: a flagged message that was
// deleted and possibly led to a sanction of its author.
type ModerationEvent struct {
	ID        uint      `db:"id"         json:"-"`
	EventID   string    `db:"event_id"   json:"event_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	ChatID     int64         `db:"chat_id"    json:"chat_id"`
	MessageID  int64         `db:"message_id" json:"message_id"`
	UserID     sql.NullInt64 `db:"user_id"    json:"-"` // NULL when the message had no author
	Phrase     string        `db:"phrase"     json:"phrase"`
	Edited     bool          `db:"edited"     json:"edited"`
	Deleted    bool          `db:"deleted"    json:"deleted"`
	Sanction   string        `db:"sanction"   json:"sanction"`
	Sanctioned bool          `db:"sanctioned" json:"sanctioned"`
}

// PhraseChange is one accepted add or remove command.
type PhraseChange struct {
	ID        uint      `db:"id"         json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	ChatID int64  `db:"chat_id" json:"chat_id"`
	UserID int64  `db:"user_id" json:"user_id"`
	Action string `db:"action"  json:"action"`
	Phrase string `db:"phrase"  json:"phrase"`
}
