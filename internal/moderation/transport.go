package moderation

import (
	"context"
	"time"
)

// Author identifies the sender of a message.
type Author struct {
	ID       int64
	Username string
}

// Message is the transport-independent view of an inbound chat message.
// Author is nil for service or anonymized messages. HasText is false for
// non-text content (photos, stickers, ...), which is never classified.
type Message struct {
	ID      int
	ChatID  int64
	Author  *Author
	Text    string
	HasText bool
	Edited  bool
}

// MemberStatus is the standing of a user in a chat as reported by the transport.
type MemberStatus int

// Member statuses.
const (
	MemberStatusUnknown MemberStatus = iota
	MemberStatusOwner
	MemberStatusAdministrator
	MemberStatusMember
	MemberStatusRestricted
	MemberStatusLeft
	MemberStatusBanned
)

// Privileged reports whether the status grants access to admin commands.
func (s MemberStatus) Privileged() bool {
	return s == MemberStatusOwner || s == MemberStatusAdministrator
}

func (s MemberStatus) String() string {
	switch s {
	case MemberStatusOwner:
		return "owner"
	case MemberStatusAdministrator:
		return "administrator"
	case MemberStatusMember:
		return "member"
	case MemberStatusRestricted:
		return "restricted"
	case MemberStatusLeft:
		return "left"
	case MemberStatusBanned:
		return "banned"
	default:
		return "unknown"
	}
}

// MessageDeleter removes a message from a chat.
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// MessageSender posts a text message and returns the new message ID.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
}

// MemberLookup reports a user's standing in a chat.
type MemberLookup interface {
	MemberStatus(ctx context.Context, chatID, userID int64) (MemberStatus, error)
}

// MemberSanctioner removes users from a chat.
type MemberSanctioner interface {
	BanMember(ctx context.Context, chatID, userID int64, revokeMessages bool) error
	UnbanMember(ctx context.Context, chatID, userID int64) error
}

// Transport is the full set of chat-service calls the engine issues.
type Transport interface {
	MessageDeleter
	MessageSender
	MemberLookup
	MemberSanctioner
}

// Deferrer runs fn once after delay without blocking the caller.
type Deferrer interface {
	After(delay time.Duration, name string, fn func(ctx context.Context)) error
}
