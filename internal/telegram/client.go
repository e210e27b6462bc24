package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/phraseguard/internal/moderation"
)

// Client issues the chat-service calls of the moderation engine against the
// Bot API.
type Client struct {
	b      *bot.Bot
	logger *slog.Logger
}

var _ moderation.Transport = (*Client)(nil)

// NewClient wraps a go-telegram bot.
func NewClient(b *bot.Bot, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{b: b, logger: logger.With("component", "telegram_client")}
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	ok, err := c.b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: messageID})
	if err != nil {
		return fmt.Errorf("deleteMessage %d in chat %d: %w", messageID, chatID, err)
	}
	if !ok {
		return fmt.Errorf("deleteMessage %d in chat %d: not deleted", messageID, chatID)
	}
	return nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	msg, err := c.b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		return 0, fmt.Errorf("sendMessage to chat %d: %w", chatID, err)
	}
	return msg.ID, nil
}

func (c *Client) MemberStatus(ctx context.Context, chatID, userID int64) (moderation.MemberStatus, error) {
	member, err := c.b.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chatID, UserID: userID})
	if err != nil {
		return moderation.MemberStatusUnknown, fmt.Errorf("getChatMember %d in chat %d: %w", userID, chatID, err)
	}
	status := memberStatus(member.Type)
	c.logger.DebugContext(ctx, "Fetched member status", "chat_id", chatID, "user_id", userID, "status", status)
	return status, nil
}

func (c *Client) BanMember(ctx context.Context, chatID, userID int64, revokeMessages bool) error {
	ok, err := c.b.BanChatMember(ctx, &bot.BanChatMemberParams{
		ChatID:         chatID,
		UserID:         userID,
		RevokeMessages: revokeMessages,
	})
	if err != nil {
		return fmt.Errorf("banChatMember %d in chat %d: %w", userID, chatID, err)
	}
	if !ok {
		return fmt.Errorf("banChatMember %d in chat %d: not banned", userID, chatID)
	}
	return nil
}

func (c *Client) UnbanMember(ctx context.Context, chatID, userID int64) error {
	ok, err := c.b.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
		ChatID:       chatID,
		UserID:       userID,
		OnlyIfBanned: true,
	})
	if err != nil {
		return fmt.Errorf("unbanChatMember %d in chat %d: %w", userID, chatID, err)
	}
	if !ok {
		return fmt.Errorf("unbanChatMember %d in chat %d: not unbanned", userID, chatID)
	}
	return nil
}

func memberStatus(t models.ChatMemberType) moderation.MemberStatus {
	switch t {
	case models.ChatMemberTypeOwner:
		return moderation.MemberStatusOwner
	case models.ChatMemberTypeAdministrator:
		return moderation.MemberStatusAdministrator
	case models.ChatMemberTypeMember:
		return moderation.MemberStatusMember
	case models.ChatMemberTypeRestricted:
		return moderation.MemberStatusRestricted
	case models.ChatMemberTypeLeft:
		return moderation.MemberStatusLeft
	case models.ChatMemberTypeBanned:
		return moderation.MemberStatusBanned
	default:
		return moderation.MemberStatusUnknown
	}
}
