package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/application"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

// BotAPI is the subset of *tgbotapi.BotAPI the sender uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Sender performs the outbound chat operations.
type Sender struct {
	api    BotAPI
	logger *slog.Logger
}

// SenderOption configures the Sender.
type SenderOption func(*Sender)

// WithSenderLogger injects a slog logger.
func WithSenderLogger(logger *slog.Logger) SenderOption {
	return func(s *Sender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSender wraps a bot API client.
func NewSender(api BotAPI, opts ...SenderOption) *Sender {
	s := &Sender{api: api, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ParseChatTarget accepts a numeric chat id or an @channel username.
func ParseChatTarget(raw string) (ports.ChatTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ports.ChatTarget{}, errors.New("chat target is empty")
	}
	if strings.HasPrefix(raw, "@") {
		if len(raw) < 2 {
			return ports.ChatTarget{}, fmt.Errorf("chat target %q has no username", raw)
		}
		return ports.ChatTarget{Username: raw}, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return ports.ChatTarget{}, fmt.Errorf("chat target %q is neither a chat id nor an @username", raw)
	}
	return ports.ChatTarget{ID: id}, nil
}

// SendText sends a Markdown message, optionally as a reply. It returns the new message id.
func (s *Sender) SendText(ctx context.Context, target ports.ChatTarget, text string, replyTo int) (int, error) {
	if err := s.ready(ctx, target); err != nil {
		return 0, err
	}
	var msg tgbotapi.MessageConfig
	if target.Username != "" {
		msg = tgbotapi.NewMessageToChannel(target.Username, text)
	} else {
		msg = tgbotapi.NewMessage(target.ID, text)
	}
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyToMessageID = replyTo
	sent, err := s.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

// SendPhoto sends a photo by URL with a Markdown caption.
func (s *Sender) SendPhoto(ctx context.Context, target ports.ChatTarget, photoURL, caption string, replyTo int) (int, error) {
	if err := s.ready(ctx, target); err != nil {
		return 0, err
	}
	var photo tgbotapi.PhotoConfig
	if target.Username != "" {
		photo = tgbotapi.NewPhotoToChannel(target.Username, tgbotapi.FileURL(photoURL))
	} else {
		photo = tgbotapi.NewPhoto(target.ID, tgbotapi.FileURL(photoURL))
	}
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown
	photo.ReplyToMessageID = replyTo
	sent, err := s.api.Send(photo)
	if err != nil {
		return 0, fmt.Errorf("send photo: %w", err)
	}
	return sent.MessageID, nil
}

// DeleteMessage removes a message the bot sent earlier.
func (s *Sender) DeleteMessage(ctx context.Context, target ports.ChatTarget, messageID int) error {
	if err := s.ready(ctx, target); err != nil {
		return err
	}
	cfg := tgbotapi.DeleteMessageConfig{ChatID: target.ID, ChannelUsername: target.Username, MessageID: messageID}
	if _, err := s.api.Request(cfg); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// IsChatAdmin reports whether userID administers chat.
func (s *Sender) IsChatAdmin(ctx context.Context, chat ports.ChatTarget, userID int64) (bool, error) {
	if err := s.ready(ctx, chat); err != nil {
		return false, err
	}
	member, err := s.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             chat.ID,
			SuperGroupUsername: chat.Username,
			UserID:             userID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	return member.IsCreator() || member.IsAdministrator(), nil
}

// PublishDeal posts the deal as a captioned photo when it has an image and the
// caption fits, otherwise as text. A rejected photo falls back to text.
func (s *Sender) PublishDeal(ctx context.Context, target ports.ChatTarget, deal *domain.Deal) (int, error) {
	return s.ReplyDeal(ctx, target, deal, 0)
}

// ReplyDeal is PublishDeal as a reply to replyTo.
func (s *Sender) ReplyDeal(ctx context.Context, target ports.ChatTarget, deal *domain.Deal, replyTo int) (int, error) {
	if deal == nil {
		return 0, errors.New("deal is nil")
	}
	if deal.Details.ImageURL != "" && utf8.RuneCountInString(deal.Message) <= application.CaptionLimit {
		id, err := s.SendPhoto(ctx, target, deal.Details.ImageURL, deal.Message, replyTo)
		if err == nil {
			return id, nil
		}
		s.logger.LogAttrs(ctx, slog.LevelWarn, "photo reply rejected, sending text",
			slog.String("product.id", deal.Details.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return s.SendText(ctx, target, deal.Message, replyTo)
}

func (s *Sender) ready(ctx context.Context, target ports.ChatTarget) error {
	if s == nil || s.api == nil {
		return errors.New("telegram sender not configured")
	}
	if target.IsZero() {
		return errors.New("chat target is empty")
	}
	return ctx.Err()
}

var _ ports.Publisher = (*Sender)(nil)
