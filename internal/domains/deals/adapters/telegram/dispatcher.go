package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

// Reply texts.
const (
	WelcomeText     = "Welcome! Send me any AliExpress product link to get an affiliate link."
	HelpText        = "Send an AliExpress product link (full or short) and I'll reply with the price and an affiliate link.\n\nChannel admins can use /post <link> to publish a deal to the channel."
	NoLinkText      = "Please send a valid AliExpress product URL."
	ProgressText    = "Processing your link..."
	PostUsageText   = "Usage: /post <AliExpress product link>"
	PostDoneText    = "Posted to the channel."
	PostOffText     = "Channel publishing is not configured."
	NotAdminText    = "Only channel administrators can publish deals."
	RightsCheckText = "I couldn't verify your channel rights. Please try again later."
	GenericFailText = "Error processing your link. Please try again later."
)

// Outcomes reported to the observer, one per handled update.
const (
	OutcomeOK      = "ok"
	OutcomeIgnored = "ignored"
	OutcomeCommand = "command"
	OutcomeNoLink  = "no_link"
	OutcomeDenied  = "denied"
)

// Messenger is the outbound side the dispatcher drives.
type Messenger interface {
	SendText(ctx context.Context, target ports.ChatTarget, text string, replyTo int) (int, error)
	DeleteMessage(ctx context.Context, target ports.ChatTarget, messageID int) error
	IsChatAdmin(ctx context.Context, chat ports.ChatTarget, userID int64) (bool, error)
	ReplyDeal(ctx context.Context, target ports.ChatTarget, deal *domain.Deal, replyTo int) (int, error)
}

// Dispatcher routes inbound updates to the start, help, post and text handlers.
type Dispatcher struct {
	deals          ports.Service
	messenger      Messenger
	publications   ports.PublicationOrchestrator
	channel        ports.ChatTarget
	progressNotice bool
	logger         *slog.Logger
	observe        func(outcome string)
}

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPublications enables /post against channel.
func WithPublications(orchestrator ports.PublicationOrchestrator, channel ports.ChatTarget) DispatcherOption {
	return func(d *Dispatcher) {
		d.publications = orchestrator
		d.channel = channel
	}
}

// WithProgressNotice sends a transient "processing" message while a lookup runs.
func WithProgressNotice(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.progressNotice = enabled
	}
}

// WithDispatcherLogger injects a slog logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithOutcomeObserver registers a callback told the outcome of every update.
func WithOutcomeObserver(observe func(outcome string)) DispatcherOption {
	return func(d *Dispatcher) {
		d.observe = observe
	}
}

// NewDispatcher wires the lookup service and messenger.
func NewDispatcher(deals ports.Service, messenger Messenger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		deals:     deals,
		messenger: messenger,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// HandleUpdate processes one update. Pipeline failures are answered with a
// user-facing reply and also returned for logging; they never escape as panics
// or unacknowledged webhooks.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	outcome, err := d.handle(ctx, update)
	if d.observe != nil {
		d.observe(outcome)
	}
	return err
}

func (d *Dispatcher) handle(ctx context.Context, update tgbotapi.Update) (string, error) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return OutcomeIgnored, nil
	}
	if d.deals == nil || d.messenger == nil {
		return "internal", errors.New("dispatcher not configured")
	}
	chat := ports.ChatTarget{ID: msg.Chat.ID}

	if msg.IsCommand() {
		switch strings.ToLower(msg.Command()) {
		case "start":
			return OutcomeCommand, d.reply(ctx, chat, WelcomeText, 0)
		case "help":
			return OutcomeCommand, d.reply(ctx, chat, HelpText, 0)
		case "post":
			return d.handlePost(ctx, chat, msg)
		default:
			return OutcomeCommand, d.reply(ctx, chat, HelpText, msg.MessageID)
		}
	}
	return d.handleText(ctx, chat, msg)
}

func (d *Dispatcher) handleText(ctx context.Context, chat ports.ChatTarget, msg *tgbotapi.Message) (string, error) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	link, ok := domain.FindCommerceLink(text)
	if !ok {
		return OutcomeNoLink, d.reply(ctx, chat, NoLinkText, msg.MessageID)
	}

	var noticeID int
	if d.progressNotice {
		id, err := d.messenger.SendText(ctx, chat, ProgressText, 0)
		if err != nil {
			d.logWarn(ctx, "progress notice failed", err)
		}
		noticeID = id
	}

	deal, err := d.deals.LookupDeal(ctx, link)

	if noticeID != 0 {
		if derr := d.messenger.DeleteMessage(ctx, chat, noticeID); derr != nil {
			d.logWarn(ctx, "progress notice delete failed", derr)
		}
	}
	if err != nil {
		d.replyError(ctx, chat, msg.MessageID, err)
		return domain.ErrorClass(err), err
	}
	if _, err := d.messenger.ReplyDeal(ctx, chat, deal, msg.MessageID); err != nil {
		return "send_failed", err
	}
	return OutcomeOK, nil
}

func (d *Dispatcher) handlePost(ctx context.Context, chat ports.ChatTarget, msg *tgbotapi.Message) (string, error) {
	if d.publications == nil || d.channel.IsZero() {
		return OutcomeCommand, d.reply(ctx, chat, PostOffText, msg.MessageID)
	}
	link, ok := domain.FindCommerceLink(msg.CommandArguments())
	if !ok {
		return OutcomeNoLink, d.reply(ctx, chat, PostUsageText, msg.MessageID)
	}
	if msg.From == nil {
		return OutcomeDenied, d.reply(ctx, chat, NotAdminText, msg.MessageID)
	}
	admin, err := d.messenger.IsChatAdmin(ctx, d.channel, msg.From.ID)
	if err != nil {
		d.logWarn(ctx, "channel rights check failed", err)
		return "rights_check_failed", d.reply(ctx, chat, RightsCheckText, msg.MessageID)
	}
	if !admin {
		return OutcomeDenied, d.reply(ctx, chat, NotAdminText, msg.MessageID)
	}

	_, err = d.publications.PublishDeal(ctx, ports.PublicationRequest{
		Reference:   link,
		Target:      d.channel,
		RequestedBy: msg.From.ID,
	})
	if err != nil {
		d.replyError(ctx, chat, msg.MessageID, err)
		return domain.ErrorClass(err), err
	}
	return OutcomeOK, d.reply(ctx, chat, PostDoneText, msg.MessageID)
}

func (d *Dispatcher) replyError(ctx context.Context, chat ports.ChatTarget, replyTo int, err error) {
	if rerr := d.reply(ctx, chat, UserMessage(err), replyTo); rerr != nil {
		d.logWarn(ctx, "error reply failed", rerr)
	}
}

func (d *Dispatcher) reply(ctx context.Context, chat ports.ChatTarget, text string, replyTo int) error {
	_, err := d.messenger.SendText(ctx, chat, text, replyTo)
	return err
}

func (d *Dispatcher) logWarn(ctx context.Context, msg string, err error) {
	d.logger.LogAttrs(ctx, slog.LevelWarn, msg, slog.String("error", err.Error()))
}

// UserMessage converts a pipeline error into the reply shown to the user.
// Upstream messages are never echoed; only the upstream code is.
func UserMessage(err error) string {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrNotResolvable):
		return "I couldn't find a product in that link. Please send a direct AliExpress product link."
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return "AliExpress is taking too long to respond. Please try again later."
	case errors.As(err, &upstream):
		if upstream.Code != "" {
			return "AliExpress couldn't process this product (code " + sanitizeCode(upstream.Code) + "). Please try another link."
		}
		return "AliExpress couldn't process this product. Please try another link."
	case errors.Is(err, domain.ErrUpstream):
		return "AliExpress returned an unexpected response. Please try again later."
	case errors.Is(err, domain.ErrIncompleteDetails):
		return "This product is missing price details, so I can't build a deal for it."
	default:
		return GenericFailText
	}
}

func sanitizeCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
		if b.Len() >= 48 {
			break
		}
	}
	return b.String()
}
