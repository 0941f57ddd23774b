package dealserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
)

const (
	// DefaultProcessTimeout bounds the work done for a single update.
	DefaultProcessTimeout = 25 * time.Second
	maxUpdateBytes        = 1 << 20
)

// UpdateHandler processes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

// WebhookAPI receives Telegram updates. It always acknowledges a well-addressed
// update with 200 so Telegram never redelivers it; failures are reported to the
// chat by the handler and to the logs here.
type WebhookAPI struct {
	handler UpdateHandler
	secret  string
	timeout time.Duration
	logger  *slog.Logger
}

// WebhookOption customises the webhook endpoint.
type WebhookOption func(*WebhookAPI)

// WithProcessTimeout bounds update processing.
func WithProcessTimeout(d time.Duration) WebhookOption {
	return func(api *WebhookAPI) {
		if d > 0 {
			api.timeout = d
		}
	}
}

// WithWebhookLogger sets the logger for dropped or failed updates.
func WithWebhookLogger(logger *slog.Logger) WebhookOption {
	return func(api *WebhookAPI) {
		if logger != nil {
			api.logger = logger
		}
	}
}

// NewWebhookAPI wires the update handler behind the secret path segment.
func NewWebhookAPI(handler UpdateHandler, secret string, opts ...WebhookOption) WebhookAPI {
	api := WebhookAPI{
		handler: handler,
		secret:  secret,
		timeout: DefaultProcessTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&api)
	}
	return api
}

// Post /webhook/:secret
// Receives a Telegram update
func (api *WebhookAPI) ReceiveUpdate(c *gin.Context) {
	if api.handler == nil || api.secret == "" ||
		subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(api.secret)) != 1 {
		respondError(c, http.StatusNotFound, errors.New("unknown webhook"))
		return
	}

	var update tgbotapi.Update
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxUpdateBytes)
	if err := json.NewDecoder(body).Decode(&update); err != nil {
		api.logger.LogAttrs(c.Request.Context(), slog.LevelWarn, "dropping undecodable update",
			slog.String("error", err.Error()))
		acknowledge(c)
		return
	}

	// Processing outlives a client disconnect but not the timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), api.timeout)
	defer cancel()
	if err := api.process(ctx, update); err != nil {
		level := slog.LevelError
		switch domain.ErrorClass(err) {
		case "not_resolvable", "no_link":
			level = slog.LevelWarn
		}
		api.logger.LogAttrs(ctx, level, "update processing failed",
			slog.Int("update_id", update.UpdateID),
			slog.String("error.class", domain.ErrorClass(err)),
			slog.String("error", err.Error()))
	}
	acknowledge(c)
}

func (api *WebhookAPI) process(ctx context.Context, update tgbotapi.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling update: %v", r)
		}
	}()
	return api.handler.HandleUpdate(ctx, update)
}

func acknowledge(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
