package telegram

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookClient is the subset of the bot API used to manage the webhook.
type WebhookClient interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
}

// AllowedUpdates restricts webhook deliveries to what the dispatcher handles.
var AllowedUpdates = []string{"message"}

// WebhookEndpoint joins the public base URL and the secret route.
func WebhookEndpoint(baseURL, path string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("webhook base url %q is not absolute", baseURL)
	}
	if base.Scheme != "https" {
		return "", errors.New("webhook url must use https")
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return base.String(), nil
}

// SetWebhook points Telegram at endpoint.
func SetWebhook(api WebhookClient, endpoint string, dropPending bool) error {
	cfg, err := tgbotapi.NewWebhook(endpoint)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	cfg.AllowedUpdates = AllowedUpdates
	cfg.DropPendingUpdates = dropPending
	resp, err := api.Request(cfg)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("set webhook: %s", resp.Description)
	}
	return nil
}

// DeleteWebhook removes the webhook registration.
func DeleteWebhook(api WebhookClient, dropPending bool) error {
	resp, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending})
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("delete webhook: %s", resp.Description)
	}
	return nil
}

// WebhookStatus summarises the current registration.
type WebhookStatus struct {
	URL              string
	PendingUpdates   int
	LastErrorMessage string
}

// GetWebhookStatus reads the current registration.
func GetWebhookStatus(api WebhookClient) (WebhookStatus, error) {
	info, err := api.GetWebhookInfo()
	if err != nil {
		return WebhookStatus{}, fmt.Errorf("get webhook info: %w", err)
	}
	return WebhookStatus{
		URL:              info.URL,
		PendingUpdates:   info.PendingUpdateCount,
		LastErrorMessage: info.LastErrorMessage,
	}, nil
}
