package telegram

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

type fakeWebhookClient struct {
	requested []tgbotapi.Chattable
	resp      *tgbotapi.APIResponse
	err       error
	info      tgbotapi.WebhookInfo
}

func (f *fakeWebhookClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requested = append(f.requested, c)
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeWebhookClient) GetWebhookInfo() (tgbotapi.WebhookInfo, error) {
	return f.info, f.err
}

func TestWebhookEndpoint(t *testing.T) {
	got, err := WebhookEndpoint("https://bot.example.com/", "/webhook/abc")
	require.NoError(t, err)
	require.Equal(t, "https://bot.example.com/webhook/abc", got)

	got, err = WebhookEndpoint("https://bot.example.com/tg", "webhook/abc")
	require.NoError(t, err)
	require.Equal(t, "https://bot.example.com/tg/webhook/abc", got)

	_, err = WebhookEndpoint("http://bot.example.com", "/webhook/abc")
	require.Error(t, err)
	_, err = WebhookEndpoint("bot.example.com", "/webhook/abc")
	require.Error(t, err)
}

func TestSetWebhook(t *testing.T) {
	api := &fakeWebhookClient{}
	require.NoError(t, SetWebhook(api, "https://bot.example.com/webhook/abc", true))

	cfg, ok := api.requested[0].(tgbotapi.WebhookConfig)
	require.True(t, ok)
	require.Equal(t, "https://bot.example.com/webhook/abc", cfg.URL.String())
	require.True(t, cfg.DropPendingUpdates)
	require.Equal(t, AllowedUpdates, cfg.AllowedUpdates)

	api = &fakeWebhookClient{resp: &tgbotapi.APIResponse{Ok: false, Description: "bad webhook"}}
	require.ErrorContains(t, SetWebhook(api, "https://bot.example.com/webhook/abc", false), "bad webhook")
}

func TestDeleteWebhookAndStatus(t *testing.T) {
	api := &fakeWebhookClient{info: tgbotapi.WebhookInfo{URL: "https://bot.example.com/webhook/abc", PendingUpdateCount: 2}}
	require.NoError(t, DeleteWebhook(api, false))
	_, ok := api.requested[0].(tgbotapi.DeleteWebhookConfig)
	require.True(t, ok)

	status, err := GetWebhookStatus(api)
	require.NoError(t, err)
	require.Equal(t, WebhookStatus{URL: "https://bot.example.com/webhook/abc", PendingUpdates: 2}, status)

	api = &fakeWebhookClient{err: errors.New("unauthorized")}
	require.Error(t, DeleteWebhook(api, false))
	_, err = GetWebhookStatus(api)
	require.Error(t, err)
}
