package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/app/api"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/adapters/telegram"
)

const usage = "usage: webhook-register [-drop-pending] set|info|delete"

func main() {
	dropPending := flag.Bool("drop-pending", false, "discard updates queued while no webhook was set")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg, err := api.LoadWebhookConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("failed to connect to telegram: %v", err)
	}

	switch flag.Arg(0) {
	case "set":
		endpoint, err := telegram.WebhookEndpoint(cfg.WebhookURL, cfg.WebhookPath())
		if err != nil {
			log.Fatalf("invalid WEBHOOK_URL: %v", err)
		}
		if err := telegram.SetWebhook(bot, endpoint, *dropPending); err != nil {
			log.Fatalf("failed to set webhook: %v", err)
		}
		logger.Info("webhook registered", slog.String("base", cfg.WebhookURL), slog.String("bot", bot.Self.UserName))
	case "info":
		status, err := telegram.GetWebhookStatus(bot)
		if err != nil {
			log.Fatalf("failed to read webhook: %v", err)
		}
		// The registered URL embeds the secret, so only report whether it matches.
		expected, _ := telegram.WebhookEndpoint(cfg.WebhookURL, cfg.WebhookPath())
		logger.Info("webhook status",
			slog.Bool("set", status.URL != ""),
			slog.Bool("matchesConfig", status.URL != "" && status.URL == expected),
			slog.Int("pending", status.PendingUpdates),
			slog.String("lastError", status.LastErrorMessage))
	case "delete":
		if err := telegram.DeleteWebhook(bot, *dropPending); err != nil {
			log.Fatalf("failed to delete webhook: %v", err)
		}
		logger.Info("webhook deleted")
	default:
		flag.Usage()
		os.Exit(2)
	}
}
