package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/app/api"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/adapters/telegram"
	dealactivities "github.com/ABM-v3/AliExpress-Best-Price/internal/durable/temporal/activities/deals"
	dealworkflows "github.com/ABM-v3/AliExpress-Best-Price/internal/durable/temporal/workflows/deals"
	platformmetrics "github.com/ABM-v3/AliExpress-Best-Price/internal/platform/metrics"
	platformobservability "github.com/ABM-v3/AliExpress-Best-Price/internal/platform/observability"
	platformtemporal "github.com/ABM-v3/AliExpress-Best-Price/internal/platform/temporal"
)

func main() {
	ctx := context.Background()
	const serviceName = "deal-bot-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	pipeline, err := api.BuildPipeline(cfg, instruments, platformmetrics.New())
	if err != nil {
		logger.Error("failed to build deal pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Error("failed to connect to telegram", slog.String("error", err.Error()))
		os.Exit(1)
	}
	dealActivities := dealactivities.NewActivities(pipeline.Service, telegram.NewSender(bot, telegram.WithSenderLogger(logger)))

	temporalClient, err := platformtemporal.Dial(platformtemporal.Options{
		Address:   cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    logger,
		Tracer:    instruments.Tracer("temporal-worker"),
	})
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, dealworkflows.PublicationTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(dealworkflows.PublicationWorkflow, workflow.RegisterOptions{Name: dealworkflows.PublicationWorkflowName})
	w.RegisterActivityWithOptions(dealActivities.LookupDeal, activity.RegisterOptions{Name: dealactivities.LookupDealActivityName})
	w.RegisterActivityWithOptions(dealActivities.PublishDeal, activity.RegisterOptions{Name: dealactivities.PublishDealActivityName})

	logger.Info("worker listening", slog.String("taskQueue", dealworkflows.PublicationTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
