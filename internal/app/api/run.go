package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	dealserver "github.com/ABM-v3/AliExpress-Best-Price/go"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/clients/http/aliexpress"
	dealscommerce "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/adapters/commerce"
	dealsmemory "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/adapters/memory"
	dealsobs "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/adapters/observability"
	dealsresolver "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/adapters/resolver"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/adapters/telegram"
	dealsworkflows "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/adapters/workflows"
	dealsapp "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/application"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	dealsports "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
	platformmetrics "github.com/ABM-v3/AliExpress-Best-Price/internal/platform/metrics"
	platformobservability "github.com/ABM-v3/AliExpress-Best-Price/internal/platform/observability"
	platformtemporal "github.com/ABM-v3/AliExpress-Best-Price/internal/platform/temporal"
)

const serviceName = "deal-bot-api"

// Run boots the webhook server with observability, the deal pipeline and publications wired.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger
	registry := platformmetrics.New()

	pipeline, err := BuildPipeline(cfg, instruments, registry)
	if err != nil {
		return err
	}
	sweeper, err := scheduleSweeps(cfg.CacheSweepSchedule, logger, registry.RecordCacheSize, pipeline.Caches...)
	if err != nil {
		return fmt.Errorf("%w: CACHE_SWEEP_SCHEDULE: %w", ErrConfig, err)
	}
	defer sweeper.Stop()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}
	sender := telegram.NewSender(bot, telegram.WithSenderLogger(logger))

	var publications dealsports.PublicationOrchestrator = dealsworkflows.NewInlinePublications(pipeline.Service, sender)
	temporalClient, err := platformtemporal.Dial(platformtemporal.Options{
		Address:   cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Disabled:  cfg.TemporalDisabled,
		Logger:    logger,
		Tracer:    instruments.Tracer("temporal-client"),
	})
	if err != nil {
		logger.Warn("Temporal workflows unavailable, publishing inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		publications = dealsworkflows.NewTemporalPublications(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}
	publications = dealsobs.NewPublications(
		publications,
		dealsobs.WithLogger(logger),
		dealsobs.WithTracer(instruments.Tracer("internal.deals.publications")),
		dealsobs.WithMeter(instruments.Meter("internal.deals.publications")),
	)

	dispatcher := telegram.NewDispatcher(
		pipeline.Service,
		sender,
		telegram.WithPublications(publications, cfg.Channel),
		telegram.WithProgressNotice(cfg.ProgressNotice),
		telegram.WithDispatcherLogger(logger),
		telegram.WithOutcomeObserver(registry.RecordUpdate),
	)

	if cfg.WebhookURL != "" {
		registerWebhook(ctx, logger, bot, cfg)
	}

	handlers := dealserver.ApiHandleFunctions{
		WebhookAPI: dealserver.NewWebhookAPI(dispatcher, cfg.WebhookSecret,
			dealserver.WithProcessTimeout(cfg.ProcessTimeout),
			dealserver.WithWebhookLogger(logger)),
		DealAPI: dealserver.NewDealAPI(pipeline.Service),
		Metrics: registry.Handler(),
	}
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	router = dealserver.NewRouterWithGinEngine(router, handlers)

	return serve(ctx, logger, ":"+cfg.Port, router)
}

// Pipeline is the wired deal lookup stack shared by the webhook and the worker.
type Pipeline struct {
	Service dealsports.Service
	Caches  []sweepable
}

// BuildPipeline wires the gateway client, resolver, caches and service decorator.
func BuildPipeline(cfg Config, instruments *platformobservability.Instruments, registry *platformmetrics.Registry) (*Pipeline, error) {
	logger := instruments.Logger
	client, err := aliexpress.NewClient(
		cfg.CommerceConfig(),
		aliexpress.WithLogger(logger),
		aliexpress.WithRequestObserver(registry.RecordCommerceRequest),
		aliexpress.WithWaitObserver(registry.RecordLimiterWait),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	resolver := dealsresolver.New(
		dealsresolver.WithTimeout(cfg.ResolveTimeout),
		dealsresolver.WithMaxHops(cfg.ResolveMaxHops),
		dealsresolver.WithLogger(logger),
	)

	detailsCache := dealsmemory.NewResponseCache[domain.ProductDetails]("details", cfg.CacheMaxEntries)
	detailsCache.WithObserver(registry.RecordCacheLookup)
	linkCache := dealsmemory.NewResponseCache[domain.AffiliateLink]("affiliate", cfg.CacheMaxEntries)
	linkCache.WithObserver(registry.RecordCacheLookup)

	core := dealsapp.NewService(
		resolver,
		dealscommerce.New(client),
		dealsapp.WithDetailsCache(detailsCache),
		dealsapp.WithLinkCache(linkCache),
		dealsapp.WithCacheTTL(cfg.CacheTTL),
		dealsapp.WithFlightTimeout(cfg.ProcessTimeout),
	)
	service := dealsobs.New(
		core,
		dealsobs.WithLogger(logger),
		dealsobs.WithTracer(instruments.Tracer("internal.deals.application")),
		dealsobs.WithMeter(instruments.Meter("internal.deals.application")),
	)
	return &Pipeline{Service: service, Caches: []sweepable{detailsCache, linkCache}}, nil
}

func registerWebhook(ctx context.Context, logger *slog.Logger, bot telegram.WebhookClient, cfg Config) {
	endpoint, err := telegram.WebhookEndpoint(cfg.WebhookURL, cfg.WebhookPath())
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "webhook not registered", slog.String("error", err.Error()))
		return
	}
	if err := telegram.SetWebhook(bot, endpoint, false); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "webhook not registered", slog.String("error", err.Error()))
		return
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "webhook registered", slog.String("base", cfg.WebhookURL))
}

func serve(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Deal bot listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("Deal bot server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Deal bot stopped")
	return nil
}
