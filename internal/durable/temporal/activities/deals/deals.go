package deals

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	dealsports "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

const (
	// LookupDealActivityName runs the resolve, details, link and format pipeline.
	LookupDealActivityName = "deals.activities.LookupDeal"
	// PublishDealActivityName posts a looked-up deal to a chat.
	PublishDealActivityName = "deals.activities.PublishDeal"
)

// PublishDealInput is the payload of the publish activity.
type PublishDealInput struct {
	Target dealsports.ChatTarget
	Deal   domain.Deal
}

// Activities groups activities that operate on the deals bounded context.
type Activities struct {
	deals     dealsports.Service
	publisher dealsports.Publisher
}

// NewActivities wires the deals collaborators into the Temporal activities bundle.
func NewActivities(deals dealsports.Service, publisher dealsports.Publisher) *Activities {
	return &Activities{deals: deals, publisher: publisher}
}

// LookupDeal looks up the deal for a raw reference.
func (a *Activities) LookupDeal(ctx context.Context, reference string) (*domain.Deal, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.deals == nil {
		logger.Error("deal lookup activity not initialized", "reference", reference)
		return nil, errors.New("deal lookup activity not initialized")
	}
	logger.Info("LookupDeal activity started", "reference", reference)
	deal, err := a.deals.LookupDeal(ctx, reference)
	if err != nil {
		logger.Error("LookupDeal activity failed", "reference", reference, "error", err)
		return nil, ToApplicationError(err)
	}
	logger.Info("LookupDeal activity completed", "productId", deal.Details.ID.String())
	return deal, nil
}

// PublishDeal posts the deal and returns the message id. A retry skips the
// post when an earlier attempt heartbeated its message id; a crash between
// the send and the heartbeat can still post twice.
func (a *Activities) PublishDeal(ctx context.Context, input PublishDealInput) (int, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.publisher == nil {
		logger.Error("deal publish activity not initialized", "productId", input.Deal.Details.ID.String())
		return 0, errors.New("deal publish activity not initialized")
	}

	var hb publishHeartbeat
	if activity.HasHeartbeatDetails(ctx) {
		_ = activity.GetHeartbeatDetails(ctx, &hb)
	}
	if hb.MessageID != 0 {
		logger.Info("PublishDeal already completed in prior attempt; skipping", "messageId", hb.MessageID)
		return hb.MessageID, nil
	}

	logger.Info("PublishDeal activity started", "productId", input.Deal.Details.ID.String())
	messageID, err := a.publisher.PublishDeal(ctx, input.Target, &input.Deal)
	if err != nil {
		logger.Error("PublishDeal activity failed", "productId", input.Deal.Details.ID.String(), "error", err)
		return 0, err
	}
	activity.RecordHeartbeat(ctx, publishHeartbeat{MessageID: messageID})
	// A post that lands after the attempt lost its context is still recorded,
	// so the retry reports it instead of posting again.
	if err := ctx.Err(); err != nil {
		logger.Warn("PublishDeal posted after attempt ended", "messageId", messageID, "error", err)
		return 0, err
	}
	logger.Info("PublishDeal activity completed", "messageId", messageID)
	return messageID, nil
}

type publishHeartbeat struct {
	MessageID int
}

// ToApplicationError marks validation-class failures as non-retryable so the
// workflow does not replay a request that cannot succeed. The error class is
// the application error type; upstream codes travel as details.
func ToApplicationError(err error) error {
	if err == nil {
		return nil
	}
	class := domain.ErrorClass(err)
	switch class {
	case "upstream_timeout", "internal":
		return temporal.NewApplicationErrorWithCause(err.Error(), class, err)
	}
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return temporal.NewNonRetryableApplicationError(err.Error(), class, err, upstream.Code, upstream.Message)
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), class, err)
}
