package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	dealactivities "github.com/ABM-v3/AliExpress-Best-Price/internal/durable/temporal/activities/deals"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	dealsports "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

// RunDealPublicationSequence looks the deal up and then posts it to the target chat.
func RunDealPublicationSequence(ctx workflow.Context, req dealsports.PublicationRequest) (*dealsports.PublicationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("deal publication sequence started", "reference", req.Reference)

	lookupOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	var deal domain.Deal
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, lookupOptions), dealactivities.LookupDealActivityName, req.Reference).Get(ctx, &deal)
	if err != nil {
		logger.Error("deal publication sequence failed to look up deal", "reference", req.Reference, "error", err)
		return nil, err
	}

	publishOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		HeartbeatTimeout:    10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	var messageID int
	input := dealactivities.PublishDealInput{Target: req.Target, Deal: deal}
	err = workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, publishOptions), dealactivities.PublishDealActivityName, input).Get(ctx, &messageID)
	if err != nil {
		logger.Error("deal publication sequence failed to publish", "productId", deal.Details.ID.String(), "error", err)
		return nil, err
	}

	logger.Info("deal publication sequence completed", "productId", deal.Details.ID.String(), "messageId", messageID)
	return &dealsports.PublicationResult{ProductID: deal.Details.ID, MessageID: messageID}, nil
}
