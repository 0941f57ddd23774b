package deals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	dealsports "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

type countingPublisher struct {
	calls int
}

func (p *countingPublisher) PublishDeal(_ context.Context, _ dealsports.ChatTarget, _ *domain.Deal) (int, error) {
	p.calls++
	return 77, nil
}

func publishInput() PublishDealInput {
	return PublishDealInput{
		Target: dealsports.ChatTarget{Username: "@deals"},
		Deal:   domain.Deal{Details: domain.ProductDetails{ID: "1005001", Title: "Lamp", SalePrice: "8"}, Message: "*Lamp*"},
	}
}

func TestPublishDeal_Posts(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	publisher := &countingPublisher{}
	activities := NewActivities(nil, publisher)
	env.RegisterActivity(activities.PublishDeal)

	val, err := env.ExecuteActivity(activities.PublishDeal, publishInput())
	require.NoError(t, err)
	var messageID int
	require.NoError(t, val.Get(&messageID))
	require.Equal(t, 77, messageID)
	require.Equal(t, 1, publisher.calls)
}

func TestPublishDeal_RetryAfterHeartbeatDoesNotRepost(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.SetHeartbeatDetails(publishHeartbeat{MessageID: 42})
	publisher := &countingPublisher{}
	activities := NewActivities(nil, publisher)
	env.RegisterActivity(activities.PublishDeal)

	val, err := env.ExecuteActivity(activities.PublishDeal, publishInput())
	require.NoError(t, err)
	var messageID int
	require.NoError(t, val.Get(&messageID))
	require.Equal(t, 42, messageID)
	require.Zero(t, publisher.calls)
}

func TestPublishDeal_NotInitialized(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	activities := NewActivities(nil, nil)
	env.RegisterActivity(activities.PublishDeal)

	_, err := env.ExecuteActivity(activities.PublishDeal, publishInput())
	require.Error(t, err)
}
