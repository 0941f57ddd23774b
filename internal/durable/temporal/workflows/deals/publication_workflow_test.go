package deals

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	dealactivities "github.com/ABM-v3/AliExpress-Best-Price/internal/durable/temporal/activities/deals"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	dealsports "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

type stubDeals struct {
	calls int
	err   error
}

func (s *stubDeals) LookupDeal(_ context.Context, reference string) (*domain.Deal, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Deal{
		Details: domain.ProductDetails{ID: "1005001", Title: "Desk Lamp", SalePrice: "12.50"},
		Link:    domain.AffiliateLink{ProductID: "1005001", URL: "https://s.click.aliexpress.com/e/_abc"},
		Message: "*Desk Lamp*",
	}, nil
}

type stubPublisher struct {
	targets []dealsports.ChatTarget
	err     error
}

func (s *stubPublisher) PublishDeal(_ context.Context, target dealsports.ChatTarget, deal *domain.Deal) (int, error) {
	s.targets = append(s.targets, target)
	if s.err != nil {
		return 0, s.err
	}
	return 77, nil
}

func newEnv(t *testing.T, deals dealsports.Service, publisher dealsports.Publisher) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	acts := dealactivities.NewActivities(deals, publisher)
	env.RegisterActivityWithOptions(acts.LookupDeal, activity.RegisterOptions{Name: dealactivities.LookupDealActivityName})
	env.RegisterActivityWithOptions(acts.PublishDeal, activity.RegisterOptions{Name: dealactivities.PublishDealActivityName})
	return env
}

func TestPublicationWorkflow_LooksUpAndPublishes(t *testing.T) {
	deals := &stubDeals{}
	publisher := &stubPublisher{}
	env := newEnv(t, deals, publisher)

	input := PublicationWorkflowInput{
		Request: dealsports.PublicationRequest{
			Reference:   "https://www.aliexpress.com/item/1005001.html",
			Target:      dealsports.ChatTarget{Username: "@deals"},
			RequestedBy: 5,
		},
		TraceID: "trace-1",
	}
	env.ExecuteWorkflow(PublicationWorkflow, input)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var result dealsports.PublicationResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, domain.ProductID("1005001"), result.ProductID)
	require.Equal(t, 77, result.MessageID)
	require.Equal(t, []dealsports.ChatTarget{{Username: "@deals"}}, publisher.targets)
}

func TestPublicationWorkflow_NonRetryableLookupFailure(t *testing.T) {
	deals := &stubDeals{err: domain.ErrNotResolvable}
	publisher := &stubPublisher{}
	env := newEnv(t, deals, publisher)

	env.ExecuteWorkflow(PublicationWorkflow, PublicationWorkflowInput{
		Request: dealsports.PublicationRequest{Reference: "https://s.click.aliexpress.com/e/_x", Target: dealsports.ChatTarget{ID: -100}},
	})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "not_resolvable", appErr.Type())
	require.Equal(t, 1, deals.calls)
	require.Empty(t, publisher.targets)
}

func TestPublicationWorkflow_UpstreamCodeTravelsAsDetails(t *testing.T) {
	deals := &stubDeals{err: &domain.UpstreamError{Code: "isv.item-not-found", Message: "gone"}}
	env := newEnv(t, deals, &stubPublisher{})

	env.ExecuteWorkflow(PublicationWorkflow, PublicationWorkflowInput{
		Request: dealsports.PublicationRequest{Reference: "https://www.aliexpress.com/item/1.html", Target: dealsports.ChatTarget{ID: -100}},
	})

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(env.GetWorkflowError(), &appErr))
	require.Equal(t, "upstream_error", appErr.Type())
	var code, message string
	require.NoError(t, appErr.Details(&code, &message))
	require.Equal(t, "isv.item-not-found", code)
	require.Equal(t, "gone", message)
	require.Equal(t, 1, deals.calls)
}

func TestToApplicationError_RetryableClasses(t *testing.T) {
	require.NoError(t, dealactivities.ToApplicationError(nil))

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(dealactivities.ToApplicationError(domain.ErrUpstreamTimeout), &appErr))
	require.Equal(t, "upstream_timeout", appErr.Type())
	require.False(t, appErr.NonRetryable())

	require.True(t, errors.As(dealactivities.ToApplicationError(domain.ErrIncompleteDetails), &appErr))
	require.Equal(t, "incomplete_details", appErr.Type())
	require.True(t, appErr.NonRetryable())
}
