package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
	dealworkflows "github.com/ABM-v3/AliExpress-Best-Price/internal/durable/temporal/workflows/deals"
)

var (
	_ ports.PublicationOrchestrator = (*TemporalPublications)(nil)
	_ ports.PublicationOrchestrator = (*InlinePublications)(nil)
)

// TemporalPublications starts deal publication workflows on a Temporal cluster.
type TemporalPublications struct {
	client    client.Client
	taskQueue string
}

// NewTemporalPublications wires a Temporal client into the orchestrator.
func NewTemporalPublications(c client.Client) *TemporalPublications {
	return &TemporalPublications{client: c, taskQueue: dealworkflows.PublicationTaskQueue}
}

// PublishDeal starts the publication workflow and waits for its result.
func (o *TemporalPublications) PublishDeal(ctx context.Context, req ports.PublicationRequest) (*ports.PublicationResult, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal publications not configured")
	}
	traceComponent := workflowTraceComponent(ctx)
	workflowID := buildPublicationWorkflowID(req, traceComponent)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		dealworkflows.PublicationWorkflowName,
		dealworkflows.PublicationWorkflowInput{Request: req, TraceID: traceComponent},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) {
			return nil, err
		}
		run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
	}
	var result ports.PublicationResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, FromWorkflowError(err)
	}
	return &result, nil
}

// InlinePublications runs the lookup and post synchronously without Temporal.
type InlinePublications struct {
	deals     ports.Service
	publisher ports.Publisher
}

// NewInlinePublications wraps the deals service and publisher for synchronous execution.
func NewInlinePublications(deals ports.Service, publisher ports.Publisher) *InlinePublications {
	return &InlinePublications{deals: deals, publisher: publisher}
}

// PublishDeal looks the deal up and posts it in the caller's goroutine.
func (o *InlinePublications) PublishDeal(ctx context.Context, req ports.PublicationRequest) (*ports.PublicationResult, error) {
	if o == nil || o.deals == nil || o.publisher == nil {
		return nil, errors.New("inline publications not configured")
	}
	deal, err := o.deals.LookupDeal(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	messageID, err := o.publisher.PublishDeal(ctx, req.Target, deal)
	if err != nil {
		return nil, err
	}
	return &ports.PublicationResult{ProductID: deal.Details.ID, MessageID: messageID}, nil
}

// FromWorkflowError restores the domain error carried by a failed activity so
// callers can classify it the same way as an inline failure.
func FromWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case "not_resolvable":
		return fmt.Errorf("%w: %s", domain.ErrNotResolvable, appErr.Message())
	case "upstream_timeout":
		return fmt.Errorf("%w: %s", domain.ErrUpstreamTimeout, appErr.Message())
	case "incomplete_details":
		return fmt.Errorf("%w: %s", domain.ErrIncompleteDetails, appErr.Message())
	case "no_link":
		return fmt.Errorf("%w: %s", domain.ErrNoCommerceLink, appErr.Message())
	case "malformed_response":
		return &domain.MalformedResponseError{Reason: appErr.Message()}
	case "upstream_error":
		var code, message string
		if appErr.HasDetails() {
			_ = appErr.Details(&code, &message)
		}
		return &domain.UpstreamError{Code: code, Message: message}
	}
	return err
}

func buildPublicationWorkflowID(req ports.PublicationRequest, traceComponent string) string {
	return fmt.Sprintf("deal-publication-%s-%s", hashReference(req.Reference), traceComponent)
}

func hashReference(reference string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(reference)))
	return hex.EncodeToString(sum[:8])
}

func workflowTraceComponent(ctx context.Context) string {
	traceComponent := workflowTraceID(ctx)
	if traceComponent != "" {
		return traceComponent
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
