package deals

import (
	"go.temporal.io/sdk/workflow"

	dealsports "github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/durable/temporal/sequences"
)

const (
	// PublicationWorkflowName is the public identifier for registering the workflow.
	PublicationWorkflowName = "deals.workflows.Publication"
	// PublicationTaskQueue is the queue consumed by the worker processing deal publications.
	PublicationTaskQueue = "DEAL_PUBLICATION"
)

// PublicationWorkflowInput captures the publication request and the caller's trace.
type PublicationWorkflowInput struct {
	Request dealsports.PublicationRequest
	TraceID string
}

// PublicationWorkflow orchestrates the lookup and channel post for one deal.
func PublicationWorkflow(ctx workflow.Context, input PublicationWorkflowInput) (*dealsports.PublicationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("PublicationWorkflow started", withTraceID(input.TraceID, "reference", input.Request.Reference, "requestedBy", input.Request.RequestedBy)...)
	result, err := sequences.RunDealPublicationSequence(ctx, input.Request)
	if err != nil {
		logger.Error("PublicationWorkflow failed", withTraceID(input.TraceID, "reference", input.Request.Reference, "error", err)...)
		return nil, err
	}
	logger.Info("PublicationWorkflow completed", withTraceID(input.TraceID, "productId", result.ProductID.String(), "messageId", result.MessageID)...)
	return result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
