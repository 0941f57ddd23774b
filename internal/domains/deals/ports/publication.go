package ports

import (
	"context"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
)

// ChatTarget addresses a chat either by numeric id or by @username.
type ChatTarget struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
}

// IsZero reports whether the target is unset.
func (t ChatTarget) IsZero() bool {
	return t.ID == 0 && t.Username == ""
}

// Publisher posts a finished deal to a chat.
type Publisher interface {
	PublishDeal(ctx context.Context, target ChatTarget, deal *domain.Deal) (int, error)
}

// PublicationRequest asks for a reference to be looked up and posted to the channel.
type PublicationRequest struct {
	Reference   string
	Target      ChatTarget
	RequestedBy int64
}

// PublicationResult reports where the deal ended up.
type PublicationResult struct {
	ProductID domain.ProductID
	MessageID int
}

// PublicationOrchestrator runs channel publications, durably or inline.
type PublicationOrchestrator interface {
	PublishDeal(ctx context.Context, req PublicationRequest) (*PublicationResult, error)
}
