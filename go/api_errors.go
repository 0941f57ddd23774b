package dealserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	apierrors "github.com/ABM-v3/AliExpress-Best-Price/internal/shared/errors"
)

var problems = apierrors.NewChainedResponder("", dealProblem)

// respondError answers transport-level failures that never reached the deal pipeline.
func respondError(c *gin.Context, status int, err error) {
	if err == nil {
		return
	}
	var problem apierrors.ProblemDetail
	switch status {
	case http.StatusBadRequest:
		problem = apierrors.ErrBadRequest.WithDetail(err.Error())
	case http.StatusNotFound:
		problem = apierrors.ErrNotFound.WithDetail(err.Error())
	default:
		problem = apierrors.ErrInternal.WithDetail(err.Error())
	}
	problems.Respond(c, problem)
}

func respondDealError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	problems.RespondError(c, err)
}

// dealProblem maps the deal error taxonomy onto problem details. Upstream
// messages stay in the logs; only the sanitized class and code are exposed.
func dealProblem(err error) (apierrors.ProblemDetail, bool) {
	class := domain.ErrorClass(err)
	var problem apierrors.ProblemDetail
	switch class {
	case "not_resolvable":
		problem = apierrors.ErrUnprocessable.WithDetail("the link does not identify a product")
	case "no_link":
		problem = apierrors.ErrBadRequest.WithDetail("the link is not a supported commerce link")
	case "upstream_timeout":
		problem = apierrors.ErrGatewayTimeout.WithDetail("the commerce service did not answer in time")
	case "upstream_error", "malformed_response":
		problem = apierrors.ErrBadGateway.WithDetail("the commerce service rejected the request")
		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) && upstream.Code != "" {
			problem = problem.WithExtension("upstreamCode", upstream.Code)
		}
	case "incomplete_details":
		problem = apierrors.ErrBadGateway.WithDetail("the product is missing price or title")
	default:
		return apierrors.ProblemDetail{}, false
	}
	return problem.WithExtension("errorClass", class), true
}
