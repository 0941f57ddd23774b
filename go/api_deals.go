package dealserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/domain"
	"github.com/ABM-v3/AliExpress-Best-Price/internal/domains/deals/ports"
)

// DealAPI exposes the lookup pipeline to HTTP integrations.
type DealAPI struct {
	service ports.Service
}

// NewDealAPI wires dependencies.
func NewDealAPI(service ports.Service) DealAPI {
	return DealAPI{service: service}
}

// Get /v1/deals
// Looks up the deal behind a commerce link
func (api *DealAPI) GetDeal(c *gin.Context) {
	link := strings.TrimSpace(c.Query("link"))
	if link == "" {
		respondError(c, http.StatusBadRequest, errors.New("query parameter link is required"))
		return
	}
	reference, ok := domain.FindCommerceLink(link)
	if !ok {
		respondDealError(c, domain.ErrNoCommerceLink)
		return
	}
	if api.service == nil {
		respondError(c, http.StatusInternalServerError, errors.New("deal service not configured"))
		return
	}
	deal, err := api.service.LookupDeal(c.Request.Context(), reference)
	if err != nil {
		respondDealError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromDomainDeal(deal))
}
