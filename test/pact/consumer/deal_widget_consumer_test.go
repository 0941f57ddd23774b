//go:build pact
// +build pact

package consumer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"

	pacttest "github.com/ABM-v3/AliExpress-Best-Price/test/pact"
)

type dealPayload struct {
	ProductID    string `json:"productId"`
	Title        string `json:"title"`
	SalePrice    string `json:"salePrice"`
	AffiliateURL string `json:"affiliateUrl"`
	Message      string `json:"message"`
}

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

type apiError struct {
	status int
	title  string
}

func (e apiError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.title, e.status)
}

func TestDealWidgetContract(t *testing.T) {
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	example := pacttest.ExampleDealPayload()
	dealMatcher := matchers.Map{
		"productId":    matchers.Term(pacttest.ExistingProductID, `^\d+$`),
		"title":        matchers.Like(example["title"]),
		"salePrice":    matchers.Like(example["salePrice"]),
		"affiliateUrl": matchers.Like(example["affiliateUrl"]),
		"message":      matchers.Like(example["message"]),
	}
	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")

	pact.AddInteraction().
		Given(pacttest.StateProductOnSale).
		UponReceiving("a request for the deal behind an item link").
		WithRequest("GET", "/v1/deals", func(b *pactconsumer.V2RequestBuilder) {
			b.Query("link", matchers.S(pacttest.ExistingItemLink))
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(dealMatcher)
		})

	pact.AddInteraction().
		Given(pacttest.StateLinkUnresolved).
		UponReceiving("a request for a link that names no product").
		WithRequest("GET", "/v1/deals", func(b *pactconsumer.V2RequestBuilder) {
			b.Query("link", matchers.S(pacttest.UnresolvedLink))
		}).
		WillRespondWith(http.StatusUnprocessableEntity, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/unprocessable-entity"),
				"title":  matchers.S("Unprocessable Entity"),
				"status": matchers.Like(http.StatusUnprocessableEntity),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		baseURL := fmt.Sprintf("http://%s:%d", config.Host, config.Port)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		deal, err := fetchDeal(ctx, baseURL, pacttest.ExistingItemLink)
		if err != nil {
			return err
		}
		if deal.ProductID != pacttest.ExistingProductID || deal.AffiliateURL == "" {
			return fmt.Errorf("unexpected deal %+v", deal)
		}
		if _, err := fetchDeal(ctx, baseURL, pacttest.UnresolvedLink); err == nil {
			return fmt.Errorf("expected a problem for an unresolved link")
		}
		return nil
	})
	require.NoError(t, err)
}

func fetchDeal(ctx context.Context, baseURL, link string) (*dealPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/deals?link="+url.QueryEscape(link), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var problem problemDetail
		_ = json.NewDecoder(resp.Body).Decode(&problem)
		return nil, apiError{status: resp.StatusCode, title: problem.Title}
	}
	var deal dealPayload
	if err := json.NewDecoder(resp.Body).Decode(&deal); err != nil {
		return nil, err
	}
	return &deal, nil
}
