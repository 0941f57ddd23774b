package aliexpress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	productBody = `{"aliexpress_affiliate_product_query_response":{"resp_result":{"resp_code":200,"resp_msg":"Call succeeds","result":{"current_record_count":1,"products":{"product":[{"product_id":1005001234567890,"product_title":"Desk Lamp","product_main_image_url":"https://ae01.alicdn.com/lamp.jpg","target_app_sale_price":"8.00","target_sale_price":"9.00","target_original_price":"10.00","target_sale_price_currency":"USD","evaluate_rate":"96.5%","lastest_volume":321,"first_level_category_name":"Home","second_level_category_name":"Lighting"}]}}}}}`
	linkBody    = `{"aliexpress_affiliate_link_generate_response":{"resp_result":{"resp_code":"200","resp_msg":"ok","result":{"tracking_id":"tr","promotion_links":{"promotion_link":[{"promotion_link":"https://s.click.aliexpress.com/e/_abc","source_value":"https://www.aliexpress.com/item/42.html"}]}}}}}`
	errorBody   = `{"error_response":{"code":"15","msg":"Remote service error","sub_code":"isv.appkey-not-exists","sub_msg":"Invalid app Key","request_id":"req-1"}}`
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func testConfig(endpoints ...string) Config {
	return Config{
		AppKey:            "12345",
		AppSecret:         "s3cret",
		TrackingID:        "tr",
		Endpoints:         endpoints,
		TargetCurrency:    "USD",
		TargetLanguage:    "EN",
		RequestsPerSecond: 1000,
		Timeout:           time.Second,
		FallbackDelay:     -1,
	}
}

type stubGateway struct {
	hits   atomic.Int32
	mu     sync.Mutex
	last   map[string]string
	status int
	body   string
	delay  time.Duration
}

func (g *stubGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.hits.Add(1)
	params := map[string]string{}
	for key, values := range r.URL.Query() {
		params[key] = values[0]
	}
	g.mu.Lock()
	g.last = params
	g.mu.Unlock()
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-r.Context().Done():
			return
		}
	}
	status := g.status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(g.body))
}

func (g *stubGateway) params() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func newGateway(t *testing.T, g *stubGateway) string {
	t.Helper()
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return srv.URL + "/sync"
}

func TestQueryProduct_SignsRequestAndParsesResult(t *testing.T) {
	gw := &stubGateway{body: productBody}
	client, err := NewClient(testConfig(newGateway(t, gw)), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	product, err := client.QueryProduct(context.Background(), "1005001234567890")
	require.NoError(t, err)
	require.Equal(t, "1005001234567890", product.ProductID.String())
	require.Equal(t, "Desk Lamp", product.Title)
	require.Equal(t, "8.00", product.SalePrice())
	require.Equal(t, "321", product.LatestVolume.String())

	params := gw.params()
	require.Equal(t, MethodProductQuery, params["method"])
	require.Equal(t, "20240102030405", params["timestamp"])
	require.Equal(t, "md5", params["sign_method"])
	require.Equal(t, "json", params["format"])
	require.Equal(t, "2.0", params["v"])
	require.Equal(t, "1005001234567890", params["product_ids"])
	require.Equal(t, "tr", params["tracking_id"])
	require.NotContains(t, params, "ship_to_country")

	signature := params["sign"]
	delete(params, "sign")
	require.Equal(t, Sign(params, "s3cret"), signature)
}

func TestGeneratePromotionLink(t *testing.T) {
	gw := &stubGateway{body: linkBody}
	client, err := NewClient(testConfig(newGateway(t, gw)))
	require.NoError(t, err)

	link, err := client.GeneratePromotionLink(context.Background(), "https://www.aliexpress.com/item/42.html")
	require.NoError(t, err)
	require.Equal(t, "https://s.click.aliexpress.com/e/_abc", link.PromotionLink)

	params := gw.params()
	require.Equal(t, MethodLinkGenerate, params["method"])
	require.Equal(t, "0", params["promotion_link_type"])
	require.Equal(t, "https://www.aliexpress.com/item/42.html", params["source_values"])
}

func TestCall_FallsBackOnServerError(t *testing.T) {
	primary := &stubGateway{status: http.StatusBadGateway, body: "bad gateway"}
	fallback := &stubGateway{body: productBody}
	var outcomes []string
	client, err := NewClient(testConfig(newGateway(t, primary), newGateway(t, fallback)),
		WithRequestObserver(func(_, _, outcome string) { outcomes = append(outcomes, outcome) }),
	)
	require.NoError(t, err)

	product, err := client.QueryProduct(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, "Desk Lamp", product.Title)
	require.EqualValues(t, 1, primary.hits.Load())
	require.EqualValues(t, 1, fallback.hits.Load())
	require.Equal(t, []string{"unavailable", "ok"}, outcomes)
	require.Equal(t, primary.params()["sign"], fallback.params()["sign"])
}

func TestCall_WaitsBeforeFallback(t *testing.T) {
	primary := &stubGateway{status: http.StatusBadGateway, body: "bad gateway"}
	fallback := &stubGateway{body: productBody}
	cfg := testConfig(newGateway(t, primary), newGateway(t, fallback))
	cfg.FallbackDelay = 100 * time.Millisecond
	client, err := NewClient(cfg)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.QueryProduct(context.Background(), "1")
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	require.EqualValues(t, 1, fallback.hits.Load())
}

func TestCall_CancelledDuringFallbackDelay(t *testing.T) {
	primary := &stubGateway{status: http.StatusBadGateway, body: "bad gateway"}
	fallback := &stubGateway{body: productBody}
	cfg := testConfig(newGateway(t, primary), newGateway(t, fallback))
	cfg.FallbackDelay = time.Minute
	client, err := NewClient(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.QueryProduct(ctx, "1")
	require.ErrorIs(t, err, ErrEndpointUnavailable)
	require.Zero(t, fallback.hits.Load())
}

func TestCall_FallsBackOnTimeout(t *testing.T) {
	primary := &stubGateway{body: productBody, delay: time.Second}
	fallback := &stubGateway{body: productBody}
	cfg := testConfig(newGateway(t, primary), newGateway(t, fallback))
	cfg.Timeout = 50 * time.Millisecond
	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.QueryProduct(context.Background(), "1")
	require.NoError(t, err)
	require.EqualValues(t, 1, fallback.hits.Load())
}

func TestCall_TimeoutOnEveryEndpoint(t *testing.T) {
	primary := &stubGateway{body: productBody, delay: time.Second}
	cfg := testConfig(newGateway(t, primary))
	cfg.Timeout = 30 * time.Millisecond
	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.QueryProduct(context.Background(), "1")
	require.ErrorIs(t, err, ErrTimeout)
	require.True(t, IsRetryable(err))
}

func TestCall_DoesNotRetryAPIErrors(t *testing.T) {
	primary := &stubGateway{body: errorBody}
	fallback := &stubGateway{body: productBody}
	client, err := NewClient(testConfig(newGateway(t, primary), newGateway(t, fallback)))
	require.NoError(t, err)

	_, err = client.QueryProduct(context.Background(), "1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "15", apiErr.Code)
	require.Equal(t, "isv.appkey-not-exists", apiErr.SubCode)
	require.Equal(t, "req-1", apiErr.RequestID)
	require.Zero(t, fallback.hits.Load())
}

func TestCall_NonSuccessRespCode(t *testing.T) {
	gw := &stubGateway{body: `{"aliexpress_affiliate_product_query_response":{"resp_result":{"resp_code":405,"resp_msg":"The result is empty"}}}`}
	client, err := NewClient(testConfig(newGateway(t, gw)))
	require.NoError(t, err)

	_, err = client.QueryProduct(context.Background(), "1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "405", apiErr.Code)
	require.Equal(t, "The result is empty", apiErr.Message)
}

func TestCall_MalformedEnvelopes(t *testing.T) {
	cases := map[string]string{
		"not json":        `<html>maintenance</html>`,
		"wrong method":    linkBody,
		"no resp_result":  `{"aliexpress_affiliate_product_query_response":{}}`,
		"no result":       `{"aliexpress_affiliate_product_query_response":{"resp_result":{"resp_code":200}}}`,
		"empty products":  `{"aliexpress_affiliate_product_query_response":{"resp_result":{"resp_code":200,"result":{"products":{"product":[]}}}}}`,
		"result mismatch": `{"aliexpress_affiliate_product_query_response":{"resp_result":{"resp_code":200,"result":{"products":"none"}}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			primary := &stubGateway{body: body}
			fallback := &stubGateway{body: productBody}
			client, err := NewClient(testConfig(newGateway(t, primary), newGateway(t, fallback)))
			require.NoError(t, err)

			_, err = client.QueryProduct(context.Background(), "1")
			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			require.False(t, IsRetryable(err))
			require.Zero(t, fallback.hits.Load())
		})
	}
}

func TestCall_ClientErrorStatusIsNotRetried(t *testing.T) {
	primary := &stubGateway{status: http.StatusForbidden}
	fallback := &stubGateway{body: productBody}
	client, err := NewClient(testConfig(newGateway(t, primary), newGateway(t, fallback)))
	require.NoError(t, err)

	_, err = client.QueryProduct(context.Background(), "1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "http_403", apiErr.Code)
	require.Zero(t, fallback.hits.Load())
}

func TestCall_SharedLimiterThrottles(t *testing.T) {
	gw := &stubGateway{body: linkBody}
	var (
		mu    sync.Mutex
		waits []time.Duration
	)
	client, err := NewClient(testConfig(newGateway(t, gw)),
		WithLimiter(rate.NewLimiter(rate.Every(100*time.Millisecond), 1)),
		WithWaitObserver(func(d time.Duration) {
			mu.Lock()
			waits = append(waits, d)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.GeneratePromotionLink(context.Background(), "https://www.aliexpress.com/item/42.html")
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
	require.Len(t, waits, 3)
}

func TestCall_LimiterHonoursDeadline(t *testing.T) {
	gw := &stubGateway{body: linkBody}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, limiter.Allow())
	client, err := NewClient(testConfig(newGateway(t, gw)), WithLimiter(limiter))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.GeneratePromotionLink(ctx, "https://www.aliexpress.com/item/42.html")
	require.ErrorIs(t, err, ErrTimeout)
	require.Zero(t, gw.hits.Load())
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"app key":     func(c *Config) { c.AppKey = " " },
		"app secret":  func(c *Config) { c.AppSecret = "" },
		"tracking id": func(c *Config) { c.TrackingID = "" },
		"endpoint":    func(c *Config) { c.Endpoints = []string{"not a url"} },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig("https://api-sg.aliexpress.com/sync")
			mutate(&cfg)
			_, err := NewClient(cfg)
			require.Error(t, err)
		})
	}
}

func TestOutcome(t *testing.T) {
	require.Equal(t, "ok", Outcome(nil))
	require.Equal(t, "timeout", Outcome(ErrTimeout))
	require.Equal(t, "unavailable", Outcome(ErrEndpointUnavailable))
	require.Equal(t, "api_error", Outcome(&APIError{Code: "1"}))
	require.Equal(t, "malformed", Outcome(&MalformedResponseError{Reason: "x"}))
	require.Equal(t, "error", Outcome(errors.New("other")))
}
