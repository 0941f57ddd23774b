package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	r := New()

	r.RecordUpdate("ok")
	r.RecordUpdate("ok")
	r.RecordUpdate("not_resolvable")
	require.Equal(t, 2.0, testutil.ToFloat64(r.WebhookUpdates.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.WebhookUpdates.WithLabelValues("not_resolvable")))

	r.RecordCacheLookup("details", true)
	r.RecordCacheLookup("details", false)
	r.RecordCacheLookup("details", false)
	require.Equal(t, 1.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues("details", "hit")))
	require.Equal(t, 2.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues("details", "miss")))

	r.RecordCommerceRequest("aliexpress.affiliate.product.query", "api-sg.aliexpress.com", "ok")
	require.Equal(t, 1.0, testutil.ToFloat64(r.CommerceRequests.WithLabelValues("aliexpress.affiliate.product.query", "api-sg.aliexpress.com", "ok")))

	r.RecordCacheSize("affiliate", 12)
	require.Equal(t, 12.0, testutil.ToFloat64(r.CacheEntries.WithLabelValues("affiliate")))

	r.RecordLimiterWait(150 * time.Millisecond)
	require.Equal(t, 1, testutil.CollectAndCount(r.LimiterWaitSeconds))
}

func TestHandlerExposesCollectors(t *testing.T) {
	r := New()
	r.RecordUpdate("command")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Equal(t, 200, rec.Code)
	require.Contains(t, string(body), `dealbot_webhook_updates_total{outcome="command"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}
