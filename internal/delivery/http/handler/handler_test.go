package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/price-intel/internal/delivery/http/handler"
	"github.com/user/price-intel/internal/delivery/http/router"
	"github.com/user/price-intel/internal/entity"
	"github.com/user/price-intel/internal/monitoring"
	"github.com/user/price-intel/internal/repository"
	"github.com/user/price-intel/internal/usecase"
)

type stubPricing struct {
	current    *entity.Pricing
	currentErr error
	list       []entity.Pricing
	history    []entity.PricingSnapshot
	deals      []entity.Pricing

	lastFilters repository.PricingFilters
	lastDays    int
}

func (s *stubPricing) GetPricingForFirm(_ context.Context, _ string, _ *float64) (*entity.Pricing, error) {
	return s.current, s.currentErr
}

func (s *stubPricing) GetPricingList(_ context.Context, filters repository.PricingFilters) ([]entity.Pricing, error) {
	s.lastFilters = filters
	return s.list, nil
}

func (s *stubPricing) GetPricingHistory(_ context.Context, _ string, _ float64, days int) ([]entity.PricingSnapshot, error) {
	s.lastDays = days
	return s.history, nil
}

func (s *stubPricing) GetNewDeals(_ context.Context) ([]entity.Pricing, error) {
	return s.deals, nil
}

type stubComparer struct {
	results []entity.ComparisonResult
	lastIDs []string
}

func (s *stubComparer) CompareFirms(_ context.Context, firmIDs []string, _ *float64) ([]entity.ComparisonResult, error) {
	s.lastIDs = firmIDs
	return s.results, nil
}

type stubCrawler struct {
	snapshots []entity.PricingSnapshot
	err       error
}

func (s *stubCrawler) RunBatch(context.Context) {}

func (s *stubCrawler) CrawlFirm(context.Context, string) ([]entity.PricingSnapshot, error) {
	return s.snapshots, s.err
}

func healthyPing(context.Context) error { return nil }

func newTestServer(pricing *stubPricing, comparer *stubComparer, crawler *stubCrawler, pgPing, redisPing handler.Pinger) *httptest.Server {
	h := handler.NewHandler(pricing, comparer, crawler, pgPing, redisPing, zap.NewNop())
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	return httptest.NewServer(router.New(h, metrics, zap.NewNop()))
}

func samplePricing() entity.Pricing {
	changedAt := time.Now().Add(-2 * time.Hour)
	trueCost := 287.0
	return entity.Pricing{
		PropFirmID:      "apex",
		PropFirmName:    "Apex Trader Funding",
		AccountSize:     50000,
		CurrentPrice:    167,
		PriceCurrency:   "USD",
		DiscountPercent: 80,
		TrueCost:        &trueCost,
		SourceURL:       "https://apextraderfunding.com/pricing",
		LastSeenAt:      time.Now().Add(-90 * time.Minute),
		HasChanged:      true,
		ChangedAt:       &changedAt,
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestListPricing(t *testing.T) {
	pricing := &stubPricing{list: []entity.Pricing{samplePricing()}}
	srv := newTestServer(pricing, &stubComparer{}, &stubCrawler{}, healthyPing, healthyPing)
	defer srv.Close()

	var body struct {
		Data []map[string]any `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	code := getJSON(t, srv.URL+"/api/v1/pricing/prop-firms?propFirmIds=apex,ftmo&minDiscount=10&hasChangedOnly=true", &body)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, 1, body.Meta.Total)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "apex", body.Data[0]["propFirmId"])
	assert.Equal(t, 167.0, body.Data[0]["currentPrice"])
	assert.Equal(t, true, body.Data[0]["isNewDeal"])
	assert.Equal(t, "1h ago", body.Data[0]["lastUpdatedAgo"])

	assert.Equal(t, []string{"apex", "ftmo"}, pricing.lastFilters.PropFirmIDs)
	require.NotNil(t, pricing.lastFilters.MinDiscount)
	assert.Equal(t, 10.0, *pricing.lastFilters.MinDiscount)
	assert.True(t, pricing.lastFilters.HasChangedOnly)
}

func TestGetPricingForFirm_NotFound(t *testing.T) {
	pricing := &stubPricing{currentErr: repository.ErrNotFound}
	srv := newTestServer(pricing, &stubComparer{}, &stubCrawler{}, healthyPing, healthyPing)
	defer srv.Close()

	var body map[string]string
	code := getJSON(t, srv.URL+"/api/v1/pricing/prop-firms/ghost", &body)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "pricing not found", body["error"])
}

func TestGetPricingForFirm_ServerError(t *testing.T) {
	pricing := &stubPricing{currentErr: errors.New("connection refused")}
	srv := newTestServer(pricing, &stubComparer{}, &stubCrawler{}, healthyPing, healthyPing)
	defer srv.Close()

	var body map[string]string
	code := getJSON(t, srv.URL+"/api/v1/pricing/prop-firms/apex", &body)
	assert.Equal(t, http.StatusInternalServerError, code)

	// Internals never leak into the response body.
	assert.Equal(t, "internal server error", body["error"])
}

func TestGetPricingHistory_RequiresAccountSize(t *testing.T) {
	srv := newTestServer(&stubPricing{}, &stubComparer{}, &stubCrawler{}, healthyPing, healthyPing)
	defer srv.Close()

	var body map[string]string
	code := getJSON(t, srv.URL+"/api/v1/pricing/prop-firms/apex/history", &body)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetPricingHistory(t *testing.T) {
	pricing := &stubPricing{history: []entity.PricingSnapshot{
		{Pricing: samplePricing(), SnapshotID: "s2", Version: 2},
		{Pricing: samplePricing(), SnapshotID: "s1", Version: 1},
	}}
	srv := newTestServer(pricing, &stubComparer{}, &stubCrawler{}, healthyPing, healthyPing)
	defer srv.Close()

	var body struct {
		Data []map[string]any `json:"data"`
	}
	code := getJSON(t, srv.URL+"/api/v1/pricing/prop-firms/apex/history?accountSize=50000&days=7", &body)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body.Data, 2)
	assert.Equal(t, 2.0, body.Data[0]["version"])
	assert.Equal(t, 7, pricing.lastDays)
}

func TestGetPricingHistory_EmptyIs404(t *testing.T) {
	srv := newTestServer(&stubPricing{}, &stubComparer{}, &stubCrawler{}, healthyPing, healthyPing)
	defer srv.Close()

	var body map[string]string
	code := getJSON(t, srv.URL+"/api/v1/pricing/prop-firms/apex/history?accountSize=50000", &body)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCompareFirms_RequiresIDs(t *testing.T) {
	srv := newTestServer(&stubPricing{}, &stubComparer{}, &stubCrawler{}, healthyPing, healthyPing)
	defer srv.Close()

	var body map[string]string
	code := getJSON(t, srv.URL+"/api/v1/pricing/compare", &body)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCompareFirms(t *testing.T) {
	comparer := &stubComparer{results: []entity.ComparisonResult{{
		AccountSize:     50000,
		Firms:           map[string]entity.Pricing{"apex": samplePricing()},
		BestValueFirmID: "apex",
	}}}
	srv := newTestServer(&stubPricing{}, comparer, &stubCrawler{}, healthyPing, healthyPing)
	defer srv.Close()

	var body struct {
		Data []map[string]any `json:"data"`
	}
	code := getJSON(t, srv.URL+"/api/v1/pricing/compare?ids=apex,%20ftmo", &body)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "apex", body.Data[0]["bestValueFirmId"])

	// IDs are split on commas and trimmed.
	assert.Equal(t, []string{"apex", "ftmo"}, comparer.lastIDs)
}

func TestAdminCrawl(t *testing.T) {
	crawler := &stubCrawler{snapshots: []entity.PricingSnapshot{
		{Pricing: samplePricing(), SnapshotID: "s1", Version: 1},
	}}
	srv := newTestServer(&stubPricing{}, &stubComparer{}, crawler, healthyPing, healthyPing)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/admin/crawl/apex", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool             `json:"success"`
		Count   int              `json:"count"`
		Data    []map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Count)
	assert.Len(t, body.Data, 1)
}

func TestAdminCrawl_UnknownFirm(t *testing.T) {
	crawler := &stubCrawler{err: usecase.ErrFirmNotInCatalog}
	srv := newTestServer(&stubPricing{}, &stubComparer{}, crawler, healthyPing, healthyPing)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/admin/crawl/ghost", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&stubPricing{}, &stubComparer{}, &stubCrawler{}, healthyPing, healthyPing)
	defer srv.Close()

	var body map[string]string
	code := getJSON(t, srv.URL+"/api/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["postgres"])
	assert.Equal(t, "healthy", body["redis"])
}

func TestHealthCheck_DegradedDependency(t *testing.T) {
	redisDown := func(context.Context) error { return errors.New("connection refused") }
	srv := newTestServer(&stubPricing{}, &stubComparer{}, &stubCrawler{}, healthyPing, redisDown)
	defer srv.Close()

	var body map[string]string
	code := getJSON(t, srv.URL+"/api/health", &body)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "healthy", body["postgres"])
	assert.Equal(t, "unhealthy", body["redis"])
}
