package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/price-intel/internal/delivery/http/response"
	"github.com/user/price-intel/internal/repository"
	"github.com/user/price-intel/internal/usecase"
)

// Pinger reports the liveness of a backing store.
type Pinger func(ctx context.Context) error

type Handler struct {
	pricing    usecase.PricingQueries
	comparison usecase.Comparer
	crawler    usecase.Crawler
	pgPing     Pinger
	redisPing  Pinger
	logger     *zap.Logger
}

func NewHandler(
	pricing usecase.PricingQueries,
	comparison usecase.Comparer,
	crawler usecase.Crawler,
	pgPing, redisPing Pinger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		pricing:    pricing,
		comparison: comparison,
		crawler:    crawler,
		pgPing:     pgPing,
		redisPing:  redisPing,
		logger:     logger,
	}
}

// HandleListPricing serves GET /api/v1/pricing/prop-firms.
// Query params: ?propFirmIds=apex,ftmo&minDiscount=10&hasChangedOnly=true
func (h *Handler) HandleListPricing(w http.ResponseWriter, r *http.Request) {
	filters := repository.PricingFilters{
		HasChangedOnly: r.URL.Query().Get("hasChangedOnly") == "true",
	}
	if ids := r.URL.Query().Get("propFirmIds"); ids != "" {
		filters.PropFirmIDs = splitIDs(ids)
	}
	if minDiscount, ok := parseFloatParam(r, "minDiscount"); ok {
		filters.MinDiscount = &minDiscount
	}

	pricings, err := h.pricing.GetPricingList(r.Context(), filters)
	if err != nil {
		h.serverError(w, "failed to list pricing", err)
		return
	}

	dtos := response.FromPricings(pricings)
	h.writeJSON(w, http.StatusOK, response.PricingList{
		Data: dtos,
		Meta: response.ListMeta{Total: len(dtos)},
	})
}

// HandleGetPricingForFirm serves GET /api/v1/pricing/prop-firms/{firmID}.
// Answers 404 for a not-yet-crawled or unknown firm, never zero pricing.
func (h *Handler) HandleGetPricingForFirm(w http.ResponseWriter, r *http.Request) {
	firmID := chi.URLParam(r, "firmID")

	var accountSize *float64
	if size, ok := parseFloatParam(r, "accountSize"); ok {
		accountSize = &size
	}

	pricing, err := h.pricing.GetPricingForFirm(r.Context(), firmID, accountSize)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, http.StatusNotFound, "pricing not found")
			return
		}
		h.serverError(w, "failed to get pricing", err)
		return
	}

	h.writeJSON(w, http.StatusOK, response.FromPricing(*pricing))
}

// HandleGetPricingHistory serves
// GET /api/v1/pricing/prop-firms/{firmID}/history?accountSize=50000&days=30.
func (h *Handler) HandleGetPricingHistory(w http.ResponseWriter, r *http.Request) {
	firmID := chi.URLParam(r, "firmID")

	accountSize, ok := parseFloatParam(r, "accountSize")
	if !ok {
		h.writeJSONError(w, http.StatusBadRequest, "accountSize query parameter is required")
		return
	}

	days := 30
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		days = d
	}

	history, err := h.pricing.GetPricingHistory(r.Context(), firmID, accountSize, days)
	if err != nil {
		h.serverError(w, "failed to get pricing history", err)
		return
	}
	if len(history) == 0 {
		h.writeJSONError(w, http.StatusNotFound, "no pricing history for firm and account size")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"data": response.FromSnapshots(history)})
}

// HandleGetNewDeals serves GET /api/v1/pricing/new-deals: current pricing
// rows that changed within the trailing 24 hours.
func (h *Handler) HandleGetNewDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.pricing.GetNewDeals(r.Context())
	if err != nil {
		h.serverError(w, "failed to get new deals", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": response.FromPricings(deals)})
}

// HandleCompareFirms serves GET /api/v1/pricing/compare?ids=a,b&accountSize=50000.
func (h *Handler) HandleCompareFirms(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		h.writeJSONError(w, http.StatusBadRequest, `missing "ids" query parameter (comma-separated firm IDs)`)
		return
	}
	firmIDs := splitIDs(idsParam)

	var accountSize *float64
	if size, ok := parseFloatParam(r, "accountSize"); ok {
		accountSize = &size
	}

	results, err := h.comparison.CompareFirms(r.Context(), firmIDs, accountSize)
	if err != nil {
		h.serverError(w, "failed to compare firms", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"data": response.FromComparison(results)})
}

// HandleAdminCrawl serves POST /api/v1/admin/crawl/{firmID}: a synchronous
// fetch -> normalize -> detect -> persist run for one firm.
func (h *Handler) HandleAdminCrawl(w http.ResponseWriter, r *http.Request) {
	firmID := chi.URLParam(r, "firmID")
	h.logger.Info("manual crawl triggered", zap.String("prop_firm_id", firmID))

	snapshots, err := h.crawler.CrawlFirm(r.Context(), firmID)
	if err != nil {
		if errors.Is(err, usecase.ErrFirmNotInCatalog) {
			h.writeJSONError(w, http.StatusNotFound, "firm not found in catalog")
			return
		}
		h.serverError(w, "manual crawl failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, response.CrawlResult{
		Success: true,
		Count:   len(snapshots),
		Data:    response.FromSnapshots(snapshots),
	})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"postgres": "healthy", "redis": "healthy"}
	healthy := true

	if err := h.pgPing(ctx); err != nil {
		status["postgres"] = "unhealthy"
		healthy = false
		h.logger.Error("health check failed for postgres", zap.Error(err))
	}
	if err := h.redisPing(ctx); err != nil {
		status["redis"] = "unhealthy"
		healthy = false
		h.logger.Error("health check failed for redis", zap.Error(err))
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, status)
}

func (h *Handler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	h.writeJSONError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, code int, message string) {
	h.writeJSON(w, code, map[string]string{"error": message})
}

func splitIDs(param string) []string {
	parts := strings.Split(param, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

func parseFloatParam(r *http.Request, name string) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
