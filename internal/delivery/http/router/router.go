package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/price-intel/internal/delivery/http/handler"
	"github.com/user/price-intel/internal/delivery/http/middleware"
	"github.com/user/price-intel/internal/monitoring"
)

func New(h *handler.Handler, metrics *monitoring.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(metrics))

	r.Get("/api/health", h.HandleHealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/pricing", func(r chi.Router) {
			r.Get("/prop-firms", h.HandleListPricing)
			r.Get("/prop-firms/{firmID}", h.HandleGetPricingForFirm)
			r.Get("/prop-firms/{firmID}/history", h.HandleGetPricingHistory)
			r.Get("/new-deals", h.HandleGetNewDeals)
			r.Get("/compare", h.HandleCompareFirms)
		})
		r.Post("/admin/crawl/{firmID}", h.HandleAdminCrawl)
	})

	return r
}
