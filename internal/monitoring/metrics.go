package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	CrawlsTotal       *prometheus.CounterVec
	CrawlDuration     *prometheus.HistogramVec
	PriceChangesTotal *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the service metrics against the given registerer.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate
// registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CrawlsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "price_crawls_total",
			Help: "Total number of crawl attempts by outcome.",
		}, []string{"status", "reason"}), // status: success, failure, empty

		CrawlDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "price_crawl_duration_seconds",
			Help:    "Duration of pricing page fetches.",
			Buckets: []float64{1, 5, 10, 15, 30, 60},
		}, []string{"prop_firm_id"}),

		PriceChangesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "price_changes_total",
			Help: "Total number of detected pricing changes by reason.",
		}, []string{"reason"}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

func (m *Metrics) IncCrawlsTotal(status, reason string) {
	m.CrawlsTotal.WithLabelValues(status, reason).Inc()
}

func (m *Metrics) ObserveCrawlDuration(propFirmID string, d time.Duration) {
	m.CrawlDuration.WithLabelValues(propFirmID).Observe(d.Seconds())
}

func (m *Metrics) IncPriceChangesTotal(reason string) {
	m.PriceChangesTotal.WithLabelValues(reason).Inc()
}
