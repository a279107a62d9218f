// Package metrics exposes Prometheus metrics for storekit. Metrics satisfies
// the Observer interfaces of the quota, pricing, billing and stock packages.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/quota"
	"github.com/dmitrymomot/storekit/pkg/stock"
)

const namespace = "storekit"

// Metrics holds every storekit collector.
type Metrics struct {
	gatherer prometheus.Gatherer

	QuotaDecisions     *prometheus.CounterVec
	PricingEvaluations *prometheus.CounterVec
	PricingRulesFired  prometheus.Histogram
	BillingWebhooks    *prometheus.CounterVec
	StockSyncs         *prometheus.CounterVec
	StockAlerts        *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests; production uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: gatherer,

		QuotaDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quota",
				Name:      "decisions_total",
				Help:      "Quota decisions by resource and outcome",
			},
			[]string{"resource", "decision"},
		),
		PricingEvaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pricing",
				Name:      "evaluations_total",
				Help:      "Pricing rule evaluations, split by whether the price was applied",
			},
			[]string{"applied"},
		),
		PricingRulesFired: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pricing",
				Name:      "rules_applied",
				Help:      "Number of rules that changed the price in one evaluation",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
			},
		),
		BillingWebhooks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "webhooks_total",
				Help:      "Billing webhooks by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		StockSyncs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stock",
				Name:      "products_total",
				Help:      "Products seen by stock syncs, by result",
			},
			[]string{"result"},
		),
		StockAlerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stock",
				Name:      "alerts_total",
				Help:      "Stock alerts raised by kind",
			},
			[]string{"kind"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "API requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "API request latency",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) ObserveDecision(res quota.Resource, decision string) {
	m.QuotaDecisions.WithLabelValues(string(res), decision).Inc()
}

func (m *Metrics) ObserveEvaluation(applied bool, rulesApplied int) {
	m.PricingEvaluations.WithLabelValues(strconv.FormatBool(applied)).Inc()
	m.PricingRulesFired.Observe(float64(rulesApplied))
}

func (m *Metrics) ObserveWebhook(event billing.EventType, outcome string) {
	if event == "" {
		event = "unverified"
	}
	m.BillingWebhooks.WithLabelValues(string(event), outcome).Inc()
}

func (m *Metrics) ObserveSync(res stock.SyncResult) {
	m.StockSyncs.WithLabelValues("updated").Add(float64(res.Updated))
	m.StockSyncs.WithLabelValues("unchanged").Add(float64(res.Unchanged))
	m.StockSyncs.WithLabelValues("missing").Add(float64(len(res.Missing)))
	m.StockAlerts.WithLabelValues(string(stock.AlertLowStock)).Add(float64(res.LowStock))
	m.StockAlerts.WithLabelValues(string(stock.AlertOutOfStock)).Add(float64(res.OutOfStock))
}

// Handler serves the gathered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
