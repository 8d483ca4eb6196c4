package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "invoice_audit"

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on registration.
type Metrics struct {
	startTime time.Time
	registry  *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	pagesTotal   *prometheus.CounterVec
	pageDuration prometheus.Histogram
	linesTotal   prometheus.Counter

	breakerState *prometheus.GaugeVec

	reconciliations  prometheus.Counter
	missingProducts  prometheus.Counter
	nameMismatches   prometheus.Counter
	ledgerRows       prometheus.Histogram
	reportsGenerated *prometheus.CounterVec

	uploadsSwept prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 30, 120, 600},
		}, []string{"route"}),

		pagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_pages_total",
			Help:      "Invoice pages sent to the vision model, by outcome.",
		}, []string{"status"}),
		pageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_page_duration_seconds",
			Help:      "Time spent analysing one invoice page.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		linesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_lines_total",
			Help:      "Product lines extracted from invoice pages.",
		}),

		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"name"}),

		reconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Completed reconciliation runs.",
		}),
		missingProducts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_products_total",
			Help:      "Invoice lines reported as missing from the ledger.",
		}),
		nameMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "name_mismatches_total",
			Help:      "Pages whose product name differs from the matched ledger row.",
		}),
		ledgerRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_rows",
			Help:      "Ledger rows per reconciliation.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 6),
		}),
		reportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Excel reports written, by type.",
		}, []string{"type"}),

		uploadsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_swept_total",
			Help:      "Stale upload files removed by the sweeper.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since server start.",
		}, func() float64 { return time.Since(m.startTime).Seconds() }),
		m.requestsTotal,
		m.requestDuration,
		m.pagesTotal,
		m.pageDuration,
		m.linesTotal,
		m.breakerState,
		m.reconciliations,
		m.missingProducts,
		m.nameMismatches,
		m.ledgerRows,
		m.reportsGenerated,
		m.uploadsSwept,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordRequest(route string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordPage records one analysed page; status is "ok", "failed" or
// "rejected" (breaker open).
func (m *Metrics) RecordPage(status string, lines int, d time.Duration) {
	m.pagesTotal.WithLabelValues(status).Inc()
	m.pageDuration.Observe(d.Seconds())
	m.linesTotal.Add(float64(lines))
}

func (m *Metrics) SetBreakerState(name string, state int) {
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) RecordReconciliation(ledgerRows, missing, nameMismatches int) {
	m.reconciliations.Inc()
	m.ledgerRows.Observe(float64(ledgerRows))
	m.missingProducts.Add(float64(missing))
	m.nameMismatches.Add(float64(nameMismatches))
}

func (m *Metrics) RecordReport(kind string) {
	m.reportsGenerated.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordUploadsSwept(n int) {
	m.uploadsSwept.Add(float64(n))
}

type Snapshot struct {
	Uptime          time.Duration `json:"uptime"`
	Reconciliations int64         `json:"reconciliations"`
	MissingProducts int64         `json:"missing_products"`
	NameMismatches  int64         `json:"name_mismatches"`
	PagesOK         int64         `json:"pages_ok"`
	PagesFailed     int64         `json:"pages_failed"`
	UploadsSwept    int64         `json:"uploads_swept"`
}

// Snapshot reads the current counter values back from the registry.
func (m *Metrics) Snapshot() *Snapshot {
	s := &Snapshot{Uptime: time.Since(m.startTime)}

	families, err := m.registry.Gather()
	if err != nil {
		return s
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			value := int64(metric.GetCounter().GetValue())
			switch mf.GetName() {
			case namespace + "_reconciliations_total":
				s.Reconciliations = value
			case namespace + "_missing_products_total":
				s.MissingProducts = value
			case namespace + "_name_mismatches_total":
				s.NameMismatches = value
			case namespace + "_uploads_swept_total":
				s.UploadsSwept = value
			case namespace + "_extraction_pages_total":
				for _, label := range metric.GetLabel() {
					if label.GetName() != "status" {
						continue
					}
					if label.GetValue() == "ok" {
						s.PagesOK += value
					} else {
						s.PagesFailed += value
					}
				}
			}
		}
	}
	return s
}

func RecordRequest(route string, status int, d time.Duration) {
	Default().RecordRequest(route, status, d)
}

func RecordPage(status string, lines int, d time.Duration) {
	Default().RecordPage(status, lines, d)
}

func RecordReconciliation(ledgerRows, missing, nameMismatches int) {
	Default().RecordReconciliation(ledgerRows, missing, nameMismatches)
}

func RecordReport(kind string) {
	Default().RecordReport(kind)
}

func RecordUploadsSwept(n int) {
	Default().RecordUploadsSwept(n)
}
