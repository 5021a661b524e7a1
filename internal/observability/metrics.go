package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline and the notification scheduler.
type Metrics struct {
	// Ingestion metrics.
	AnnouncementsFetched  *prometheus.CounterVec // labels: utility
	FetchErrors           *prometheus.CounterVec // labels: utility
	RecordsCreated        *prometheus.CounterVec // labels: utility, status
	DuplicatesSkipped     *prometheus.CounterVec // labels: utility
	TranslationErrors     prometheus.Counter
	ExtractionUnavailable prometheus.Counter
	CycleDuration         prometheus.Histogram

	// Scheduler metrics.
	SubscribersDue       prometheus.Histogram
	NotificationsSent    prometheus.Counter
	NotificationsSilent  prometheus.Counter
	DeliveryErrors       *prometheus.CounterVec // labels: kind={forbidden,rate_limited,network}
	SubscriberCycleSkips prometheus.Counter
	SchedulerRunning     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AnnouncementsFetched,
		m.FetchErrors,
		m.RecordsCreated,
		m.DuplicatesSkipped,
		m.TranslationErrors,
		m.ExtractionUnavailable,
		m.CycleDuration,
		m.SubscribersDue,
		m.NotificationsSent,
		m.NotificationsSilent,
		m.DeliveryErrors,
		m.SubscriberCycleSkips,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		AnnouncementsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outage_sentinel",
			Name:      "announcements_fetched_total",
			Help:      "Raw announcements fetched from provider pages, by utility.",
		}, []string{"utility"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outage_sentinel",
			Name:      "fetch_errors_total",
			Help:      "Provider page fetch failures, by utility.",
		}, []string{"utility"}),
		RecordsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outage_sentinel",
			Name:      "records_created_total",
			Help:      "New outage records stored, by utility and status.",
		}, []string{"utility", "status"}),
		DuplicatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outage_sentinel",
			Name:      "duplicates_skipped_total",
			Help:      "Announcements whose fingerprint was already stored.",
		}, []string{"utility"}),
		TranslationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outage_sentinel",
			Name:      "translation_errors_total",
			Help:      "Announcements skipped because translation failed.",
		}),
		ExtractionUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outage_sentinel",
			Name:      "extraction_unavailable_total",
			Help:      "Utility cycles skipped because the NER backend was down.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outage_sentinel",
			Name:      "ingest_cycle_duration_seconds",
			Help:      "Duration of a complete fetch-translate-structure cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SubscribersDue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outage_sentinel",
			Name:      "subscribers_due",
			Help:      "Number of subscribers due per scheduler tick.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outage_sentinel",
			Name:      "notifications_sent_total",
			Help:      "Notifications handed to the transport.",
		}),
		NotificationsSilent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outage_sentinel",
			Name:      "notifications_silent_total",
			Help:      "Notifications delivered without sound due to quiet hours.",
		}),
		DeliveryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outage_sentinel",
			Name:      "delivery_errors_total",
			Help:      "Failed sends by error kind.",
		}, []string{"kind"}),
		SubscriberCycleSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outage_sentinel",
			Name:      "subscriber_cycle_skips_total",
			Help:      "Subscriber cycles skipped because the previous one was still running.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outage_sentinel",
			Name:      "scheduler_running",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
	}
}
