package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for Prometheus, served on /metrics
var (
	subscriptionsChanged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "news_bot_subscription_changes_total",
		Help: "Total number of subscription adds and removes",
	}, []string{"op"})

	pushesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "news_bot_pushes_total",
		Help: "Total number of scheduled push messages",
	}, []string{"status"})

	webhookEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "news_bot_webhook_events_total",
		Help: "Total number of webhook events handled",
	}, []string{"type"})

	newsFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "news_bot_news_fetch_total",
		Help: "Total number of news lookups by result",
	}, []string{"result"})

	scanDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "news_bot_schedule_scan_duration_seconds",
		Help:    "Duration of scheduled push scans in seconds",
		Buckets: prometheus.DefBuckets,
	})

	errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "news_bot_errors_total",
		Help: "Total number of errors",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(subscriptionsChanged)
	prometheus.MustRegister(pushesTotal)
	prometheus.MustRegister(webhookEventsTotal)
	prometheus.MustRegister(newsFetchTotal)
	prometheus.MustRegister(scanDurationSeconds)
	prometheus.MustRegister(errorsTotal)
}

// RecordSubscriptionChange counts a subscription add or remove
func RecordSubscriptionChange(op string) {
	subscriptionsChanged.WithLabelValues(op).Inc()
}

// RecordPush records a push operation metric
func RecordPush(status string) {
	pushesTotal.WithLabelValues(status).Inc()
}

// RecordWebhookEvent counts an inbound webhook event by type
func RecordWebhookEvent(eventType string) {
	webhookEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordNewsFetch counts a news lookup by result (ok, empty, error)
func RecordNewsFetch(result string) {
	newsFetchTotal.WithLabelValues(result).Inc()
}

// RecordScanDuration records the duration of a scheduled push scan
func RecordScanDuration(duration time.Duration) {
	scanDurationSeconds.Observe(duration.Seconds())
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
