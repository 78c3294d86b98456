package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refereat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "refereat_http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// LedgerOperationsTotal は台帳操作の結果ごとの件数です
	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refereat_ledger_operations_total",
			Help: "Ledger operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	CreditsEarnedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refereat_credits_earned_total",
			Help: "Sum of credits accrued to influencer wallets",
		},
	)

	CreditsRedeemedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refereat_credits_redeemed_total",
			Help: "Sum of credits redeemed from influencer wallets",
		},
	)

	TxRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refereat_tx_retries_total",
			Help: "Transactions retried after a serialization failure or deadlock",
		},
	)

	EventPublishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refereat_event_publish_failures_total",
			Help: "Ledger events that could not be published",
		},
		[]string{"type"},
	)
)

// ObserveLedger は台帳操作の結果を記録します
func ObserveLedger(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LedgerOperationsTotal.WithLabelValues(operation, result).Inc()
}
