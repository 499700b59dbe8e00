package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	transferCounter       *prometheus.CounterVec
	fundingCounter        *prometheus.CounterVec
	payoutCounter         *prometheus.CounterVec
	quoteCounter          *prometheus.CounterVec
	refundCounter         *prometheus.CounterVec
	balanceDriftCounter   *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		transferCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transfers_total",
			Help: "Transfer outcomes by method",
		}, []string{"method", "result"})

		fundingCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funding_events_total",
			Help: "Funding request lifecycle events",
		}, []string{"method", "event"})

		payoutCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_events_total",
			Help: "Payout request lifecycle events",
		}, []string{"method", "event"})

		quoteCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotes_total",
			Help: "Quote creation and execution outcomes",
		}, []string{"event"})

		refundCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Compensating refund entries written",
		}, []string{"reason"})

		balanceDriftCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "balance_drift_total",
			Help: "Accounts whose balance diverged from the transaction sum",
		}, []string{"currency"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			transferCounter,
			fundingCounter,
			payoutCounter,
			quoteCounter,
			refundCounter,
			balanceDriftCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementTransfer(method, result string) {
	if transferCounter == nil {
		return
	}
	transferCounter.WithLabelValues(method, result).Inc()
}

func IncrementFundingEvent(method, event string) {
	if fundingCounter == nil {
		return
	}
	fundingCounter.WithLabelValues(method, event).Inc()
}

func IncrementPayoutEvent(method, event string) {
	if payoutCounter == nil {
		return
	}
	payoutCounter.WithLabelValues(method, event).Inc()
}

func IncrementQuoteEvent(event string) {
	if quoteCounter == nil {
		return
	}
	quoteCounter.WithLabelValues(event).Inc()
}

func IncrementRefund(reason string) {
	if refundCounter == nil {
		return
	}
	refundCounter.WithLabelValues(reason).Inc()
}

func IncrementBalanceDrift(currency string) {
	if balanceDriftCounter == nil {
		return
	}
	balanceDriftCounter.WithLabelValues(currency).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
