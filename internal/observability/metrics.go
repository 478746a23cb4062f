package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpDurationHistogram  *prometheus.HistogramVec
	transitionCounter      *prometheus.CounterVec
	batchItemCounter       *prometheus.CounterVec
	settlementOutcomeCount *prometheus.CounterVec
	eventPublishCounter    *prometheus.CounterVec
	idempotencyCounter     *prometheus.CounterVec
	awaitingSettlement     prometheus.Gauge
	integrityViolations    *prometheus.CounterVec
	workerRunCounter       *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		transitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_transitions_total",
			Help: "Lifecycle transitions applied or refused, by transition and result kind",
		}, []string{"transition", "result"})

		batchItemCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_batch_items_total",
			Help: "Batch settlement submission items by outcome",
		}, []string{"result"})

		settlementOutcomeCount = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_outcomes_total",
			Help: "Settlement outcomes recorded, by source and outcome",
		}, []string{"source", "outcome"})

		eventPublishCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_events_published_total",
			Help: "Lifecycle event publish attempts by result",
		}, []string{"result"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		awaitingSettlement = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settlement_awaiting_outcome",
			Help: "Transactions submitted to the settlement network without a final outcome, as last seen by the worker",
		})

		integrityViolations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_integrity_violations_total",
			Help: "Stored transactions found violating a lifecycle invariant during reconciliation",
		}, []string{"check"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			transitionCounter,
			batchItemCounter,
			settlementOutcomeCount,
			eventPublishCounter,
			idempotencyCounter,
			awaitingSettlement,
			integrityViolations,
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

func IncrementTransition(transition, result string) {
	if transitionCounter == nil {
		return
	}
	transitionCounter.WithLabelValues(transition, result).Inc()
}

func IncrementBatchItem(result string) {
	if batchItemCounter == nil {
		return
	}
	batchItemCounter.WithLabelValues(result).Inc()
}

func IncrementSettlementOutcome(source, outcome string) {
	if settlementOutcomeCount == nil {
		return
	}
	settlementOutcomeCount.WithLabelValues(source, outcome).Inc()
}

func IncrementEventPublish(result string) {
	if eventPublishCounter == nil {
		return
	}
	eventPublishCounter.WithLabelValues(result).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func SetAwaitingSettlement(size int) {
	if awaitingSettlement == nil {
		return
	}
	awaitingSettlement.Set(float64(size))
}

func IncrementIntegrityViolation(check string) {
	if integrityViolations == nil {
		return
	}
	integrityViolations.WithLabelValues(check).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
