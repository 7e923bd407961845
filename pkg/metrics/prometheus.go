// Package metrics provides Prometheus metrics for the EHB tiers service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rate-limit decision outcomes.
const (
	OutcomeAllowed  = "allowed"
	OutcomeRejected = "rejected"
	OutcomeFailOpen = "fail_open"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Core business metrics
	rewardCalculations   *prometheus.CounterVec
	rewardFinalAmount    prometheus.Histogram
	accessChecks         *prometheus.CounterVec
	franchiseEvaluations *prometheus.CounterVec

	// Rate limiting
	rateLimitDecisions   *prometheus.CounterVec
	rateLimitStoreErrors prometheus.Counter
	rateLimitLatency     prometheus.Histogram

	// Moderation
	reportsSubmitted *prometheus.CounterVec
	reportsDuplicate prometheus.Counter
	targetsFlagged   *prometheus.CounterVec

	// Notification pipeline
	queueSize            prometheus.Gauge
	queueCapacity        prometheus.Gauge
	queueEnqueueErrors   *prometheus.CounterVec
	workerCount          prometheus.Gauge
	notificationsSent    prometheus.Counter
	notificationErrors   prometheus.Counter
	notificationLatency  prometheus.Histogram
	repositoryQueryLaten *prometheus.HistogramVec

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error breakdowns
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System performance metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ehb",
		subsystem:        "tiers",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.rewardCalculations = m.counterVec("reward_calculations_total",
		"Reward calculations by outcome (ok, invalid_input)", "outcome")
	m.rewardFinalAmount = m.histogram("reward_final_amount",
		"Distribution of computed final rewards in token units",
		prometheus.ExponentialBuckets(0.01, 10, 10))
	m.accessChecks = m.counterVec("access_checks_total",
		"Access checks by result (granted, denied)", "result")
	m.franchiseEvaluations = m.counterVec("franchise_evaluations_total",
		"Franchise earnings evaluations by validator eligibility", "validator_eligible")

	m.rateLimitDecisions = m.counterVec("ratelimit_decisions_total",
		"Rate limit decisions by profile and outcome", "profile", "outcome")
	m.rateLimitStoreErrors = m.counter("ratelimit_store_errors_total",
		"Counter store failures; each one let a request through (fail open)")
	m.rateLimitLatency = m.histogram("ratelimit_store_latency_milliseconds",
		"Round trip to the counter store in milliseconds",
		[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 25, 50, 100, 250})

	m.reportsSubmitted = m.counterVec("reports_submitted_total",
		"Content reports accepted, by target kind", "kind")
	m.reportsDuplicate = m.counter("reports_duplicate_total",
		"Reports ignored because the reporter already reported the target")
	m.targetsFlagged = m.counterVec("targets_flagged_total",
		"Targets moved under review by report thresholds, by kind", "kind")

	m.queueSize = m.gauge("notify_queue_size", "Current size of the notification queue")
	m.queueCapacity = m.gauge("notify_queue_capacity", "Capacity of the notification queue")
	m.queueEnqueueErrors = m.counterVec("notify_queue_enqueue_errors_total",
		"Notification enqueue failures by reason", "reason")
	m.workerCount = m.gauge("notify_worker_count", "Number of notification workers")
	m.notificationsSent = m.counter("notifications_sent_total", "Franchise notifications delivered")
	m.notificationErrors = m.counter("notification_errors_total", "Franchise notification delivery failures")
	m.notificationLatency = m.histogram("notification_latency_milliseconds",
		"Notification delivery latency in milliseconds", m.histogramBuckets)
	m.repositoryQueryLaten = m.histogramVec("repository_query_latency_milliseconds",
		"Data store query latency in milliseconds by operation", m.histogramBuckets, "operation")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordRewardCalculation counts a reward calculation by outcome.
func RecordRewardCalculation(outcome string) {
	globalManager.rewardCalculations.WithLabelValues(outcome).Inc()
}

// RecordRewardAmount observes a computed final reward.
func RecordRewardAmount(amount float64) {
	globalManager.rewardFinalAmount.Observe(amount)
}

// RecordAccessCheck counts an access decision.
func RecordAccessCheck(granted bool) {
	result := "denied"
	if granted {
		result = "granted"
	}
	globalManager.accessChecks.WithLabelValues(result).Inc()
}

// RecordFranchiseEvaluation counts an earnings evaluation.
func RecordFranchiseEvaluation(validatorEligible bool) {
	v := "false"
	if validatorEligible {
		v = "true"
	}
	globalManager.franchiseEvaluations.WithLabelValues(v).Inc()
}

// RecordRateLimitDecision counts a limiter decision. Outcome is one of the
// Outcome* constants.
func RecordRateLimitDecision(profile, outcome string) {
	globalManager.rateLimitDecisions.WithLabelValues(profile, outcome).Inc()
}

// RecordRateLimitStoreError counts a counter store failure.
func RecordRateLimitStoreError() {
	globalManager.rateLimitStoreErrors.Inc()
}

// RecordRateLimitLatency records the counter store round trip.
func RecordRateLimitLatency(latencyMs float64) {
	globalManager.rateLimitLatency.Observe(latencyMs)
}

// RecordReport counts an accepted report.
func RecordReport(kind string) {
	globalManager.reportsSubmitted.WithLabelValues(kind).Inc()
}

// RecordReportDuplicate counts an ignored duplicate report.
func RecordReportDuplicate() {
	globalManager.reportsDuplicate.Inc()
}

// RecordTargetFlagged counts a target moved under review.
func RecordTargetFlagged(kind string) {
	globalManager.targetsFlagged.WithLabelValues(kind).Inc()
}

// UpdateQueueSize sets the current notification queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the notification queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordNotificationSent counts a delivered notification.
func RecordNotificationSent(latencyMs float64) {
	globalManager.notificationsSent.Inc()
	globalManager.notificationLatency.Observe(latencyMs)
}

// RecordNotificationError counts a failed delivery.
func RecordNotificationError() {
	globalManager.notificationErrors.Inc()
}

// RecordRepositoryQueryLatency records a data store operation.
func RecordRepositoryQueryLatency(operation string, latencyMs float64) {
	globalManager.repositoryQueryLaten.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
