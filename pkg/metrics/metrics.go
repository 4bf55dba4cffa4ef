package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runtime_batches_total",
			Help: "Total number of applied batches by outcome (count)",
		},
		[]string{"outcome"},
	)

	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runtime_batch_duration_ms",
			Help:    "Duration of a full batch apply in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"outcome"},
	)

	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runtime_actions_total",
			Help: "Total number of staged actions reaching a terminal status (count)",
		},
		[]string{"action_type", "status"},
	)

	ActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runtime_action_duration_ms",
			Help:    "Duration of a single staged action in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"action_type"},
	)

	RuntimeChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runtime_config_changes_total",
			Help: "Total number of committed runtime config replacements (count)",
		},
		[]string{"action"},
	)

	RuntimeFrozen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runtime_freeze_updates",
			Help: "Last observed freeze_updates flag (1 = frozen)",
		},
	)

	ActiveProfile = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "runtime_active_profile",
			Help: "Last observed active profile (1 for the active one)",
		},
		[]string{"profile"},
	)

	ApprovalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_requests_total",
			Help: "Total number of approval request transitions (count)",
		},
		[]string{"action_type", "result"},
	)

	SubsystemCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subsystem_calls_total",
			Help: "Total number of subsystem activation calls (count)",
		},
		[]string{"subsystem", "operation", "status"},
	)

	SubsystemCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subsystem_call_duration_ms",
			Help:    "Duration of subsystem activation calls in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"subsystem"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"component", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"component", "strategy", "reason"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"topic", "status"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
		},
		[]string{"topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"database", "operation"},
	)
)

func RegisterOrchestratorMetrics() {
	prometheus.MustRegister(BatchesTotal)
	prometheus.MustRegister(BatchDuration)
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(ActionDuration)
	prometheus.MustRegister(RuntimeChangesTotal)
	prometheus.MustRegister(RuntimeFrozen)
	prometheus.MustRegister(ActiveProfile)
	prometheus.MustRegister(SubsystemCallsTotal)
	prometheus.MustRegister(SubsystemCallDuration)
}

func RegisterApprovalMetrics() {
	prometheus.MustRegister(ApprovalRequestsTotal)
	prometheus.MustRegister(FallbackUsageTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterManagementMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func ObserveBatch(outcome string, duration time.Duration) {
	BatchesTotal.WithLabelValues(outcome).Inc()
	BatchDuration.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

func ObserveAction(actionType, status string, duration time.Duration) {
	ActionsTotal.WithLabelValues(actionType, status).Inc()
	ActionDuration.WithLabelValues(actionType).Observe(float64(duration.Milliseconds()))
}

func IncRuntimeChange(action string) {
	RuntimeChangesTotal.WithLabelValues(action).Inc()
}

// SetRuntimeState records the last observed profile and freeze flag.
func SetRuntimeState(profile string, frozen bool, profiles []string) {
	for _, p := range profiles {
		value := 0.0
		if p == profile {
			value = 1
		}
		ActiveProfile.WithLabelValues(p).Set(value)
	}
	if frozen {
		RuntimeFrozen.Set(1)
	} else {
		RuntimeFrozen.Set(0)
	}
}

func IncApprovalRequest(actionType, result string) {
	ApprovalRequestsTotal.WithLabelValues(actionType, result).Inc()
}

func IncFallbackUsage(component, strategy, reason string) {
	FallbackUsageTotal.WithLabelValues(component, strategy, reason).Inc()
}

func ObserveSubsystemCall(subsystem, operation string, err error, duration time.Duration) {
	SubsystemCallsTotal.WithLabelValues(subsystem, operation, statusLabel(err)).Inc()
	SubsystemCallDuration.WithLabelValues(subsystem).Observe(float64(duration.Milliseconds()))
}

func IncRetryAttempt(component, topic string) {
	RetryAttemptsTotal.WithLabelValues(component, topic).Inc()
}

func ObserveKafkaWrite(topic string, sizeBytes int, err error, duration time.Duration) {
	KafkaMessagesWrittenTotal.WithLabelValues(topic, statusLabel(err)).Inc()
	KafkaMessageSizeBytes.WithLabelValues(topic).Observe(float64(sizeBytes))
	KafkaWriteDuration.WithLabelValues(topic).Observe(float64(duration.Milliseconds()))
}

func ObserveDatabaseQuery(database, operation string, err error, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(database, operation, statusLabel(err)).Inc()
	DatabaseQueryDuration.WithLabelValues(database, operation).Observe(float64(duration.Milliseconds()))
}
