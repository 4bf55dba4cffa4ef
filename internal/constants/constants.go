package constants

import "time"

const (
	ServiceName    = "runtime-orchestrator"
	ServiceVersion = "1.0.0"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixPendingApproval = "approval:pending:"
)

const (
	DefaultMongoDBName        = "runtimeops"
	DefaultBridgeCollection   = "bridge_jobs"
	DefaultPendingApprovalTTL = 24 * time.Hour
)

const (
	ShutdownTimeout        = 5 * time.Second
	ApprovalSweepInterval  = time.Minute
	MongoConnectTimeout    = 30 * time.Second
	DatabasePingTimeout    = 10 * time.Second
	TracingExporterTimeout = 5 * time.Second
)

const (
	PostgresMaxOpenConns    = 10
	PostgresMaxIdleConns    = 5
	PostgresConnMaxLifetime = 30 * time.Minute
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	HeaderOperatorID = "X-Operator-ID"
	HeaderRequestID  = "X-Request-ID"
)
