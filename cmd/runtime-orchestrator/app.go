package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	"runtimeops/internal/approval"
	"runtimeops/internal/bridge"
	"runtimeops/internal/config"
	"runtimeops/internal/constants"
	"runtimeops/internal/control"
	"runtimeops/internal/logger"
	"runtimeops/internal/management"
	"runtimeops/internal/orchestrator"
	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
	"runtimeops/internal/subsystem"
	"runtimeops/migrations"
	"runtimeops/pkg/bootstrap"
	"runtimeops/pkg/health"
	"runtimeops/pkg/logging"
	"runtimeops/pkg/metrics"
	"runtimeops/pkg/middleware"
	pkgmigrations "runtimeops/pkg/migrations"
	"runtimeops/pkg/ratelimit"
	"runtimeops/pkg/tracing"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	registry       *subsystem.Registry
	approvals      *approval.Service
	service        management.Service
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	ctx = logging.WithServiceName(ctx, constants.ServiceName)

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitBroker(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterOrchestratorMetrics()
	metrics.RegisterApprovalMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterManagementMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initService(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	a.initRouter(ctx)
	a.initServer()

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	if a.Config.Database.RunMigrations {
		if err := pkgmigrations.RunPostgres(a.db, migrations.FS); err != nil {
			return err
		}
		a.Logger.InfowCtx(ctx, "Postgres migrations applied")
	}

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		a.Logger.WarnwCtx(ctx, "Redis connection failed, continuing without pending approval index", "error", err)
	}
	a.redis = rdb

	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		a.Logger.WarnwCtx(ctx, "MongoDB connection failed, continuing without bridge tracking", "error", err)
		return nil
	}
	a.mongoClient = mongoClient
	if mongoClient != nil {
		if err := pkgmigrations.EnsureBridgeIndexes(ctx, a.mongoDatabase(), a.bridgeCollection()); err != nil {
			a.Logger.WarnwCtx(ctx, "Failed to ensure bridge indexes", "error", err)
		}
	}

	return nil
}

func (a *App) mongoDatabase() *mongo.Database {
	return a.mongoClient.Database(a.dbConnector.MongoDatabaseName())
}

func (a *App) bridgeCollection() string {
	if a.Config.Bridge.Collection == "" {
		return constants.DefaultBridgeCollection
	}
	return a.Config.Bridge.Collection
}

func (a *App) initService(ctx context.Context) error {
	approvalOpts := []approval.Option{approval.WithPendingTTL(a.Config.Approval.PendingTTL)}
	if a.redis != nil {
		var index approval.PendingIndex = approval.NewRedisPendingIndex(a.redis)
		if a.Config.CircuitBreaker.Enabled {
			index = approval.NewCircuitBreakerIndex(index, a.Config.CircuitBreaker)
			a.Logger.InfowCtx(ctx, "Circuit breaker enabled for pending approval index")
		}
		approvalOpts = append(approvalOpts, approval.WithPendingIndex(index))
	}
	a.approvals = approval.NewService(approval.NewRepository(a.db), a.Logger, approvalOpts...)

	rules := make([]staging.RiskRule, 0, len(a.Config.Risk.Rules))
	for _, r := range a.Config.Risk.Rules {
		rules = append(rules, staging.RiskRule{
			Name:       r.Name,
			Expression: r.Expression,
			Level:      staging.RiskLevel(r.Level),
		})
	}
	classifier, err := staging.NewRiskClassifier(rules)
	if err != nil {
		return fmt.Errorf("failed to build risk classifier: %w", err)
	}

	policy, err := control.NewApprovalPolicy(a.Config.Approval, classifier)
	if err != nil {
		return err
	}

	registry, err := subsystem.NewRegistryFromConfig(a.Config.Subsystems, a.Config.CircuitBreaker)
	if err != nil {
		return fmt.Errorf("failed to build subsystem registry: %w", err)
	}
	a.registry = registry

	store := runtimeconfig.NewPostgresStore(a.db)
	notifier := control.NewEventNotifier(a.Producer, a.Config.Broker.Kafka.EventsTopic)
	plane := control.NewControlPlane(store, a.approvals, policy, registry, notifier, a.Logger)

	batches := orchestrator.NewBatchOrchestrator(plane, approval.NewGate(a.approvals), a.Logger,
		orchestrator.WithMaxActions(a.Config.Orchestrator.MaxActionsPerBatch),
	)

	opts := []management.ServiceOption{management.WithEvents(notifier)}
	if a.mongoClient != nil {
		repo := bridge.NewRepository(a.mongoDatabase(), a.bridgeCollection())
		opts = append(opts, management.WithBridge(bridge.NewTracker(repo, a.Logger)))
	}

	a.service = management.NewService(store, staging.NewStager(classifier), batches, a.approvals, a.Logger, opts...)
	return nil
}

func (a *App) initRouter(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(tracing.ServiceName(a.Config.Tracing)))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.OperatorMiddleware())
	router.Use(middleware.LoggerMiddleware(a.Logger))

	if a.Config.Management.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.Config.Management.RateLimit.RPS,
			Burst:           a.Config.Management.RateLimit.Burst,
			CleanupInterval: time.Duration(a.Config.Management.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.Config.Management.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.Logger.InfowCtx(ctx, "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	management.NewHandler(a.service, a.Logger).RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redis != nil {
		healthRegistry.RegisterOptional(health.NewRedisChecker(a.redis))
	}
	if a.mongoClient != nil {
		healthRegistry.RegisterOptional(health.NewMongoDBChecker(a.mongoClient))
	}
	for _, client := range a.registry.Clients() {
		healthRegistry.RegisterOptional(client)
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
}

func (a *App) initServer() {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.sweepApprovals(gCtx)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(ctx)
	})

	return g.Wait()
}

// sweepApprovals expires pending approval requests past their deadline until
// ctx is done.
func (a *App) sweepApprovals(ctx context.Context) {
	ticker := time.NewTicker(constants.ApprovalSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.approvals.ExpireStale(ctx)
			if err != nil {
				a.Logger.WarnwCtx(ctx, "Approval expiry sweep failed", "error", err)
				continue
			}
			if n > 0 {
				a.Logger.InfowCtx(ctx, "Expired stale approval requests", "count", n)
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
	defer cancel()

	return a.Base.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db, a.mongoClient)...)
		return errs
	})
}
