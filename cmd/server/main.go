package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	procurementapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/cache"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/erp/procurement/internal/infrastructure/event"
	"github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/erp/procurement/internal/infrastructure/messaging"
	"github.com/erp/procurement/internal/infrastructure/persistence"
	"github.com/erp/procurement/internal/infrastructure/scheduler"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"github.com/erp/procurement/internal/interfaces/http/handler"
	"github.com/erp/procurement/internal/interfaces/http/middleware"
	"github.com/erp/procurement/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Procurement API
//	@version		1.0
//	@description	Purchase order, invoice and vendor lifecycle for depot spare-part procurement

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	UserID
//	@in							header
//	@name						X-User-ID
//	@description				Caller identity supplied by the upstream gateway

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	// A bootstrap logger reports telemetry setup; the final logger tees into the OTLP log bridge
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	providers := newTelemetry(ctx, cfg, bootLog)

	var extraCores []zapcore.Core
	if providers.logs.IsEnabled() {
		extraCores = append(extraCores, telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, providers.logs, logger.ParseLevel(cfg.Log.Level)))
	}
	log, err := logger.New(logCfg, extraCores...)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()
	defer providers.shutdown(log)

	log.Info("Starting procurement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	// Database with zap-backed GORM logging and per-query spans
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis backs idempotency and, optionally, the document counters
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	stores := cache.NewStoreFactory(redisClient, cache.WithLogger(log))

	// Repositories save domain events to the outbox in the same transaction
	eventSerializer := event.NewEventSerializer()
	event.RegisterProcurementEvents(eventSerializer)
	outboxPublisher := event.NewOutboxPublisher(eventSerializer, cfg.Event.MaxRetries)

	orderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	vendorRepo := persistence.NewGormVendorRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	orderRepo.SetOutboxEventSaver(outboxPublisher)
	invoiceRepo.SetOutboxEventSaver(outboxPublisher)
	vendorRepo.SetOutboxEventSaver(outboxPublisher)

	sequence, err := numberSequence(cfg.Numbering, db, stores)
	if err != nil {
		log.Fatal("Failed to initialize document numbering", zap.Error(err))
	}
	numbering := procurement.NewNumberingAuthority(sequence)
	log.Info("Document numbering ready", zap.String("backend", cfg.Numbering.Backend))

	// Application services
	defaults := procurementapp.Defaults{
		ApprovalThreshold: cfg.Procurement.ApprovalThreshold,
		Currency:          cfg.Procurement.Currency,
		PaymentTerms:      cfg.Procurement.PaymentTerms,
		NumberingAttempts: cfg.Numbering.MaxAttempts,
	}
	orderService := procurementapp.NewPurchaseOrderService(orderRepo, vendorRepo, invoiceRepo, numbering, defaults, log)
	invoiceService := procurementapp.NewInvoiceService(invoiceRepo, orderRepo, numbering, defaults, log)
	vendorService := procurementapp.NewVendorService(vendorRepo, log)
	trustScoreService := procurementapp.NewTrustScoreService(vendorRepo, orderRepo, cfg.Trust.InvoiceAccuracy, log)
	dashboardService := procurementapp.NewDashboardService(orderRepo, invoiceRepo, vendorRepo, log)

	metrics, err := telemetry.NewProcurementMetrics(providers.metrics.Meter("procurement"))
	if err != nil {
		log.Warn("Procurement metrics disabled", zap.Error(err))
	} else {
		orderService.SetMetrics(metrics)
		invoiceService.SetMetrics(metrics)
		trustScoreService.SetMetrics(metrics)
	}

	// Event bus: every handler is idempotent because the outbox delivers at least once
	idempotencyStore, err := stores.IdempotencyStore()
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()
	idempotency := shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}

	eventBus := event.NewInMemoryEventBus(log)
	trustScoreHandler := event.NewIdempotentHandler("trust-score",
		procurementapp.NewTrustScoreHandler(trustScoreService, log), idempotencyStore, idempotency, log)
	eventBus.Subscribe(trustScoreHandler)

	if cfg.Kafka.Enabled {
		forwarder := messaging.NewKafkaEventForwarder(messaging.NewKafkaWriter(cfg.Kafka), log)
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Error("Error closing kafka writer", zap.Error(err))
			}
		}()
		eventBus.Subscribe(event.NewIdempotentHandler("kafka-forwarder", forwarder, idempotencyStore, idempotency, log))
		log.Info("Kafka forwarding enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}
	log.Info("Event handlers registered",
		zap.Strings("trust_score_events", trustScoreHandler.EventTypes()),
		zap.Strings("serializable_events", eventSerializer.RegisteredTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Event.ProcessorEnabled {
		processorConfig := event.DefaultOutboxProcessorConfig()
		processorConfig.Workers = cfg.Event.Workers
		processorConfig.BatchSize = cfg.Event.BatchSize
		processorConfig.PollInterval = cfg.Event.PollInterval
		processorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		processorConfig.CleanupRetention = cfg.Event.CleanupRetention

		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorConfig, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("workers", processorConfig.Workers),
			zap.Int("batch_size", processorConfig.BatchSize),
			zap.Duration("poll_interval", processorConfig.PollInterval),
		)
	}

	if cfg.Scheduler.Enabled {
		hour, minute, err := scheduler.ParseCronSchedule(cfg.Scheduler.Cron)
		if err != nil {
			log.Fatal("Invalid scheduler.cron", zap.Error(err))
		}
		jobs := scheduler.NewScheduler(scheduler.SchedulerConfig{
			Enabled:           true,
			MaxConcurrentJobs: 1,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, log)
		jobs.Register(scheduler.JobTypeOverdueInvoiceSweep, scheduler.NewOverdueSweepExecutor(invoiceService))
		if err := jobs.Start(ctx); err != nil {
			log.Fatal("Failed to start maintenance scheduler", zap.Error(err))
		}
		trigger := scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			Hour:          hour,
			Minute:        minute,
			CheckInterval: cfg.Scheduler.CheckInterval,
			JobTypes:      []scheduler.JobType{scheduler.JobTypeOverdueInvoiceSweep},
		}, jobs, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping cron trigger", zap.Error(err))
			}
			if err := jobs.Stop(stopCtx); err != nil {
				log.Error("Error stopping maintenance scheduler", zap.Error(err))
			}
		}()
	}

	// HTTP handlers
	healthChecks := []handler.HealthCheck{{
		Name:  "database",
		Check: func(ctx context.Context) error { return db.PingContext(ctx) },
	}}
	if redisClient != nil {
		healthChecks = append(healthChecks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	handlers := router.Handlers{
		PurchaseOrders: handler.NewPurchaseOrderHandler(orderService),
		Invoices:       handler.NewInvoiceHandler(invoiceService),
		Vendors:        handler.NewVendorHandler(vendorService, dashboardService, trustScoreService, invoiceService),
		System:         handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, healthChecks...),
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: request id and principal first so logs and spans carry them
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Principal())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", handlers.System.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterProcurementRoutes(r, handlers)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// numberSequence picks the document counter backend
func numberSequence(cfg config.NumberingConfig, db *persistence.Database, stores *cache.StoreFactory) (procurement.NumberSequence, error) {
	if cfg.Backend == "redis" {
		return stores.NumberSequence()
	}
	return persistence.NewCounterRepository(db.DB), nil
}
