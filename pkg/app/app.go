package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/platinummonkey/clientbill/pkg/analytics"
	"github.com/platinummonkey/clientbill/pkg/api"
	"github.com/platinummonkey/clientbill/pkg/automation"
	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/clients"
	"github.com/platinummonkey/clientbill/pkg/config"
	"github.com/platinummonkey/clientbill/pkg/costs"
	"github.com/platinummonkey/clientbill/pkg/dashboard"
	"github.com/platinummonkey/clientbill/pkg/finance"
	"github.com/platinummonkey/clientbill/pkg/httputil"
	"github.com/platinummonkey/clientbill/pkg/middleware"
	"github.com/platinummonkey/clientbill/pkg/notifications"
	"github.com/platinummonkey/clientbill/pkg/observability"
	"github.com/platinummonkey/clientbill/pkg/orgs"
	"github.com/platinummonkey/clientbill/pkg/payments"
	"github.com/platinummonkey/clientbill/pkg/storage"
	"github.com/platinummonkey/clientbill/pkg/storage/postgres"
)

// Deps are the shared connections the services are built on
type Deps struct {
	Primary *sql.DB
	// Replica serves report queries; defaults to Primary
	Replica *sql.DB
	Redis   *redis.Client
	Metrics *observability.Metrics
	Logger  *observability.Logger
}

// Components are the wired services
type Components struct {
	Services   api.Services
	Automation *automation.Service
	Dispatcher *notifications.Dispatcher
	// RateLimiter is nil when rate limiting is disabled
	RateLimiter middleware.Limiter
}

// Wire builds every domain service. The dispatcher's workers live until ctx ends or Dispatcher.Shutdown.
func Wire(ctx context.Context, cfg *config.Config, deps Deps) *Components {
	if deps.Replica == nil {
		deps.Replica = deps.Primary
	}
	if deps.Logger == nil {
		deps.Logger = observability.NewNopLogger()
	}
	db := deps.Primary

	orgService := orgs.NewPostgresService(db)
	clientService := clients.NewPostgresService(db)

	email, whatsapp := notifications.NewChannels(notifications.ChannelConfig{
		ResendAPIKey:  cfg.Notifications.ResendAPIKey,
		ResendBaseURL: cfg.Notifications.ResendBaseURL,
		EmailFrom:     cfg.Notifications.EmailFrom,
		WhatsAppURL:   cfg.Notifications.WhatsAppURL,
		WhatsAppToken: cfg.Notifications.WhatsAppToken,
	})
	retry := notifications.DefaultRetryConfig()
	if cfg.Notifications.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Notifications.MaxAttempts
	}
	if cfg.Notifications.InitialBackoff > 0 {
		retry.InitialDelay = cfg.Notifications.InitialBackoff
	}
	dispatcher := notifications.NewDispatcher(ctx, clientService, notifications.DispatcherOptions{
		Email:    email,
		WhatsApp: whatsapp,
		Retry:    retry,
		Metrics:  deps.Metrics,
		Logger:   deps.Logger,
	})

	var sender notifications.Sender
	if dispatcher.Enabled() {
		sender = dispatcher
	} else {
		deps.Logger.Info("no notification channel configured, notifications stay in-app")
	}
	notificationService := notifications.NewPostgresService(db, sender, deps.Logger)

	tolerance := decimal.NewFromFloat(cfg.Billing.PaymentTolerance)
	billingService := billing.NewPostgresService(db, clientService, notificationService, billing.Options{
		Currency:  cfg.Billing.Currency,
		Metrics:   deps.Metrics,
		Logger:    deps.Logger,
		Tolerance: tolerance,
	})
	paymentService := payments.NewPostgresService(db, billingService, clientService, notificationService, payments.Options{
		Tolerance: tolerance,
		BatchSize: cfg.Billing.InstallmentBatchSize,
		Metrics:   deps.Metrics,
		Logger:    deps.Logger,
	})
	costService := costs.NewPostgresService(db, clientService, deps.Metrics, deps.Logger)

	analyticsService := analytics.NewPostgresService(deps.Replica, analytics.Options{
		Cache:   analytics.NewCache(deps.Redis, cfg.Cache.LRUSize, cfg.Cache.ReportTTL),
		Metrics: deps.Metrics,
		Logger:  deps.Logger,
	})

	automationService := automation.NewService(orgService, billingService, paymentService, costService,
		notificationService, automation.Options{
			Metrics: deps.Metrics,
			Logger:  deps.Logger,
		})

	var limiter middleware.Limiter
	if cfg.Server.RateLimitPerMinute > 0 {
		limitConfig := middleware.RateLimitConfig{
			RequestsPerWindow: cfg.Server.RateLimitPerMinute,
			WindowDuration:    time.Minute,
			BurstSize:         cfg.Server.RateLimitBurst,
		}
		limiter = middleware.NewLimiter(deps.Redis, limitConfig)
		if memory, ok := limiter.(*middleware.MemoryLimiter); ok {
			memory.StartCleanup(ctx)
		}
	}

	return &Components{
		Services: api.Services{
			Orgs:          orgService,
			Clients:       clientService,
			Billing:       billingService,
			Payments:      paymentService,
			Costs:         costService,
			Finance:       finance.NewPostgresService(db),
			Notifications: notificationService,
			Analytics:     analyticsService,
			Dashboard:     dashboard.NewPostgresService(db),
			Automation:    automationService,
		},
		Automation:  automationService,
		Dispatcher:  dispatcher,
		RateLimiter: limiter,
	}
}

// Storage holds the opened connections
type Storage struct {
	DB    *postgres.ConnectionManager
	Redis *redis.Client
}

// OpenStorage connects to PostgreSQL, applies migrations when enabled and
// connects to Redis when a URL is configured.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Storage, error) {
	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		PrimaryURL:  cfg.Database.URL,
		ReplicaURLs: cfg.Database.ReplicaURLs,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.ConnMaxLifetime,
		MaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.MigrateOnStart {
		if err := postgres.RunMigrations(ctx, cm.Primary(), logger); err != nil {
			cm.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	s := &Storage{DB: cm}
	if cfg.Redis.URL == "" {
		logger.Info("redis not configured, reports use the in-process cache")
		return s, nil
	}

	client, err := storage.NewRedisClient(ctx, storage.RedisOptions{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		// reports still work without the shared cache
		logger.WithError(err).Warn("redis unavailable, reports use the in-process cache")
		return s, nil
	}
	s.Redis = client
	return s, nil
}

// Close releases the connections
func (s *Storage) Close() error {
	if s.Redis != nil {
		s.Redis.Close()
	}
	return s.DB.Close()
}

// NewMetrics returns the registry-backed metrics with Go runtime collectors, or nil when disabled
func NewMetrics(cfg *config.Config) *observability.Metrics {
	if !cfg.Observability.MetricsEnabled {
		return nil
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return observability.NewMetrics(registry)
}

// NewHandler builds the API router wrapped in the server middleware chain
func NewHandler(cfg *config.Config, components *Components, health *observability.HealthChecker,
	metrics *observability.Metrics, logger *observability.Logger) http.Handler {

	if logger == nil {
		logger = observability.NewNopLogger()
	}
	router := api.NewRouter(components.Services, api.RouterOptions{
		Health:      health,
		Metrics:     metrics,
		RateLimiter: components.RateLimiter,
	})

	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(cfg.Server.AllowedOrigins),
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes),
		httputil.TimeoutMiddleware(cfg.Server.RequestTimeout),
	)
	return observability.TraceHandler(chain(router), "clientbill")
}

// StartDBStatsReporter publishes pool statistics every interval until ctx ends
func StartDBStatsReporter(ctx context.Context, metrics *observability.Metrics, db *sql.DB, interval time.Duration) {
	if metrics == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateDBStats(db)
			}
		}
	}()
}
