package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ajoedv/fotolio/internal/auth"
	"github.com/ajoedv/fotolio/internal/config"
	"github.com/ajoedv/fotolio/internal/event"
	handler "github.com/ajoedv/fotolio/internal/handler/http"
	"github.com/ajoedv/fotolio/internal/migrations"
	"github.com/ajoedv/fotolio/internal/provider"
	"github.com/ajoedv/fotolio/internal/provider/mock"
	"github.com/ajoedv/fotolio/internal/provider/stripe"
	"github.com/ajoedv/fotolio/internal/repository/postgres"
	redisrepo "github.com/ajoedv/fotolio/internal/repository/redis"
	"github.com/ajoedv/fotolio/internal/service"
	"github.com/ajoedv/fotolio/pkg/database"
	"github.com/ajoedv/fotolio/pkg/health"
	"github.com/ajoedv/fotolio/pkg/httpclient"
	pkgkafka "github.com/ajoedv/fotolio/pkg/kafka"
	"github.com/ajoedv/fotolio/pkg/tracing"
)

// App wires together all dependencies and runs the shop service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "shop",
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "shop")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Redis for checkout sessions.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Repositories.
	cartRepo := postgres.NewCartRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool, cfg.OrderNumberPrefix)
	sessionRepo := redisrepo.NewSessionRepository(redisClient, cfg.SessionTTL())

	eventProducer := event.NewProducer(producer, logger)
	paymentProvider := newPaymentProvider(cfg, logger)

	// Services.
	cartService := service.NewCartService(cartRepo, productRepo, cfg.VAT(), logger)
	checkoutService := service.NewCheckoutService(cartRepo, sessionRepo, profileRepo, cfg.VAT(), logger)
	orderService := service.NewOrderService(orderRepo, eventProducer, logger)
	paymentService := service.NewPaymentService(
		orderService, cartRepo, sessionRepo, paymentProvider,
		cfg.VAT(), cfg.PaymentCurrency, cfg.PaymentPublicKey, logger,
	)
	settlementService := service.NewSettlementService(
		orderRepo, cartRepo, sessionRepo, paymentProvider, eventProducer, logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Cart:          cartService,
		Checkout:      checkoutService,
		Payment:       paymentService,
		Settlement:    settlementService,
		Orders:        orderService,
		Health:        healthHandler,
		TokenValidate: auth.NewJWTValidator(cfg.JWTSecret).Validate,
		PaymentRPS:    cfg.PaymentRateRPS,
		PaymentBurst:  cfg.PaymentRateBurst,
		Logger:        logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newPaymentProvider selects the payment processor client. With credentials
// configured the real processor is used; in development without credentials
// an in-memory auto-succeeding processor keeps the flow testable; otherwise
// payment processing is disabled.
func newPaymentProvider(cfg *config.Config, logger *slog.Logger) provider.Provider {
	if cfg.PaymentEnabled() {
		baseClient := httpclient.New(httpclient.Config{
			Timeout:         10 * time.Second,
			MaxRetries:      3,
			RetryWaitMin:    500 * time.Millisecond,
			RetryWaitMax:    5 * time.Second,
			MaxConnsPerHost: 100,
		})
		cbClient := httpclient.NewCircuitBreakerClient(
			baseClient,
			httpclient.DefaultCircuitBreakerConfig("payment-processor"),
			logger,
		)
		return stripe.New(stripe.Config{
			SecretKey:  cfg.PaymentSecretKey,
			APIBaseURL: cfg.PaymentAPIBaseURL,
		}, cbClient, logger)
	}

	if cfg.Environment == "development" {
		logger.Warn("payment credentials absent, using in-memory payment provider")
		return mock.NewProvider()
	}

	logger.Warn("payment credentials absent, payment processing disabled")
	return nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: the HTTP server drains first,
// then the tracer flushes spans from the drained requests, then the
// messaging and storage clients close.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
