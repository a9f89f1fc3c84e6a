package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pawmed/billing-service/internal/api/rest"
	"github.com/pawmed/billing-service/internal/api/rest/handlers"
	"github.com/pawmed/billing-service/internal/config"
	"github.com/pawmed/billing-service/internal/kafka"
	"github.com/pawmed/billing-service/internal/metrics"
	"github.com/pawmed/billing-service/internal/middleware"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/internal/repository/postgres"
	"github.com/pawmed/billing-service/internal/service"
	"github.com/pawmed/billing-service/internal/stripe"
	"github.com/pawmed/billing-service/pkg/logger"
)

// App wires configuration, storage, gateway and transport together.
type App struct {
	Server *rest.Server

	cfg       *config.Config
	log       *logger.Logger
	pool      *pgxpool.Pool
	catalogDB *sqlx.DB
	cache     *repository.RedisCacheRepository
	producer  kafka.Producer
}

// NewApp builds the full application. Postgres is required; Redis and Kafka
// degrade to local behavior when unavailable.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	pool, err := postgres.NewConnection(ctx, cfg.Database.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool, "migrations", log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	catalogDB, err := postgres.NewCatalogConnection(cfg.Database.DSN, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("catalog connection: %w", err)
	}

	userRepo := postgres.NewPostgresUserRepository(pool, log)
	txRepo := postgres.NewPostgresTransactionRepository(pool, log)
	subRepo := postgres.NewPostgresSubscriptionRepository(pool, log)
	cardRepo := postgres.NewPostgresCardRepository(pool, log)

	var catalogRepo repository.CatalogRepository = postgres.NewSqlxCatalogRepository(catalogDB, log)

	var cache *repository.RedisCacheRepository
	if cfg.Redis.Addr != "" {
		cache, err = repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Warnw("Redis unavailable, catalog reads go straight to Postgres", "error", err)
			cache = nil
		} else {
			catalogRepo = repository.NewCachedCatalogRepository(catalogRepo, cache, log)
		}
	}

	var producer kafka.Producer = kafka.NopProducer{}
	if len(cfg.Kafka.Brokers) > 0 {
		if err := kafka.EnsureKafkaTopics(cfg.Kafka.Brokers, log); err != nil {
			log.Warnw("Kafka topic setup failed, continuing without event publishing", "error", err)
		} else if p, err := kafka.NewKafkaProducer(cfg.Kafka.Brokers, log); err != nil {
			log.Warnw("Kafka producer init failed, continuing without event publishing", "error", err)
		} else {
			producer = p
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	billingMetrics := metrics.NewBillingMetrics(registry, log)

	gateway := stripe.NewStripeClient(cfg.Stripe.APIKey, log)

	catalogSvc := service.NewCatalogService(catalogRepo, log)
	checkoutSvc := service.NewCheckoutService(userRepo, catalogSvc, gateway, billingMetrics, log)
	reconcileSvc := service.NewReconcileService(userRepo, txRepo, subRepo, catalogSvc, gateway, producer, billingMetrics, log)
	cardSvc := service.NewCardService(cardRepo, log)
	renewalSvc := service.NewRenewalService(userRepo, producer, log)
	txSvc := service.NewTransactionService(txRepo, log)

	auth := middleware.NewJWTMiddleware(log, &middleware.DefaultTokenValidator{
		Secret: []byte(cfg.Auth.JWTSecret),
	})

	router := rest.SetupRouter(rest.Handlers{
		Payment: handlers.NewPaymentHandler(checkoutSvc, reconcileSvc, txSvc, log),
		Card:    handlers.NewCardHandler(cardSvc, log),
		Renewal: handlers.NewRenewalHandler(renewalSvc, log),
		Catalog: handlers.NewCatalogHandler(catalogSvc, log),
	}, auth, registry, log)

	return &App{
		Server:    rest.NewServer(router, cfg, log),
		cfg:       cfg,
		log:       log,
		pool:      pool,
		catalogDB: catalogDB,
		cache:     cache,
		producer:  producer,
	}, nil
}

// Close releases every connection the app holds.
func (a *App) Close() {
	if err := a.producer.Close(); err != nil {
		a.log.Errorw("Error closing Kafka producer", "error", err)
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Errorw("Error closing Redis connection", "error", err)
		}
	}
	a.catalogDB.Close()
	a.pool.Close()
}
