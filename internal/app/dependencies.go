package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/checkout/internal/health"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
	"github.com/vladislavdragonenkov/checkout/internal/storage/postgres"
)

// runtimeDependencies содержит все хранилища приложения, собранные под
// выбранный storage driver.
type runtimeDependencies struct {
	customers domain.CustomerLookup
	catalog   domain.ProductCatalog
	stock     domain.ProductStock

	repo            domain.OrderRepository
	outboxRepo      domain.OutboxRepository
	timelineRepo    domain.TimelineRepository
	idempotencyRepo domain.IdempotencyRepository

	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies создаёт зависимости согласно cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		return initMemoryDependencies(logger), nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}

func initMemoryDependencies(logger *log.Entry) *runtimeDependencies {
	customers := memory.NewCustomerRepository()
	products := memory.NewProductRepository()
	seedDemoCatalog(customers, products)

	logger.Info("using in-memory storage with demo catalog")

	return &runtimeDependencies{
		customers:       customers,
		catalog:         products,
		stock:           products,
		repo:            memory.NewOrderRepository(),
		outboxRepo:      memory.NewOutboxRepository(),
		timelineRepo:    memory.NewTimelineRepository(),
		idempotencyRepo: memory.NewIdempotencyRepository(),
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres storage driver requires a DSN")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}

	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
	}

	logger.Info("using postgres storage")

	products := postgres.NewProductRepository(store)

	checker := healthcheck.NewSimpleChecker("postgres", func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return store.Ping(pingCtx)
	})

	return &runtimeDependencies{
		customers:       postgres.NewCustomerRepository(store),
		catalog:         products,
		stock:           products,
		repo:            postgres.NewOrderRepository(store),
		outboxRepo:      postgres.NewOutboxRepository(store),
		timelineRepo:    postgres.NewTimelineRepository(store),
		idempotencyRepo: postgres.NewIdempotencyRepository(store),
		storageChecker:  checker,
		closeFn:         store.Close,
	}, nil
}

type customerSeeder interface {
	Seed(customer domain.Customer)
}

type productSeeder interface {
	Seed(product domain.Product)
}

// seedDemoCatalog наполняет память демо-данными, чтобы API можно было
// попробовать без внешних миграций.
func seedDemoCatalog(customers customerSeeder, products productSeeder) {
	now := time.Now().UTC()

	customers.Seed(domain.Customer{ID: "cust-demo", Name: "Demo Customer"})
	customers.Seed(domain.Customer{ID: "cust-acme", Name: "ACME Corp"})

	products.Seed(domain.Product{ID: "prod-keyboard", Name: "Mechanical Keyboard", PriceMinor: 12900, Quantity: 25, UpdatedAt: now})
	products.Seed(domain.Product{ID: "prod-mouse", Name: "Wireless Mouse", PriceMinor: 4900, Quantity: 40, UpdatedAt: now})
	products.Seed(domain.Product{ID: "prod-monitor", Name: "27in Monitor", PriceMinor: 32900, Quantity: 10, UpdatedAt: now})
}
