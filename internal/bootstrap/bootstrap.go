package bootstrap

import (
	"context"
	"errors"
	"fmt"

	appfulfillment "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/fulfillment"
	appinventory "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/payment"
	domfulfillment "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/config"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/kafkasink"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/payment/gateway"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/redisstore"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/sqlstore"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	httppresentation "github.com/Zhima-Mochi/minishop-fulfillment/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-fulfillment/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the fully wired service.
type App struct {
	Handler      *httppresentation.Handler
	Orchestrator *appfulfillment.Orchestrator
	Inventory    *appinventory.Service
	Bus          *outbox.Bus
	Telemetry    observability.Observability

	closers []func(context.Context) error
}

// New wires storage, services, workers and HTTP from cfg. Metrics are registered
// on reg and served from it.
func New(ctx context.Context, cfg *config.Config, base *zap.Logger, reg *prometheus.Registry) (_ *App, err error) {
	app := &App{}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	shutdownTracing, err := oteltrace.Setup(ctx, oteltrace.Config{
		Enabled:       cfg.Telemetry.Enabled,
		Endpoint:      cfg.Telemetry.Endpoint,
		Insecure:      cfg.Telemetry.Insecure,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
		ServiceName:   cfg.App.Name,
		Version:       cfg.App.Version,
	})
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, shutdownTracing)

	counters, histograms := prometrics.Standard(prometrics.New("", "", reg))
	tracer := oteltrace.New(cfg.App.Name,
		attribute.String("deployment.environment", cfg.App.Env),
		attribute.String("fulfillment.storage", cfg.Storage.Driver),
	)
	tel := infraobs.New(tracer, zaplogger.New(base), counters, histograms).
		WithLogger(observability.F("version", cfg.App.Version))
	app.Telemetry = tel

	stores, err := openStores(ctx, cfg, app)
	if err != nil {
		return nil, err
	}

	bus := outbox.NewBus(outbox.Config{
		QueueSize:      cfg.Bus.QueueSize,
		Concurrency:    cfg.Bus.Concurrency,
		HandlerTimeout: cfg.Bus.HandlerTimeout,
	}, tel)
	app.Bus = bus

	ids := id.NewUUIDGenerator()
	inventory := appinventory.NewService(stores.inventory, tel)
	payments := apppayment.NewService(stores.payments, buildGateway(cfg.Payment), ids, tel)
	orders := apporder.NewService(stores.orders, ids, tel)
	orchestrator := appfulfillment.NewOrchestrator(inventory, payments, orders, ids, bus, tel)
	audit := appfulfillment.NewAudit(stores.attempts, tel)

	app.Inventory = inventory
	app.Orchestrator = orchestrator

	workerpresentation.NewAuditWorker(bus, audit, tel).Start()

	if cfg.Kafka.Enabled {
		writer := kafkasink.NewWriter(kafkasink.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		sink := kafkasink.New(writer, cfg.Kafka.Topic, tel)
		sink.Start(bus)
		app.closers = append(app.closers, func(context.Context) error { return sink.Close() })
	}

	levels, err := cfg.Inventory.Levels()
	if err != nil {
		return nil, err
	}
	if err := inventory.Seed(ctx, levels); err != nil {
		return nil, err
	}

	bus.Start(ctx)
	app.closers = append(app.closers, func(ctx context.Context) error {
		bus.Stop(ctx)
		return nil
	})

	app.Handler = httppresentation.NewHandler(cfg.App.Name, httppresentation.Deps{
		Fulfiller: orchestrator,
		Orders:    orders,
		Payments:  payments,
		Attempts:  audit,
		Inventory: inventory,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}, tel)

	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type stores struct {
	inventory dominv.Repository
	orders    domorder.Repository
	payments  dompay.Repository
	attempts  domfulfillment.AttemptRepository
}

func openStores(ctx context.Context, cfg *config.Config, app *App) (*stores, error) {
	var s stores
	switch cfg.Storage.Driver {
	case "memory":
		s = stores{
			inventory: memory.NewInventoryRepository(),
			orders:    memory.NewOrderRepository(),
			payments:  memory.NewPaymentRepository(),
			attempts:  memory.NewAttemptRepository(),
		}
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		db, err := openSQL(cfg)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return sqlstore.Close(db) })
		s = stores{
			inventory: sqlstore.NewInventoryRepository(db),
			orders:    sqlstore.NewOrderRepository(db),
			payments:  sqlstore.NewPaymentRepository(db),
			attempts:  sqlstore.NewAttemptRepository(db),
		}
	default:
		return nil, fmt.Errorf("bootstrap: unsupported storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Inventory.Backend == "redis" {
		client, err := redisstore.NewClient(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		s.inventory = redisstore.NewInventoryRepository(client, cfg.Redis.KeyPrefix)
	}
	return &s, nil
}

func openSQL(cfg *config.Config) (*gorm.DB, error) {
	db, err := sqlstore.Open(sqlstore.Config{
		Driver:  cfg.Storage.Driver,
		DSN:     cfg.Storage.DSN(),
		Tracing: cfg.Telemetry.DBTracing,
	})
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Migrate(db); err != nil {
		_ = sqlstore.Close(db)
		return nil, err
	}
	return db, nil
}

func buildGateway(cfg config.PaymentConfig) dompay.Gateway {
	var gw dompay.Gateway = gateway.AlwaysApprove{}
	if cfg.Gateway == "simulated" {
		gw = gateway.NewSimulated(cfg.SuccessRate, cfg.Seed)
	}
	if cfg.Breaker.Enabled {
		gw = gateway.NewBreaker(gw, cfg.Breaker.MaxFailures, cfg.Breaker.OpenTimeout)
	}
	return gw
}
