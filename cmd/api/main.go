package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/relaymart-backend/api/routes"
	"github.com/angelmondragon/relaymart-backend/internal/catalog"
	"github.com/angelmondragon/relaymart-backend/internal/commission"
	"github.com/angelmondragon/relaymart-backend/internal/coupons"
	"github.com/angelmondragon/relaymart-backend/internal/drivers"
	"github.com/angelmondragon/relaymart-backend/internal/orders"
	"github.com/angelmondragon/relaymart-backend/internal/payouts"
	"github.com/angelmondragon/relaymart-backend/internal/settlement"
	"github.com/angelmondragon/relaymart-backend/internal/wallets"
	"github.com/angelmondragon/relaymart-backend/pkg/config"
	"github.com/angelmondragon/relaymart-backend/pkg/db"
	"github.com/angelmondragon/relaymart-backend/pkg/env"
	"github.com/angelmondragon/relaymart-backend/pkg/instance"
	"github.com/angelmondragon/relaymart-backend/pkg/logger"
	"github.com/angelmondragon/relaymart-backend/pkg/metrics"
	"github.com/angelmondragon/relaymart-backend/pkg/migrate"
	"github.com/angelmondragon/relaymart-backend/pkg/outbox"
	"github.com/angelmondragon/relaymart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	deps, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.DB = dbClient
	deps.Redis = redisClient
	deps.Idempotency = redisClient
	deps.Attempts = redisClient
	deps.Gatherer = prometheus.DefaultGatherer

	port := env.Get("PORT", cfg.App.Port)
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID("local"),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Deps, error) {
	conn := dbClient.DB()
	m := metrics.NewSettlement(prometheus.DefaultRegisterer)
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	catalogRepo := catalog.NewRepository(conn)
	driverRepo := drivers.NewRepository(conn)

	settler, err := settlement.NewService(settlement.NewRepository(conn), catalogRepo, settlement.Config{
		Rates: commission.Rates{
			PlatformFee: cfg.Settlement.PlatformFeeRate,
			GST:         cfg.Settlement.GSTRate,
			TDS:         cfg.Settlement.TDSRate,
		},
		PlatformState: cfg.Settlement.PlatformState,
	}, logg)
	if err != nil {
		return routes.Deps{}, err
	}

	driverSvc, err := drivers.NewService(driverRepo, dbClient, events, drivers.Config{
		DeliveryFeePaise:       cfg.Settlement.DeliveryFeePaise,
		MinimumWithdrawalPaise: cfg.Settlement.MinimumWithdrawalPaise,
	}, logg, m)
	if err != nil {
		return routes.Deps{}, err
	}

	couponSvc, err := coupons.NewService(coupons.NewRepository(conn), logg)
	if err != nil {
		return routes.Deps{}, err
	}

	orderSvc, err := orders.NewService(orders.Deps{
		Repo:     orders.NewRepository(conn),
		Tx:       dbClient,
		Outbox:   events,
		Catalog:  catalogRepo,
		Wallets:  wallets.NewRepository(conn),
		Coupons:  couponSvc,
		Drivers:  driverRepo,
		Earnings: driverSvc,
		Settler:  settler,
		Logger:   logg,
		Metrics:  m,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	payoutSvc, err := payouts.NewService(
		payouts.NewRepository(conn),
		dbClient,
		events,
		logg,
		m,
		payouts.SellerLedger(),
		payouts.PromotorLedger(),
		payouts.DriverLedger(),
	)
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Orders:     orderSvc,
		Coupons:    couponSvc,
		Drivers:    driverSvc,
		Payouts:    payoutSvc,
		Settlement: settler,
	}, nil
}
