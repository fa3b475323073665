package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/relaymart-backend/api/controllers"
	drivercontrollers "github.com/angelmondragon/relaymart-backend/api/controllers/drivers"
	ordercontrollers "github.com/angelmondragon/relaymart-backend/api/controllers/orders"
	payoutcontrollers "github.com/angelmondragon/relaymart-backend/api/controllers/payouts"
	"github.com/angelmondragon/relaymart-backend/api/middleware"
	"github.com/angelmondragon/relaymart-backend/internal/drivers"
	"github.com/angelmondragon/relaymart-backend/internal/orders"
	"github.com/angelmondragon/relaymart-backend/internal/payouts"
	"github.com/angelmondragon/relaymart-backend/internal/settlement"
	"github.com/angelmondragon/relaymart-backend/pkg/config"
	"github.com/angelmondragon/relaymart-backend/pkg/db"
	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	"github.com/angelmondragon/relaymart-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/relaymart-backend/pkg/redis"
)

// Deps carries everything the HTTP surface calls into.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       db.Pinger
	Idempotency pkgredis.IdempotencyStore
	Attempts    pkgredis.AttemptStore
	Gatherer    prometheus.Gatherer

	Orders     orders.Service
	Coupons    ordercontrollers.CouponValidator
	Drivers    drivers.Service
	Payouts    payouts.Service
	Settlement settlement.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	ready := []controllers.Dependency{}
	if deps.DB != nil {
		ready = append(ready, controllers.Dependency{Name: "database", Pinger: deps.DB})
	}
	if deps.Redis != nil {
		ready = append(ready, controllers.Dependency{Name: "redis", Pinger: deps.Redis})
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready...))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, cfg.Redis.IdempotencyTTL, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCustomer))
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.Create(deps.Orders, logg))
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			})
			r.Post("/coupons/validate", ordercontrollers.ValidateCoupon(deps.Coupons, logg))
		})

		verifyLimit := middleware.AttemptLimit(middleware.NewAttemptLimitPolicy(
			"verify_code",
			cfg.AttemptLimit.VerifyCodeWindow,
			cfg.AttemptLimit.VerifyCodeLimit,
			"orderId",
		), deps.Attempts, logg)

		r.Route("/driver", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleDriver))
			r.Put("/availability", drivercontrollers.SetAvailability(deps.Drivers, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", drivercontrollers.Orders(deps.Orders, logg))
				r.Post("/{orderId}/accept", drivercontrollers.Accept(deps.Orders, logg))
				r.Post("/{orderId}/pickup", drivercontrollers.PickUp(deps.Orders, logg))
				r.With(verifyLimit).Post("/{orderId}/verify-code", drivercontrollers.VerifyCode(deps.Orders, logg))
				r.Post("/{orderId}/deliver", drivercontrollers.Deliver(deps.Orders, logg))
			})
			r.Get("/wallet", drivercontrollers.Wallet(deps.Drivers, logg))
			r.Get("/earnings", drivercontrollers.Earnings(deps.Drivers, logg))
			r.Route("/withdrawals", func(r chi.Router) {
				r.Post("/", drivercontrollers.RequestWithdraw(deps.Drivers, logg))
				r.Get("/", drivercontrollers.Withdrawals(deps.Drivers, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
		r.Use(middleware.Idempotency(deps.Idempotency, cfg.Redis.IdempotencyTTL, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			r.Post("/{orderId}/payment", ordercontrollers.RecordPayment(deps.Orders, logg))
		})
		r.Route("/payouts", func(r chi.Router) {
			r.Post("/", payoutcontrollers.CreateBatch(deps.Payouts, logg))
			r.Get("/", payoutcontrollers.ListBatches(deps.Payouts, logg))
			r.Get("/{batchId}", payoutcontrollers.GetBatch(deps.Payouts, logg))
			r.Post("/{batchId}/paid", payoutcontrollers.MarkPaid(deps.Payouts, logg))
			r.Post("/{batchId}/status", payoutcontrollers.UpdateStatus(deps.Payouts, logg))
		})
		r.Get("/seller-payouts", payoutcontrollers.SellerPayouts(deps.Settlement, logg))
		r.Get("/promotor-payouts", payoutcontrollers.PromotorPayouts(deps.Settlement, logg))
		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", payoutcontrollers.Withdrawals(deps.Drivers, logg))
			r.Post("/{withdrawId}/status", payoutcontrollers.UpdateWithdrawStatus(deps.Drivers, logg))
		})
	})

	return r
}
