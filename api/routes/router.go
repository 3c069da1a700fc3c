package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dialadrink/backend/api/controllers"
	"github.com/dialadrink/backend/api/middleware"
	authsvc "github.com/dialadrink/backend/internal/auth"
	"github.com/dialadrink/backend/internal/ledger"
	"github.com/dialadrink/backend/internal/orders"
	"github.com/dialadrink/backend/internal/payments"
	"github.com/dialadrink/backend/internal/settlement"
	"github.com/dialadrink/backend/internal/wallets"
	"github.com/dialadrink/backend/pkg/config"
	"github.com/dialadrink/backend/pkg/db"
	"github.com/dialadrink/backend/pkg/logger"
	"github.com/dialadrink/backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DBPinger    db.Pinger
	RedisPinger redis.Pinger

	AuthService       authsvc.Service
	OrdersService     orders.Service
	PaymentsService   payments.Service
	SettlementService settlement.Service
	Notifier          settlement.Notifier
	WalletsRepo       wallets.Repository
	LedgerRepo        ledger.Repository

	MetricsRegistry *prometheus.Registry
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

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
	})

	if deps.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(deps.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Get("/", controllers.OrderGet(deps.OrdersService, logg))
			r.Patch("/status", controllers.OrderStatusUpdate(deps.OrdersService, logg))
			r.Patch("/payment-status", controllers.OrderPaymentStatusUpdate(deps.OrdersService, logg))
		})

		r.Route("/payments/{orderID}", func(r chi.Router) {
			r.Post("/verify", controllers.PaymentVerify(deps.PaymentsService, logg))
			r.Post("/settle", controllers.SettlementTrigger(deps.SettlementService, deps.Notifier, logg))
			r.Get("/settlement", controllers.SettlementView(deps.OrdersService, deps.LedgerRepo, logg))
		})

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/merchant", controllers.MerchantWalletGet(deps.WalletsRepo, logg))
			r.Get("/drivers/{driverID}", controllers.DriverWalletGet(deps.WalletsRepo, logg))
		})
	})

	return r
}
