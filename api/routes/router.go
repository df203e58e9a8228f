package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockroomhq/stockroom-backend/api/controllers"
	"github.com/stockroomhq/stockroom-backend/api/middleware"
	authsvc "github.com/stockroomhq/stockroom-backend/internal/auth"
	historysvc "github.com/stockroomhq/stockroom-backend/internal/history"
	reportsvc "github.com/stockroomhq/stockroom-backend/internal/reports"
	stocksvc "github.com/stockroomhq/stockroom-backend/internal/stock"
	"github.com/stockroomhq/stockroom-backend/pkg/auth/session"
	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/metrics"
	"github.com/stockroomhq/stockroom-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	Metrics     *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
	DBPinger    db.Pinger
	RedisClient *redis.Client
	Sessions    session.AccessSessionChecker

	AuthService     authsvc.Service
	RegisterService authsvc.RegisterService
	StockService    stocksvc.Service
	HistoryService  historysvc.Service
	ReportsService  reportsvc.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if p.Metrics != nil {
		r.Use(middleware.Metrics(p.Metrics))
	}
	r.Use(middleware.CORS(cfg.App.CORSOrigins))

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DBPinger, p.RedisClient))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.RedisClient, logg)).
			Post("/login", controllers.AuthLogin(p.AuthService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager)).
				Post("/register", controllers.AuthRegister(p.RegisterService, logg))
			r.Post("/logout", controllers.AuthLogout(p.AuthService, cfg.JWT, logg))
			r.Get("/profile", controllers.AuthProfile(p.AuthService, logg))
			r.Put("/profile", controllers.AuthUpdateProfile(p.AuthService, logg))
			r.Post("/change-password", controllers.AuthChangePassword(p.AuthService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

		r.Route("/stock", func(r chi.Router) {
			r.Get("/", controllers.StockList(p.StockService, logg))
			r.Post("/", controllers.StockCreate(p.StockService, logg))
			r.Get("/low-stock", controllers.StockLowStock(p.StockService, logg))
			r.Get("/statistics", controllers.StockStatistics(p.StockService, logg))
			r.Get("/search", controllers.StockSearch(p.StockService, logg))
			r.Get("/{id}", controllers.StockGet(p.StockService, logg))
			r.Put("/{id}", controllers.StockUpdate(p.StockService, logg))
			r.Patch("/{id}/quantity", controllers.StockQuantity(p.StockService, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager)).
				Delete("/{id}", controllers.StockDelete(p.StockService, logg))
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", controllers.HistoryList(p.HistoryService, logg))
			r.Get("/today", controllers.HistoryToday(p.HistoryService, logg))
			r.Get("/summary", controllers.HistorySummary(p.HistoryService, logg))
			r.Get("/item/{itemId}", controllers.HistoryItem(p.HistoryService, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Post("/daily", controllers.ReportDaily(p.ReportsService, logg))
			r.Get("/stock-summary", controllers.ReportStockSummary(p.ReportsService, logg))
			r.Get("/history", controllers.ReportHistory(p.ReportsService, logg))
		})
	})

	return r
}
