package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/ledger/internal/metrics"
	"github.com/hitoshi/ledger/internal/middleware"
	"github.com/hitoshi/ledger/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 運用
	HealthChecker   repository.HealthChecker
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// サービス
	AuthService    AuthServiceInterface
	ExpenseService ExpenseServiceInterface

	// falseの場合、POST /expensesを認証なしで受け付け、所有者をボディのownerIdで指定する
	ExpenseAddRequiresAuth bool
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Metrics → Logging → Recovery → SecurityHeaders → CORS → JSONContentType
//
// 認証が必要なルートではさらに Auth → RateLimit(General) を適用する。
// /signup と /login にはIP単位のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewJSONContentTypeMiddleware())

	authHandler := NewAuthHandler(deps.AuthService)
	expenseHandler := NewExpenseHandler(deps.ExpenseService)

	// --- 認証不要のルート ---

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthAttemptMiddleware())
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})

	if !deps.ExpenseAddRequiresAuth {
		r.Post("/expenses", expenseHandler.CreateUnauthenticated)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, collector))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/current", authHandler.Current)

		if deps.ExpenseAddRequiresAuth {
			r.Post("/expenses", expenseHandler.Create)
		}
		r.Get("/expenses", expenseHandler.List)
		r.Get("/expenses/{id}", expenseHandler.ListForOwner)
		r.Put("/expenses/{id}", expenseHandler.Update)
		r.Delete("/expenses/{id}", expenseHandler.Delete)
		r.Get("/expense/{id}", expenseHandler.Get)
	})

	return r
}
