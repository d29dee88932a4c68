package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/foodwallet/internal/metrics"
	"github.com/hitoshi/foodwallet/internal/middleware"
	"github.com/hitoshi/foodwallet/internal/model"
)

// healthCheckTimeout は/healthでのストア疎通確認のタイムアウト。
const healthCheckTimeout = 3 * time.Second

// HealthChecker はストアの疎通確認を行うインターフェース。
// *sql.DB はそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// サービス
	AuthService    AuthServiceInterface
	ProductService ProductServiceInterface
	ItemService    ItemServiceInterface
	InsightService InsightServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → Logging → Recovery → SecurityHeaders → Auth → RateLimit(General) → RateLimit(Insight)
//
// /health、/metrics、ユーザー登録、ログインは認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 全ルート共通
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRouteNotFoundError(r.URL.Path))
	})

	authHandler := NewAuthHandler(deps.AuthService)
	productHandler := NewProductHandler(deps.ProductService)
	itemHandler := NewItemHandler(deps.ItemService)
	insightHandler := NewInsightHandler(deps.InsightService)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Post("/api/auth/signup", authHandler.Signup)
	r.Post("/api/auth/login", authHandler.Login)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/auth/me", authHandler.Me)
		r.Post("/api/products/lookup", productHandler.Lookup)

		// 冷蔵庫の食品
		r.Route("/api/items", func(r chi.Router) {
			r.Get("/", itemHandler.ListItems)
			r.Post("/", itemHandler.AddItem)
			r.Patch("/{id}", itemHandler.UpdateItem)
			r.Delete("/{id}", itemHandler.RemoveItem)
		})

		// 言語モデルを呼ぶ操作には洞察専用のレート制限を追加
		insightLimit := deps.RateLimiter.InsightMiddleware()
		r.With(insightLimit).Get("/api/insights/recipes", insightHandler.SuggestRecipes)
		r.With(insightLimit).Get("/api/insights/kpis", insightHandler.ComputeKPIs)
		r.With(insightLimit).Post("/api/chat", insightHandler.Chat)
		r.Get("/api/chat", insightHandler.ChatHistory)
	})

	return r
}

type healthResponse struct {
	Status string `json:"status"`
}

// healthHandler はストアに疎通できる場合に200を返すハンドラーを生成する。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
