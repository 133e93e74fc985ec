package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/calhook/internal/metrics"
	"github.com/hitoshi/calhook/internal/middleware"
)

// HealthChecker はヘルスチェックのインターフェース。DB疎通確認に使う。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger      *slog.Logger
	RateLimiter *middleware.RateLimiter

	AuthFlow AuthFlowService
	Settings SettingRegistrar

	Health   HealthChecker
	Gatherer prometheus.Gatherer
}

// NewRouter は全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	flowHandler := NewFlowHandler(deps.AuthFlow, deps.Logger)
	settingsHandler := NewSettingsHandler(deps.Settings, deps.Logger)

	// --- 運用系のルート ---

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			if err := deps.Health.PingContext(req.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- Webフローのルート ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", flowHandler.Index)
		r.Get("/redirect", flowHandler.Redirect)
		r.Get("/settings", settingsHandler.SettingsForm)

		// 登録はカレンダー作成を伴うため専用レート制限を追加
		r.With(deps.RateLimiter.SubmitMiddleware()).Post("/settings/submit", settingsHandler.SettingsSubmit)
	})

	return r
}
