// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/calhook/internal/auth"
	"github.com/hitoshi/calhook/internal/config"
	"github.com/hitoshi/calhook/internal/database"
	"github.com/hitoshi/calhook/internal/handler"
	"github.com/hitoshi/calhook/internal/ifttt"
	"github.com/hitoshi/calhook/internal/logger"
	"github.com/hitoshi/calhook/internal/metrics"
	"github.com/hitoshi/calhook/internal/middleware"
	"github.com/hitoshi/calhook/internal/repository"
	"github.com/hitoshi/calhook/internal/security"
	"github.com/hitoshi/calhook/internal/setting"
	"github.com/hitoshi/calhook/internal/worker/poll"
	"github.com/hitoshi/calhook/internal/works"

	"golang.org/x/time/rate"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("domain_id", cfg.DomainID),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、認可フローと設定フォームの依存関係をワイヤリングし、
// HTTPサーバーを起動する。SIGINTまたはSIGTERMシグナルを受信すると
// グレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// リポジトリの初期化
	credRepo := repository.NewPostgresCredentialRepo(db)
	tokenRepo := repository.NewPostgresTokenRepo(db)
	settingRepo := repository.NewPostgresSettingRepo(db)

	// メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 外部APIクライアントの初期化
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	worksClient := works.NewClient(httpClient, slog.Default(), cfg.WorksAPIBaseURL)
	userAuth := auth.NewUserAccountAuth(httpClient, cfg.WorksAuthBaseURL)
	saAuth := auth.NewServiceAccountAuth(httpClient, cfg.WorksAuthBaseURL)

	// ドメインサービスの初期化
	authService := auth.NewService(cfg.DomainID, credRepo, tokenRepo, userAuth, worksClient, slog.Default())
	tokenManager := auth.NewTokenManager(tokenRepo, saAuth, slog.Default(), collector)
	sanitizer := security.NewTextSanitizer()
	settingService := setting.NewService(settingRepo, tokenManager, worksClient, sanitizer, slog.Default())

	// ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      slog.Default(),
		RateLimiter: rateLimiter,
		AuthFlow:    authService,
		Settings:    settingService,
		Health:      db,
		Gatherer:    registry,
	})

	// HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("web server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はポーリングワーカーモードで起動する。
// DB接続を開き、ポーリングスケジューラを起動する。
// メトリクスは専用のHTTPリスナーで公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// リポジトリの初期化
	credRepo := repository.NewPostgresCredentialRepo(db)
	tokenRepo := repository.NewPostgresTokenRepo(db)
	settingRepo := repository.NewPostgresSettingRepo(db)

	// メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 外部URLの事前検証。IFTTTのベースURLは環境変数で差し替え可能なため、
	// 内部ネットワークに向いていないことを起動時に確認する。
	ssrfGuard := security.NewSSRFGuard()
	if err := ssrfGuard.ValidateURL(cfg.IFTTTBaseURL); err != nil {
		return fmt.Errorf("unsafe IFTTT base URL: %w", err)
	}

	// 外部APIクライアントの初期化
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	worksClient := works.NewClient(httpClient, slog.Default(), cfg.WorksAPIBaseURL)
	saAuth := auth.NewServiceAccountAuth(httpClient, cfg.WorksAuthBaseURL)
	iftttClient := ifttt.NewClient(ssrfGuard.NewSafeClient(cfg.HTTPTimeout), slog.Default(), cfg.IFTTTBaseURL)

	tokenManager := auth.NewTokenManager(tokenRepo, saAuth, slog.Default(), collector)

	// ランナーとスケジューラの初期化
	runner := poll.NewRunner(
		cfg.DomainID, cfg.PollWindow,
		credRepo, settingRepo,
		tokenManager, worksClient, iftttClient,
		collector, slog.Default(),
	)
	scheduler := poll.NewScheduler(runner, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// メトリクスのリスナーをバックグラウンドで起動
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler(registry))
	metricsServer := &http.Server{Addr: ":" + cfg.ServerPort, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics listener error", slog.String("error", err.Error()))
		}
	}()
	defer metricsServer.Close()

	slog.Info("worker starting",
		slog.Duration("poll_interval", cfg.PollInterval),
		slog.Duration("poll_window", cfg.PollWindow),
	)

	// ポーリングスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.PollInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// rateLimiterConfig は設定のreq/min値をレートリミッターの設定に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rlCfg.GeneralBurst = cfg.RateLimitGeneral
	rlCfg.SubmitRate = rate.Limit(float64(cfg.RateLimitSubmit) / 60.0)
	rlCfg.SubmitBurst = cfg.RateLimitSubmit
	return rlCfg
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
