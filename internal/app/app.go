// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/ledger/internal/auth"
	"github.com/hitoshi/ledger/internal/config"
	"github.com/hitoshi/ledger/internal/database"
	"github.com/hitoshi/ledger/internal/handler"
	"github.com/hitoshi/ledger/internal/ledger"
	"github.com/hitoshi/ledger/internal/logger"
	"github.com/hitoshi/ledger/internal/metrics"
	"github.com/hitoshi/ledger/internal/middleware"
	"github.com/hitoshi/ledger/internal/password"
	"github.com/hitoshi/ledger/internal/security"
	"github.com/hitoshi/ledger/internal/token"
)

// Init はアプリケーションの初期化を行う。
// 設定を読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込みの失敗もログに残せるよう先にInfoレベルで初期化する
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
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
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandAddUser:
		return runAddUser(cfg, commandArgs(args))
	default:
		return runServe(cfg)
	}
}

// services はHTTPサーバーとadduserが共有するドメインサービス群。
type services struct {
	tokens   *token.Service
	auth     *auth.Service
	expenses *ledger.Service
}

func newServices(cfg *config.Config, st *stores, collector metrics.MetricsCollector) (*services, error) {
	tokens, err := token.NewService(token.Config{
		Secret: cfg.JWTSecret,
		TTL:    cfg.TokenTTL,
		Issuer: cfg.TokenIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	authService := auth.NewService(
		st.users,
		password.NewBcryptHasher(cfg.BcryptCost),
		tokens,
		collector,
		auth.ServiceConfig{
			RequiredFields:    cfg.SignupRequiredFields,
			MinPasswordLength: cfg.PasswordMinLength,
		},
	)

	expenseService := ledger.NewService(
		st.expenses,
		security.NewTextSanitizer(),
		ledger.WithMetrics(collector),
		ledger.WithPageConfig(ledger.PageConfig{
			DefaultLimit: cfg.DefaultPageLimit,
			MaxLimit:     cfg.MaxPageLimit,
		}),
	)

	return &services{tokens: tokens, auth: authService, expenses: expenseService}, nil
}

// buildHandler は全依存関係をワイヤリングしてHTTPハンドラーを構築する。
// 戻り値のstopはレートリミッターのクリーンアップを停止する。
func buildHandler(cfg *config.Config, st *stores, log *slog.Logger) (http.Handler, func(), error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	svc, err := newServices(cfg, st, collector)
	if err != nil {
		return nil, nil, err
	}

	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		TokenVerifier:     svc.tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            log,

		HealthChecker:   st.health,
		Metrics:         collector,
		MetricsGatherer: registry,

		AuthService:    svc.auth,
		ExpenseService: svc.expenses,

		ExpenseAddRequiresAuth: cfg.ExpenseAddRequiresAuth,
	})

	return router, rateLimiter.Stop, nil
}

// runServe はAPIサーバーモードで起動する。
// ストアに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := openStores(ctx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer st.close()

	router, stopLimiter, err := buildHandler(cfg, st, slog.Default())
	if err != nil {
		return err
	}
	defer stopLimiter()

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
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Bool("expense_add_requires_auth", cfg.ExpenseAddRequiresAuth),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-stop:
	}
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はスキーマを最新にする。
// PostgreSQLでは未適用のマイグレーションを順番に適用し、MongoDBではインデックスを作成する。
func runMigrate(cfg *config.Config) error {
	if cfg.StoreDriver == config.DriverMongo {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client, err := database.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		if err := database.EnsureMongoIndexes(ctx, client.Database(cfg.MongoDatabase)); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("mongodb indexes ensured", slog.String("database", cfg.MongoDatabase))
		return nil
	}

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

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
