package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/foodwallet/internal/auth"
	"github.com/hitoshi/foodwallet/internal/catalog"
	"github.com/hitoshi/foodwallet/internal/config"
	"github.com/hitoshi/foodwallet/internal/database"
	"github.com/hitoshi/foodwallet/internal/handler"
	"github.com/hitoshi/foodwallet/internal/insight"
	"github.com/hitoshi/foodwallet/internal/interpreter"
	"github.com/hitoshi/foodwallet/internal/inventory"
	"github.com/hitoshi/foodwallet/internal/llm"
	"github.com/hitoshi/foodwallet/internal/logger"
	"github.com/hitoshi/foodwallet/internal/metrics"
	"github.com/hitoshi/foodwallet/internal/middleware"
	"github.com/hitoshi/foodwallet/internal/repository"
	"github.com/hitoshi/foodwallet/internal/security"
	"github.com/hitoshi/foodwallet/internal/tracing"
)

// shutdownTimeout は処理中リクエストの完了を待つ上限時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んでログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	if !logger.SetLevel(cfg.LogLevel) {
		slog.Warn("unknown LOG_LEVEL, falling back to info", slog.String("log_level", cfg.LogLevel))
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
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// ストアに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	// 1. トレーシングの初期化
	shutdownTracing, err := tracing.Setup(cfg.TraceExporter, nil)
	if err != nil {
		return fmt.Errorf("invalid TRACE_EXPORTER: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Error("failed to shut down tracer provider", slog.String("error", err.Error()))
		}
	}()
	slog.Info("tracing initialized", slog.String("exporter", cfg.TraceExporter))

	// 2. ストア接続
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	stores := store.stores

	// 3. セキュリティ・メトリクスの初期化
	sanitizer := security.NewTextSanitizer()
	outboundGuard := security.NewOutboundGuard()
	if err := outboundGuard.ValidateURL(cfg.CatalogBaseURL); err != nil {
		return fmt.Errorf("invalid CATALOG_BASE_URL: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 4. 外部コラボレーターの初期化
	identity := auth.NewLocalProvider(stores.Accounts, cfg.JWTSecret, cfg.TokenTTL)
	catalogClient := catalog.NewClient(
		outboundGuard.NewSafeClient(cfg.CatalogTimeout, cfg.CatalogMaxSize),
		cfg.CatalogBaseURL,
		slog.Default(),
	)
	llmClient := llm.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, slog.Default())

	// 5. ドメインサービスの初期化
	authService := auth.NewService(identity, stores.Users, sanitizer)
	catalogService := catalog.NewService(stores.Products, catalogClient, sanitizer, collector, slog.Default())
	inventoryService := inventory.NewService(stores.Users, stores.Items, stores.Products, sanitizer, collector)
	insightService := insight.NewService(
		stores.Users, stores.Items, stores.Conversations,
		llmClient,
		interpreter.New(slog.Default(), collector),
		sanitizer, collector, slog.Default(),
		insight.Config{LLMTimeout: cfg.LLMTimeout, Location: cfg.Location},
	)

	// 6. ルーターの構築
	// configのレート制限はreq/min単位
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitInsight),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Authenticator:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		Metrics:           collector,

		HealthChecker:  store.health,
		MetricsHandler: metrics.Handler(registry),

		AuthService:    authService,
		ProductService: catalogService,
		ItemService:    handler.NewItemServiceAdapter(inventoryService),
		InsightService: handler.NewInsightServiceAdapter(insightService),
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilSignal(server)
}

// serveUntilSignal はサーバーを起動し、SIGINTまたはSIGTERMを受信するまでブロックする。
// Listenに失敗した場合はそのエラーを返す。
func serveUntilSignal(server *http.Server) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}

	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はストアのスキーマを最新化する。
// PostgreSQLではすべての未適用マイグレーションを順番に適用し、
// MongoDBでは一意インデックスを作成する。
func runMigrate(cfg *config.Config) error {
	if cfg.StoreDriver == config.StoreDriverMongo {
		slog.Info("ensuring mongo indexes", slog.String("database", cfg.MongoDatabase))

		ctx := context.Background()
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		if err := repository.EnsureMongoIndexes(ctx, client.Database(cfg.MongoDatabase)); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		slog.Info("mongo indexes ensured successfully")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
