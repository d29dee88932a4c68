package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hitoshi/foodwallet/internal/config"
	"github.com/hitoshi/foodwallet/internal/database"
	"github.com/hitoshi/foodwallet/internal/handler"
	"github.com/hitoshi/foodwallet/internal/repository"
)

// storeHandle はSTORE_DRIVERに応じて開いたストアとその後始末をまとめたもの。
type storeHandle struct {
	stores *repository.Stores
	health handler.HealthChecker
	close  func()
}

// openStore はSTORE_DRIVERに応じてPostgreSQLまたはMongoDBに接続し、リポジトリ一式を構築する。
func openStore(ctx context.Context, cfg *config.Config) (*storeHandle, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		return openMongoStore(ctx, cfg)
	case config.StoreDriverPostgres:
		return openPostgresStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER: %q", cfg.StoreDriver)
	}
}

func openPostgresStore(cfg *config.Config) (*storeHandle, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	return &storeHandle{
		stores: repository.NewPostgresStores(db),
		health: db,
		close:  func() { db.Close() },
	}, nil
}

func openMongoStore(ctx context.Context, cfg *config.Config) (*storeHandle, error) {
	client, err := database.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}

	db := client.Database(cfg.MongoDatabase)
	if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
	}

	slog.Info("mongo connection established", slog.String("database", cfg.MongoDatabase))

	return &storeHandle{
		stores: repository.NewMongoStores(db),
		health: mongoPinger{client: client},
		close: func() {
			if err := client.Disconnect(context.Background()); err != nil {
				slog.Error("failed to disconnect mongo", slog.String("error", err.Error()))
			}
		},
	}, nil
}

// mongoPinger は/healthの疎通確認をMongoDBのPingで行う。
type mongoPinger struct {
	client *mongo.Client
}

func (p mongoPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}
