package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/ledger/internal/config"
	"github.com/hitoshi/ledger/internal/database"
	"github.com/hitoshi/ledger/internal/repository"
)

// stores はSTORE_DRIVERに応じて構築したリポジトリ群。
type stores struct {
	users    repository.UserRepository
	expenses repository.ExpenseRepository
	health   repository.HealthChecker
	close    func()
}

// openStores は設定されたドライバのストアに接続し、リポジトリを構築する。
// 呼び出し側は使用後にcloseを呼ぶこと。
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	opts := []repository.Option{repository.WithTimeout(cfg.StoreTimeout)}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := database.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		slog.Info("mongodb connection established", slog.String("database", cfg.MongoDatabase))

		return &stores{
			users:    repository.NewMongoUserRepo(db, opts...),
			expenses: repository.NewMongoExpenseRepo(db, opts...),
			health:   database.MongoPinger{Client: client},
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					slog.Warn("failed to disconnect mongodb", slog.String("error", err.Error()))
				}
			},
		}, nil

	case config.DriverPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established")

		return &stores{
			users:    repository.NewPostgresUserRepo(db, opts...),
			expenses: repository.NewPostgresExpenseRepo(db, opts...),
			health:   db,
			close:    func() { db.Close() },
		}, nil
	}

	return nil, fmt.Errorf("unsupported store driver: %q", cfg.StoreDriver)
}
