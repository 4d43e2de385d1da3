package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hitoshi/ledger/internal/repository"
)

// OpenMongo はMongoDBクライアントを生成し、接続を確認する。
func OpenMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}

// MongoIndexes はコレクションごとに作成するインデックスを返す。
func MongoIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		repository.UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("uniq_email").SetUnique(true),
			},
		},
		repository.ExpensesCollection: {
			{
				Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "dateTime", Value: -1}, {Key: "_id", Value: -1}},
				Options: options.Index().SetName("owner_date_time"),
			},
			{
				Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "category", Value: 1}},
				Options: options.Index().SetName("owner_category"),
			},
		},
	}
}

// EnsureMongoIndexes はMongoIndexesのインデックスを作成する。
// 既に同じ定義のインデックスがある場合は何もしない。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range MongoIndexes() {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// MongoPinger はmongo.ClientをHealthCheckerとして扱うアダプタ。
type MongoPinger struct {
	Client *mongo.Client
}

// PingContext はプライマリへの疎通を確認する。
func (p MongoPinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}

var _ repository.HealthChecker = MongoPinger{}
