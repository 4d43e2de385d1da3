package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/ledger/internal/model"
)

// UsersCollection はユーザーを格納するコレクション名。
const UsersCollection = "users"

type userDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash,omitempty"`
	FirstName    string    `bson:"firstName"`
	LastName     string    `bson:"lastName"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func newUserDocument(u *model.User) userDocument {
	return userDocument{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func (d userDocument) toModel() *model.User {
	return &model.User{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
// emailの一意インデックスはdatabase.EnsureMongoIndexesで作成する。
type MongoUserRepo struct {
	coll *mongo.Collection
	opts repoOptions
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database, opts ...Option) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(UsersCollection), opts: newOptions(opts)}
}

// Create はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateを返す。
func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, newUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	var doc userDocument
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによるユーザー検索に失敗しました: %w", err)
	}
	return doc.toModel(), nil
}

// FindProfileByID はパスワードハッシュを射影で除外してユーザーを取得する。
func (r *MongoUserRepo) FindProfileByID(ctx context.Context, id string) (*model.UserProfile, error) {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	var doc userDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"passwordHash": 0}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	return &model.UserProfile{
		ID:        doc.ID,
		Email:     doc.Email,
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
		CreatedAt: doc.CreatedAt,
	}, nil
}

var _ UserRepository = (*MongoUserRepo)(nil)
