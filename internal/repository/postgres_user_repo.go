package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/ledger/internal/model"
)

// pgUniqueViolation はPostgreSQLの一意制約違反エラーコード。
const pgUniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db   *sql.DB
	opts repoOptions
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB, opts ...Option) *PostgresUserRepo {
	return &PostgresUserRepo{db: db, opts: newOptions(opts)}
}

// Create はユーザーを作成する。
// メールアドレスの一意制約に違反した場合はErrDuplicateを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, first_name, last_name, created_at, updated_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによるユーザー検索に失敗しました: %w", err)
	}
	return user, nil
}

// FindProfileByID は指定IDのユーザーをパスワードハッシュを除いて取得する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindProfileByID(ctx context.Context, id string) (*model.UserProfile, error) {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	profile := &model.UserProfile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&profile.ID, &profile.Email, &profile.FirstName, &profile.LastName, &profile.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return profile, nil
}

// isUniqueViolation はエラーがPostgreSQLの一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation
}

var _ UserRepository = (*PostgresUserRepo)(nil)
