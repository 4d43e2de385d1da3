// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/ledger/internal/model"
)

var (
	// ErrDuplicate は一意制約違反（メールアドレス重複など）を示す。
	ErrDuplicate = errors.New("duplicate key")

	// ErrNotFound は更新対象のレコードが存在しないことを示す。
	ErrNotFound = errors.New("record not found")

	// ErrOwnerRequired は所有者IDなしで取引を検索しようとしたことを示す。
	ErrOwnerRequired = errors.New("owner id is required for expense queries")
)

// UserRepository はユーザー（認証情報）の永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// メールアドレスが重複している場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// 戻り値にはパスワードハッシュが含まれる（ログイン照合用）。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindProfileByID は指定IDのユーザーをパスワードハッシュを除いて取得する。
	// 見つからない場合はnilを返す。
	FindProfileByID(ctx context.Context, id string) (*model.UserProfile, error)
}

// ExpenseRepository は取引データの永続化インターフェース。
// 検索・更新・削除はすべて所有者IDでスコープされる。
type ExpenseRepository interface {
	// Create は取引を作成する。
	Create(ctx context.Context, expense *model.Expense) error

	// FindByID は所有者IDと取引IDで取引を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, ownerID, id string) (*model.Expense, error)

	// Update は取引の可変フィールドをすべて置き換える。
	// 所有者IDと取引IDに一致するレコードがない場合はErrNotFoundを返す。
	Update(ctx context.Context, expense *model.Expense) error

	// Delete は所有者IDと取引IDに一致する取引を削除する。
	// 存在しない場合もエラーにしない（冪等）。
	Delete(ctx context.Context, ownerID, id string) error

	// List は条件に一致する取引を並び替え・ページネーションして返す。
	List(ctx context.Context, query model.ExpenseQuery) ([]*model.Expense, error)

	// Count は条件に一致する取引の総数を返す。
	Count(ctx context.Context, filter model.ExpenseFilter) (int64, error)
}

// HealthChecker はストアの疎通確認インターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}
