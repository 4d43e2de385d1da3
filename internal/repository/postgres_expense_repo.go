package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/ledger/internal/model"
)

// expenseColumns はexpensesテーブルの取得カラム。scanExpenseと順序を合わせる。
const expenseColumns = `id, owner_id, date_time, amount, type, category, title, currency, note, created_at, updated_at`

// sortColumns は並び替えフィールドとカラム名の対応。
// ここに含まれないフィールドではORDER BYを組み立てない。
var sortColumns = map[model.SortField]string{
	model.SortByDateTime:  "date_time",
	model.SortByAmount:    "amount",
	model.SortByTitle:     "title",
	model.SortByCategory:  "category",
	model.SortByType:      "type",
	model.SortByCurrency:  "currency",
	model.SortByCreatedAt: "created_at",
}

// PostgresExpenseRepo はPostgreSQLを使用した取引リポジトリ。
type PostgresExpenseRepo struct {
	db   *sql.DB
	opts repoOptions
}

// NewPostgresExpenseRepo はPostgresExpenseRepoを生成する。
func NewPostgresExpenseRepo(db *sql.DB, opts ...Option) *PostgresExpenseRepo {
	return &PostgresExpenseRepo{db: db, opts: newOptions(opts)}
}

// Create は取引を作成する。
func (r *PostgresExpenseRepo) Create(ctx context.Context, e *model.Expense) error {
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.OwnerID, e.DateTime, e.Amount, e.Type, e.Category, e.Title,
		e.Currency, e.Note, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("取引の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は所有者IDと取引IDで取引を取得する。見つからない場合はnilを返す。
func (r *PostgresExpenseRepo) FindByID(ctx context.Context, ownerID, id string) (*model.Expense, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE owner_id = $1 AND id = $2`,
		ownerID, id,
	)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("取引の取得に失敗しました: %w", err)
	}
	return e, nil
}

// Update は取引の可変フィールドを置き換える。一致する行がなければErrNotFoundを返す。
func (r *PostgresExpenseRepo) Update(ctx context.Context, e *model.Expense) error {
	if e.OwnerID == "" {
		return ErrOwnerRequired
	}
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET
		    date_time = $3, amount = $4, type = $5, category = $6,
		    title = $7, currency = $8, note = $9, updated_at = $10
		 WHERE owner_id = $1 AND id = $2`,
		e.OwnerID, e.ID, e.DateTime, e.Amount, e.Type, e.Category,
		e.Title, e.Currency, e.Note, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("取引の更新に失敗しました: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete は取引を削除する。対象が存在しない場合も成功とする。
func (r *PostgresExpenseRepo) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE owner_id = $1 AND id = $2`,
		ownerID, id,
	); err != nil {
		return fmt.Errorf("取引の削除に失敗しました: %w", err)
	}
	return nil
}

// List は条件に一致する取引を並び替え・ページネーションして返す。
func (r *PostgresExpenseRepo) List(ctx context.Context, q model.ExpenseQuery) ([]*model.Expense, error) {
	where, args, err := buildExpenseWhere(q.Filter)
	if err != nil {
		return nil, err
	}
	orderBy, err := buildExpenseOrderBy(q.SortField, q.SortOrder)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses` + where + orderBy
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Skip)

	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("取引一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items := make([]*model.Expense, 0, q.Limit)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("取引行の読み取りに失敗しました: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("取引一覧の走査に失敗しました: %w", err)
	}
	return items, nil
}

// Count は条件に一致する取引の総数を返す。
func (r *PostgresExpenseRepo) Count(ctx context.Context, f model.ExpenseFilter) (int64, error) {
	where, args, err := buildExpenseWhere(f)
	if err != nil {
		return 0, err
	}

	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("取引件数の取得に失敗しました: %w", err)
	}
	return total, nil
}

// buildExpenseWhere は絞り込み条件からWHERE句とプレースホルダ引数を組み立てる。
// owner_idは常に先頭の条件になる。
func buildExpenseWhere(f model.ExpenseFilter) (string, []interface{}, error) {
	if f.OwnerID == "" {
		return "", nil, ErrOwnerRequired
	}

	conds := []string{"owner_id = $1"}
	args := []interface{}{f.OwnerID}

	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !f.From.IsZero() {
		add("date_time >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("date_time < $%d", f.To)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// buildExpenseOrderBy はORDER BY句を組み立てる。
// 同値の行の順序がページ間で揺れないよう、idを第2キーに加える。
func buildExpenseOrderBy(field model.SortField, order model.SortOrder) (string, error) {
	col, ok := sortColumns[field]
	if !ok {
		return "", fmt.Errorf("未対応の並び替えフィールドです: %q", field)
	}

	var dir string
	switch order {
	case model.SortAsc:
		dir = "ASC"
	case model.SortDesc:
		dir = "DESC"
	default:
		return "", fmt.Errorf("未対応の並び順です: %q", order)
	}

	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir), nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(s rowScanner) (*model.Expense, error) {
	e := &model.Expense{}
	if err := s.Scan(
		&e.ID, &e.OwnerID, &e.DateTime, &e.Amount, &e.Type, &e.Category,
		&e.Title, &e.Currency, &e.Note, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return e, nil
}

var _ ExpenseRepository = (*PostgresExpenseRepo)(nil)
