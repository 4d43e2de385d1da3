// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense はユーザーの入出金記録（取引）を表す。
// OwnerIDはUser.IDを参照するが、外部キーでは強制しない。
type Expense struct {
	ID        string
	OwnerID   string
	DateTime  time.Time
	Amount    decimal.Decimal
	Type      string // 例: income, expense
	Category  string
	Title     string
	Currency  string // ISO 4217 通貨コード
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SortField は取引一覧の並び替えに使用できるフィールドを表す。
// 値はAPIで受け付けるフィールド名そのもの。
type SortField string

const (
	SortByDateTime  SortField = "dateTime"
	SortByAmount    SortField = "amount"
	SortByTitle     SortField = "title"
	SortByCategory  SortField = "category"
	SortByType      SortField = "type"
	SortByCurrency  SortField = "currency"
	SortByCreatedAt SortField = "createdAt"
)

// SortOrder は並び順を表す。
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ExpenseFilter は取引一覧の絞り込み条件を表す。
// OwnerIDは必須で、空の場合リポジトリは検索を行わない。
// ゼロ値のフィールドは条件に含めない。
type ExpenseFilter struct {
	OwnerID  string
	From     time.Time // この時刻以降（含む）
	To       time.Time // この時刻より前（含まない）
	Type     string
	Category string
}

// ExpenseQuery はリポジトリに渡す検索・並び替え・ページネーション条件。
type ExpenseQuery struct {
	Filter    ExpenseFilter
	SortField SortField
	SortOrder SortOrder
	Skip      int
	Limit     int
}

// ExpensePage は一覧取得結果のエンベロープ。
type ExpensePage struct {
	Items      []*Expense
	Page       int
	Limit      int
	TotalPages int
	TotalItems int64
}
