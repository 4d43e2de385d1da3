// Package ledger は取引（入出金記録）の登録・更新・削除と、
// 絞り込み・並び替え・ページネーション付きの一覧取得を提供する。
package ledger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hitoshi/ledger/internal/model"
)

const (
	// DefaultPage は page 未指定時のページ番号。
	DefaultPage = 1
	// DefaultLimit は limit 未指定時の1ページあたりの件数。
	DefaultLimit = 10
	// DefaultMaxLimit は limit に指定できる上限値のデフォルト。
	DefaultMaxLimit = 100
)

// PageConfig はページネーションの既定値と上限。
type PageConfig struct {
	DefaultLimit int
	MaxLimit     int
}

func (c PageConfig) normalized() PageConfig {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = DefaultMaxLimit
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	return c
}

// ListParams は一覧取得のクエリパラメータ（未解析の文字列）。
// 空文字列は未指定として扱う。
type ListParams struct {
	Page      string
	Limit     string
	SortField string
	SortOrder string
	Month     string
	Year      string
	From      string
	To        string
	Type      string
	Category  string
}

// validSortFields は並び替えに使用できるフィールドのセット。
var validSortFields = map[model.SortField]bool{
	model.SortByDateTime:  true,
	model.SortByAmount:    true,
	model.SortByTitle:     true,
	model.SortByCategory:  true,
	model.SortByType:      true,
	model.SortByCurrency:  true,
	model.SortByCreatedAt: true,
}

// BuildQuery はクエリパラメータからリポジトリ用の検索条件を組み立てる。
//
// 所有者IDは認証済みの識別子から渡され、パラメータからは上書きできない。
// month+year指定時は [月初 00:00 UTC, 翌月初) の暦月で絞り込む。
// sortField未指定時は dateTime の降順、指定時の既定の並び順は昇順。
// 不正な値は *model.APIError (INVALID_QUERY) を返す。
func BuildQuery(ownerID string, p ListParams, cfg PageConfig) (model.ExpenseQuery, error) {
	cfg = cfg.normalized()

	page, err := parsePositiveInt(p.Page, DefaultPage, "page")
	if err != nil {
		return model.ExpenseQuery{}, err
	}
	limit, err := parsePositiveInt(p.Limit, cfg.DefaultLimit, "limit")
	if err != nil {
		return model.ExpenseQuery{}, err
	}
	if limit > cfg.MaxLimit {
		return model.ExpenseQuery{}, model.NewInvalidQueryError(
			fmt.Sprintf("limitは%d以下で指定してください", cfg.MaxLimit))
	}

	field, order, err := parseSort(p.SortField, p.SortOrder)
	if err != nil {
		return model.ExpenseQuery{}, err
	}

	from, to, err := parseDateRange(p)
	if err != nil {
		return model.ExpenseQuery{}, err
	}

	return model.ExpenseQuery{
		Filter: model.ExpenseFilter{
			OwnerID:  ownerID,
			From:     from,
			To:       to,
			Type:     p.Type,
			Category: p.Category,
		},
		SortField: field,
		SortOrder: order,
		Skip:      (page - 1) * limit,
		Limit:     limit,
	}, nil
}

// PageOf はスキップ数と件数から1始まりのページ番号を求める。
func PageOf(q model.ExpenseQuery) int {
	if q.Limit <= 0 {
		return DefaultPage
	}
	return q.Skip/q.Limit + 1
}

// TotalPages は総件数と1ページあたりの件数から総ページ数 ceil(total/limit) を求める。
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}

func parsePositiveInt(raw string, def int, name string) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, model.NewInvalidQueryError(fmt.Sprintf("%sは1以上の整数で指定してください", name))
	}
	return n, nil
}

func parseSort(rawField, rawOrder string) (model.SortField, model.SortOrder, error) {
	if rawField == "" {
		order := model.SortDesc
		if rawOrder != "" {
			o, err := parseOrder(rawOrder)
			if err != nil {
				return "", "", err
			}
			order = o
		}
		return model.SortByDateTime, order, nil
	}

	field := model.SortField(rawField)
	if !validSortFields[field] {
		return "", "", model.NewInvalidQueryError(fmt.Sprintf("sortFieldに%qは指定できません", rawField))
	}
	if rawOrder == "" {
		return field, model.SortAsc, nil
	}
	order, err := parseOrder(rawOrder)
	if err != nil {
		return "", "", err
	}
	return field, order, nil
}

func parseOrder(raw string) (model.SortOrder, error) {
	switch model.SortOrder(raw) {
	case model.SortAsc:
		return model.SortAsc, nil
	case model.SortDesc:
		return model.SortDesc, nil
	}
	return "", model.NewInvalidQueryError("sortOrderはascまたはdescで指定してください")
}

// parseDateRange は month/year または from/to から日時範囲を求める。
// 両方の指定方法を同時に使うことはできない。
func parseDateRange(p ListParams) (time.Time, time.Time, error) {
	hasMonth := p.Month != "" || p.Year != ""
	hasRange := p.From != "" || p.To != ""
	if hasMonth && hasRange {
		return time.Time{}, time.Time{}, model.NewInvalidQueryError("month/yearとfrom/toは同時に指定できません")
	}

	if hasMonth {
		return monthWindow(p.Month, p.Year)
	}

	var from, to time.Time
	if p.From != "" {
		t, err := time.Parse(time.RFC3339, p.From)
		if err != nil {
			return time.Time{}, time.Time{}, model.NewInvalidQueryError("fromはRFC3339形式で指定してください")
		}
		from = t.UTC()
	}
	if p.To != "" {
		t, err := time.Parse(time.RFC3339, p.To)
		if err != nil {
			return time.Time{}, time.Time{}, model.NewInvalidQueryError("toはRFC3339形式で指定してください")
		}
		to = t.UTC()
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return time.Time{}, time.Time{}, model.NewInvalidQueryError("fromはtoより前の日時を指定してください")
	}
	return from, to, nil
}

// monthWindow は指定年月の暦月 [月初, 翌月初) をUTCで返す。
func monthWindow(rawMonth, rawYear string) (time.Time, time.Time, error) {
	if rawMonth == "" || rawYear == "" {
		return time.Time{}, time.Time{}, model.NewInvalidQueryError("monthとyearは両方指定してください")
	}
	month, err := strconv.Atoi(rawMonth)
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, time.Time{}, model.NewInvalidQueryError("monthは1から12の整数で指定してください")
	}
	year, err := strconv.Atoi(rawYear)
	if err != nil || year < 1 || year > 9999 {
		return time.Time{}, time.Time{}, model.NewInvalidQueryError("yearは1から9999の整数で指定してください")
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}
