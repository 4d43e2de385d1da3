package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/currency"

	"github.com/hitoshi/ledger/internal/model"
	"github.com/hitoshi/ledger/internal/security"
)

// ExpenseInput は取引の作成・更新リクエストの内容。
// Amountがnilの場合は未指定として扱う（0は有効な金額）。
type ExpenseInput struct {
	DateTime string
	Amount   *decimal.Decimal
	Type     string
	Category string
	Title    string
	Currency string
	Note     string
}

// dateTimeLayouts は受け付ける日時の書式。日付のみの場合はUTCの0時とする。
var dateTimeLayouts = []string{time.RFC3339Nano, "2006-01-02"}

// validatedExpense は検証・正規化済みの可変フィールド。
type validatedExpense struct {
	dateTime time.Time
	amount   decimal.Decimal
	typ      string
	category string
	title    string
	currency string
	note     string
}

// validateInput は必須項目の有無と書式を検証し、正規化した値を返す。
// 問題のあるフィールドをすべて列挙したVALIDATION_FAILEDエラーを返す。
// ストアへのアクセスより前に呼び出す。
func validateInput(ownerID string, in ExpenseInput, sanitizer security.TextSanitizer) (*validatedExpense, error) {
	var invalid []string

	if _, err := uuid.Parse(ownerID); err != nil {
		invalid = append(invalid, "ownerId")
	}

	v := &validatedExpense{
		typ:      sanitizer.Sanitize(in.Type),
		category: sanitizer.Sanitize(in.Category),
		title:    sanitizer.Sanitize(in.Title),
		note:     sanitizer.Sanitize(in.Note),
	}

	if dt, ok := parseDateTime(in.DateTime); ok {
		v.dateTime = dt
	} else {
		invalid = append(invalid, "dateTime")
	}

	if in.Amount != nil && representable(*in.Amount) {
		v.amount = *in.Amount
	} else {
		invalid = append(invalid, "amount")
	}

	if v.typ == "" {
		invalid = append(invalid, "type")
	}
	if v.category == "" {
		invalid = append(invalid, "category")
	}
	if v.title == "" {
		invalid = append(invalid, "title")
	}

	if unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(in.Currency))); err == nil {
		v.currency = unit.String()
	} else {
		invalid = append(invalid, "currency")
	}

	if len(invalid) > 0 {
		return nil, model.NewValidationError(invalid...)
	}
	return v, nil
}

func parseDateTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (v *validatedExpense) applyTo(e *model.Expense) {
	e.DateTime = v.dateTime
	e.Amount = v.amount
	e.Type = v.typ
	e.Category = v.category
	e.Title = v.title
	e.Currency = v.currency
	e.Note = v.note
}

// representable は金額がDecimal128（有効桁34桁）で損失なく保存できるかを判定する。
func representable(d decimal.Decimal) bool {
	_, err := primitive.ParseDecimal128(d.String())
	return err == nil
}
