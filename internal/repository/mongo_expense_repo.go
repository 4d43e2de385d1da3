package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/ledger/internal/model"
)

// ExpensesCollection は取引を格納するコレクション名。
const ExpensesCollection = "expenses"

// sortKeys は並び替えフィールドとドキュメントキーの対応。
var sortKeys = map[model.SortField]string{
	model.SortByDateTime:  "dateTime",
	model.SortByAmount:    "amount",
	model.SortByTitle:     "title",
	model.SortByCategory:  "category",
	model.SortByType:      "type",
	model.SortByCurrency:  "currency",
	model.SortByCreatedAt: "createdAt",
}

type expenseDocument struct {
	ID        string               `bson:"_id"`
	OwnerID   string               `bson:"ownerId"`
	DateTime  time.Time            `bson:"dateTime"`
	Amount    primitive.Decimal128 `bson:"amount"`
	Type      string               `bson:"type"`
	Category  string               `bson:"category"`
	Title     string               `bson:"title"`
	Currency  string               `bson:"currency"`
	Note      string               `bson:"note"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

func newExpenseDocument(e *model.Expense) (expenseDocument, error) {
	amount, err := primitive.ParseDecimal128(e.Amount.String())
	if err != nil {
		return expenseDocument{}, fmt.Errorf("金額をDecimal128に変換できません: %w", err)
	}
	return expenseDocument{
		ID:        e.ID,
		OwnerID:   e.OwnerID,
		DateTime:  e.DateTime.UTC(),
		Amount:    amount,
		Type:      e.Type,
		Category:  e.Category,
		Title:     e.Title,
		Currency:  e.Currency,
		Note:      e.Note,
		CreatedAt: e.CreatedAt.UTC(),
		UpdatedAt: e.UpdatedAt.UTC(),
	}, nil
}

func (d expenseDocument) toModel() (*model.Expense, error) {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("金額の読み取りに失敗しました: %w", err)
	}
	return &model.Expense{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		DateTime:  d.DateTime,
		Amount:    amount,
		Type:      d.Type,
		Category:  d.Category,
		Title:     d.Title,
		Currency:  d.Currency,
		Note:      d.Note,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// MongoExpenseRepo はMongoDBを使用した取引リポジトリ。
type MongoExpenseRepo struct {
	coll *mongo.Collection
	opts repoOptions
}

// NewMongoExpenseRepo はMongoExpenseRepoを生成する。
func NewMongoExpenseRepo(db *mongo.Database, opts ...Option) *MongoExpenseRepo {
	return &MongoExpenseRepo{coll: db.Collection(ExpensesCollection), opts: newOptions(opts)}
}

// Create は取引を作成する。
func (r *MongoExpenseRepo) Create(ctx context.Context, e *model.Expense) error {
	doc, err := newExpenseDocument(e)
	if err != nil {
		return err
	}

	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("取引の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は所有者IDと取引IDで取引を取得する。見つからない場合はnilを返す。
func (r *MongoExpenseRepo) FindByID(ctx context.Context, ownerID, id string) (*model.Expense, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	var doc expenseDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "ownerId": ownerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("取引の取得に失敗しました: %w", err)
	}
	return doc.toModel()
}

// Update は取引の可変フィールドを置き換える。一致するドキュメントがなければErrNotFoundを返す。
func (r *MongoExpenseRepo) Update(ctx context.Context, e *model.Expense) error {
	if e.OwnerID == "" {
		return ErrOwnerRequired
	}
	doc, err := newExpenseDocument(e)
	if err != nil {
		return err
	}

	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": e.ID, "ownerId": e.OwnerID},
		bson.M{"$set": bson.M{
			"dateTime":  doc.DateTime,
			"amount":    doc.Amount,
			"type":      doc.Type,
			"category":  doc.Category,
			"title":     doc.Title,
			"currency":  doc.Currency,
			"note":      doc.Note,
			"updatedAt": doc.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("取引の更新に失敗しました: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete は取引を削除する。対象が存在しない場合も成功とする。
func (r *MongoExpenseRepo) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}
	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID}); err != nil {
		return fmt.Errorf("取引の削除に失敗しました: %w", err)
	}
	return nil
}

// List は条件に一致する取引を並び替え・ページネーションして返す。
func (r *MongoExpenseRepo) List(ctx context.Context, q model.ExpenseQuery) ([]*model.Expense, error) {
	filter, err := buildExpenseFilterDoc(q.Filter)
	if err != nil {
		return nil, err
	}
	sort, err := buildExpenseSortDoc(q.SortField, q.SortOrder)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	findOpts := options.Find().
		SetSort(sort).
		SetSkip(int64(q.Skip)).
		SetLimit(int64(q.Limit))

	cursor, err := r.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("取引一覧の取得に失敗しました: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]*model.Expense, 0, q.Limit)
	for cursor.Next(ctx) {
		var doc expenseDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("取引ドキュメントの読み取りに失敗しました: %w", err)
		}
		e, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("取引一覧の走査に失敗しました: %w", err)
	}
	return items, nil
}

// Count は条件に一致する取引の総数を返す。
func (r *MongoExpenseRepo) Count(ctx context.Context, f model.ExpenseFilter) (int64, error) {
	filter, err := buildExpenseFilterDoc(f)
	if err != nil {
		return 0, err
	}

	ctx, cancel := r.opts.withTimeout(ctx)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("取引件数の取得に失敗しました: %w", err)
	}
	return total, nil
}

// buildExpenseFilterDoc は絞り込み条件からクエリドキュメントを組み立てる。
func buildExpenseFilterDoc(f model.ExpenseFilter) (bson.D, error) {
	if f.OwnerID == "" {
		return nil, ErrOwnerRequired
	}

	filter := bson.D{{Key: "ownerId", Value: f.OwnerID}}

	dateRange := bson.D{}
	if !f.From.IsZero() {
		dateRange = append(dateRange, bson.E{Key: "$gte", Value: f.From.UTC()})
	}
	if !f.To.IsZero() {
		dateRange = append(dateRange, bson.E{Key: "$lt", Value: f.To.UTC()})
	}
	if len(dateRange) > 0 {
		filter = append(filter, bson.E{Key: "dateTime", Value: dateRange})
	}
	if f.Type != "" {
		filter = append(filter, bson.E{Key: "type", Value: f.Type})
	}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}
	return filter, nil
}

// buildExpenseSortDoc はソートドキュメントを組み立てる。_idを第2キーに加える。
func buildExpenseSortDoc(field model.SortField, order model.SortOrder) (bson.D, error) {
	key, ok := sortKeys[field]
	if !ok {
		return nil, fmt.Errorf("未対応の並び替えフィールドです: %q", field)
	}

	var dir int
	switch order {
	case model.SortAsc:
		dir = 1
	case model.SortDesc:
		dir = -1
	default:
		return nil, fmt.Errorf("未対応の並び順です: %q", order)
	}

	return bson.D{{Key: key, Value: dir}, {Key: "_id", Value: dir}}, nil
}

var _ ExpenseRepository = (*MongoExpenseRepo)(nil)
