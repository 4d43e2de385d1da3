package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ledger/internal/metrics"
	"github.com/hitoshi/ledger/internal/model"
	"github.com/hitoshi/ledger/internal/repository"
	"github.com/hitoshi/ledger/internal/security"
)

// Service は取引の登録・取得・更新・削除・一覧取得を提供する。
// すべての操作は所有者IDでスコープされ、他ユーザーの取引には触れない。
type Service struct {
	repo      repository.ExpenseRepository
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	pages     PageConfig
	now       func() time.Time
	newID     func() string
}

// Option はServiceの任意設定。
type Option func(*Service)

// WithMetrics はメトリクス収集先を設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithPageConfig はページネーションの既定値と上限を設定する。
func WithPageConfig(cfg PageConfig) Option {
	return func(s *Service) {
		s.pages = cfg.normalized()
	}
}

// WithClock は現在時刻の取得関数を差し替える（テスト用）。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator は取引IDの生成関数を差し替える（テスト用）。
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ExpenseRepository, sanitizer security.TextSanitizer, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		sanitizer: sanitizer,
		metrics:   metrics.Nop{},
		pages:     PageConfig{}.normalized(),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create は取引を登録し、ストアから読み直した内容を返す。
// 入力が不正な場合はストアにアクセスせずVALIDATION_FAILEDを返す。
func (s *Service) Create(ctx context.Context, ownerID string, in ExpenseInput) (*model.Expense, error) {
	v, err := validateInput(ownerID, in, s.sanitizer)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	e := &model.Expense{
		ID:        s.newID(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	v.applyTo(e)

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("取引の登録に失敗しました: %w", err)
	}
	s.metrics.RecordExpenseWrite(metrics.WriteCreate)

	stored, err := s.repo.FindByID(ctx, ownerID, e.ID)
	if err != nil {
		return nil, fmt.Errorf("登録した取引の再取得に失敗しました: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("登録した取引が見つかりません: %s", e.ID)
	}

	slog.Info("取引を登録しました",
		slog.String("user_id", ownerID),
		slog.String("expense_id", e.ID),
	)
	return stored, nil
}

// Get は所有者の取引を1件取得する。
// 存在しない場合や他ユーザーの取引の場合はEXPENSE_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, ownerID, id string) (*model.Expense, error) {
	if !isExpenseID(id) {
		return nil, model.NewExpenseNotFoundError(id)
	}

	e, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("取引の取得に失敗しました: %w", err)
	}
	if e == nil {
		return nil, model.NewExpenseNotFoundError(id)
	}
	return e, nil
}

// Update は取引の可変フィールドをすべて置き換え、更新後の内容を返す。
// 入力の検証はストアへのアクセスより先に行う。
func (s *Service) Update(ctx context.Context, ownerID, id string, in ExpenseInput) (*model.Expense, error) {
	v, err := validateInput(ownerID, in, s.sanitizer)
	if err != nil {
		return nil, err
	}
	if !isExpenseID(id) {
		return nil, model.NewExpenseNotFoundError(id)
	}

	e := &model.Expense{
		ID:        id,
		OwnerID:   ownerID,
		UpdatedAt: s.now().UTC(),
	}
	v.applyTo(e)

	if err := s.repo.Update(ctx, e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewExpenseNotFoundError(id)
		}
		return nil, fmt.Errorf("取引の更新に失敗しました: %w", err)
	}
	s.metrics.RecordExpenseWrite(metrics.WriteUpdate)

	updated, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("更新した取引の再取得に失敗しました: %w", err)
	}
	if updated == nil {
		// 更新直後に削除された
		return nil, model.NewExpenseNotFoundError(id)
	}
	return updated, nil
}

// Delete は取引を削除する。存在しないIDの削除も成功として扱う。
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if !isExpenseID(id) {
		return nil
	}

	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("取引の削除に失敗しました: %w", err)
	}
	s.metrics.RecordExpenseWrite(metrics.WriteDelete)
	return nil
}

// List は所有者の取引を絞り込み・並び替え・ページネーションして返す。
// 総件数と取得は同じ絞り込み条件で行う。
func (s *Service) List(ctx context.Context, ownerID string, params ListParams) (*model.ExpensePage, error) {
	q, err := BuildQuery(ownerID, params, s.pages)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Count(ctx, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("取引件数の取得に失敗しました: %w", err)
	}

	items := []*model.Expense{}
	if int64(q.Skip) < total {
		items, err = s.repo.List(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("取引一覧の取得に失敗しました: %w", err)
		}
	}

	return &model.ExpensePage{
		Items:      items,
		Page:       PageOf(q),
		Limit:      q.Limit,
		TotalPages: TotalPages(total, q.Limit),
		TotalItems: total,
	}, nil
}

// isExpenseID は取引IDとして有効な形式（UUID）かどうかを判定する。
// 形式が不正なIDはストアに問い合わせるまでもなく存在しない。
func isExpenseID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
