package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/hitoshi/ledger/internal/model"
	"github.com/hitoshi/ledger/internal/repository"
)

// fakeExpenseRepo はメモリ上で絞り込み・並び替え・ページネーションを行うExpenseRepository。
// PostgreSQL/MongoDB実装と同じく所有者IDで必ずスコープする。
type fakeExpenseRepo struct {
	mu       sync.Mutex
	expenses map[string]*model.Expense
	calls    int

	// 設定されている場合、すべての呼び出しでこのエラーを返す
	err error
}

func newFakeExpenseRepo() *fakeExpenseRepo {
	return &fakeExpenseRepo{expenses: make(map[string]*model.Expense)}
}

func (r *fakeExpenseRepo) enter() error {
	r.calls++
	return r.err
}

func (r *fakeExpenseRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *fakeExpenseRepo) Create(_ context.Context, e *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	cp := *e
	r.expenses[e.ID] = &cp
	return nil
}

func (r *fakeExpenseRepo) FindByID(_ context.Context, ownerID, id string) (*model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, repository.ErrOwnerRequired
	}
	e, ok := r.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *fakeExpenseRepo) Update(_ context.Context, e *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	cur, ok := r.expenses[e.ID]
	if !ok || cur.OwnerID != e.OwnerID {
		return repository.ErrNotFound
	}
	cp := *e
	cp.CreatedAt = cur.CreatedAt
	r.expenses[e.ID] = &cp
	return nil
}

func (r *fakeExpenseRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	if e, ok := r.expenses[id]; ok && e.OwnerID == ownerID {
		delete(r.expenses, id)
	}
	return nil
}

func (r *fakeExpenseRepo) List(_ context.Context, q model.ExpenseQuery) ([]*model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	matched, err := r.match(q.Filter)
	if err != nil {
		return nil, err
	}

	less, err := lessFunc(q.SortField)
	if err != nil {
		return nil, err
	}
	desc := q.SortOrder == model.SortDesc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if c := less(a, b); c != 0 {
			return (c < 0) != desc
		}
		return (a.ID < b.ID) != desc
	})

	if q.Skip >= len(matched) {
		return []*model.Expense{}, nil
	}
	end := q.Skip + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[q.Skip:end], nil
}

func (r *fakeExpenseRepo) Count(_ context.Context, f model.ExpenseFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return 0, err
	}
	matched, err := r.match(f)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (r *fakeExpenseRepo) match(f model.ExpenseFilter) ([]*model.Expense, error) {
	if f.OwnerID == "" {
		return nil, repository.ErrOwnerRequired
	}
	var out []*model.Expense
	for _, e := range r.expenses {
		if e.OwnerID != f.OwnerID {
			continue
		}
		if !f.From.IsZero() && e.DateTime.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !e.DateTime.Before(f.To) {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func lessFunc(field model.SortField) (func(a, b *model.Expense) int, error) {
	switch field {
	case model.SortByDateTime:
		return func(a, b *model.Expense) int { return a.DateTime.Compare(b.DateTime) }, nil
	case model.SortByCreatedAt:
		return func(a, b *model.Expense) int { return a.CreatedAt.Compare(b.CreatedAt) }, nil
	case model.SortByAmount:
		return func(a, b *model.Expense) int { return a.Amount.Cmp(b.Amount) }, nil
	case model.SortByTitle:
		return func(a, b *model.Expense) int { return strings.Compare(a.Title, b.Title) }, nil
	case model.SortByCategory:
		return func(a, b *model.Expense) int { return strings.Compare(a.Category, b.Category) }, nil
	case model.SortByType:
		return func(a, b *model.Expense) int { return strings.Compare(a.Type, b.Type) }, nil
	case model.SortByCurrency:
		return func(a, b *model.Expense) int { return strings.Compare(a.Currency, b.Currency) }, nil
	}
	return nil, errors.New("unsupported sort field")
}

var _ repository.ExpenseRepository = (*fakeExpenseRepo)(nil)
