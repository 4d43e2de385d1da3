package handler

import (
	"context"
	"sort"
	"sync"

	"github.com/hitoshi/ledger/internal/model"
	"github.com/hitoshi/ledger/internal/repository"
)

// memUserRepo はルーター統合テスト用のメモリ上のUserRepository。
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) FindProfileByID(_ context.Context, id string) (*model.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &model.UserProfile{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, CreatedAt: u.CreatedAt}, nil
}

// memExpenseRepo はルーター統合テスト用のメモリ上のExpenseRepository。
// 並び替えは日時と作成日時のみ対応する。
type memExpenseRepo struct {
	mu       sync.Mutex
	expenses map[string]*model.Expense
}

func newMemExpenseRepo() *memExpenseRepo {
	return &memExpenseRepo{expenses: make(map[string]*model.Expense)}
}

func (r *memExpenseRepo) Create(_ context.Context, e *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.expenses[e.ID] = &cp
	return nil
}

func (r *memExpenseRepo) FindByID(_ context.Context, ownerID, id string) (*model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *memExpenseRepo) Update(_ context.Context, e *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.expenses[e.ID]
	if !ok || cur.OwnerID != e.OwnerID {
		return repository.ErrNotFound
	}
	cp := *e
	cp.CreatedAt = cur.CreatedAt
	r.expenses[e.ID] = &cp
	return nil
}

func (r *memExpenseRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.expenses[id]; ok && e.OwnerID == ownerID {
		delete(r.expenses, id)
	}
	return nil
}

func (r *memExpenseRepo) List(_ context.Context, q model.ExpenseQuery) ([]*model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := r.match(q.Filter)
	desc := q.SortOrder == model.SortDesc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var c int
		if q.SortField == model.SortByCreatedAt {
			c = a.CreatedAt.Compare(b.CreatedAt)
		} else {
			c = a.DateTime.Compare(b.DateTime)
		}
		if c == 0 {
			return (a.ID < b.ID) != desc
		}
		return (c < 0) != desc
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

func (r *memExpenseRepo) Count(_ context.Context, f model.ExpenseFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.match(f))), nil
}

func (r *memExpenseRepo) match(f model.ExpenseFilter) []*model.Expense {
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
	return out
}

// pingFunc は関数をHealthCheckerとして扱う。
type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

var (
	_ repository.UserRepository    = (*memUserRepo)(nil)
	_ repository.ExpenseRepository = (*memExpenseRepo)(nil)
	_ repository.HealthChecker     = pingFunc(nil)
)
