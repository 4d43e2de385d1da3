package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ledger/internal/auth"
	"github.com/hitoshi/ledger/internal/ledger"
	"github.com/hitoshi/ledger/internal/middleware"
	"github.com/hitoshi/ledger/internal/model"
	"github.com/hitoshi/ledger/internal/token"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	signupFn      func(ctx context.Context, in auth.SignupInput) (*token.Issued, error)
	loginFn       func(ctx context.Context, email, password string) (*token.Issued, error)
	currentUserFn func(ctx context.Context, userID string) (*model.UserProfile, error)
}

func (m *mockAuthService) Signup(ctx context.Context, in auth.SignupInput) (*token.Issued, error) {
	return m.signupFn(ctx, in)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*token.Issued, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAuthService) CurrentUser(ctx context.Context, userID string) (*model.UserProfile, error) {
	return m.currentUserFn(ctx, userID)
}

// mockExpenseService はExpenseServiceInterfaceのモック実装。
type mockExpenseService struct {
	createFn func(ctx context.Context, ownerID string, in ledger.ExpenseInput) (*model.Expense, error)
	getFn    func(ctx context.Context, ownerID, id string) (*model.Expense, error)
	updateFn func(ctx context.Context, ownerID, id string, in ledger.ExpenseInput) (*model.Expense, error)
	deleteFn func(ctx context.Context, ownerID, id string) error
	listFn   func(ctx context.Context, ownerID string, params ledger.ListParams) (*model.ExpensePage, error)
}

func (m *mockExpenseService) Create(ctx context.Context, ownerID string, in ledger.ExpenseInput) (*model.Expense, error) {
	return m.createFn(ctx, ownerID, in)
}

func (m *mockExpenseService) Get(ctx context.Context, ownerID, id string) (*model.Expense, error) {
	return m.getFn(ctx, ownerID, id)
}

func (m *mockExpenseService) Update(ctx context.Context, ownerID, id string, in ledger.ExpenseInput) (*model.Expense, error) {
	return m.updateFn(ctx, ownerID, id, in)
}

func (m *mockExpenseService) Delete(ctx context.Context, ownerID, id string) error {
	return m.deleteFn(ctx, ownerID, id)
}

func (m *mockExpenseService) List(ctx context.Context, ownerID string, params ledger.ListParams) (*model.ExpensePage, error) {
	return m.listFn(ctx, ownerID, params)
}

var (
	_ AuthServiceInterface    = (*mockAuthService)(nil)
	_ ExpenseServiceInterface = (*mockExpenseService)(nil)
	_ AuthServiceInterface    = (*auth.Service)(nil)
	_ ExpenseServiceInterface = (*ledger.Service)(nil)
)

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeJSON はレスポンスボディを任意の型にデコードするヘルパー。
func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
}
