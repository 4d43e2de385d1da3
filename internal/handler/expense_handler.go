package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/ledger/internal/ledger"
	"github.com/hitoshi/ledger/internal/model"
)

// ExpenseServiceInterface は取引ハンドラーが必要とするサービスインターフェース。
type ExpenseServiceInterface interface {
	Create(ctx context.Context, ownerID string, in ledger.ExpenseInput) (*model.Expense, error)
	Get(ctx context.Context, ownerID, id string) (*model.Expense, error)
	Update(ctx context.Context, ownerID, id string, in ledger.ExpenseInput) (*model.Expense, error)
	Delete(ctx context.Context, ownerID, id string) error
	List(ctx context.Context, ownerID string, params ledger.ListParams) (*model.ExpensePage, error)
}

// ExpenseHandler は取引管理のHTTPハンドラー。
type ExpenseHandler struct {
	service ExpenseServiceInterface
}

// NewExpenseHandler はExpenseHandlerを生成する。
func NewExpenseHandler(service ExpenseServiceInterface) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// expenseRequest は取引の作成・更新リクエストのボディ。
// amountは数値・文字列のどちらでも受け付ける。
type expenseRequest struct {
	OwnerID  string           `json:"ownerId"`
	DateTime string           `json:"dateTime"`
	Amount   *decimal.Decimal `json:"amount"`
	Type     string           `json:"type"`
	Category string           `json:"category"`
	Title    string           `json:"title"`
	Currency string           `json:"currency"`
	Note     string           `json:"note"`
}

// expenseResponse は取引のレスポンス。amountは精度を保つため数値リテラルとして出力する。
type expenseResponse struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"ownerId"`
	DateTime  time.Time   `json:"dateTime"`
	Amount    json.Number `json:"amount"`
	Type      string      `json:"type"`
	Category  string      `json:"category"`
	Title     string      `json:"title"`
	Currency  string      `json:"currency"`
	Note      string      `json:"note"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// expensePageResponse は取引一覧のエンベロープ。
type expensePageResponse struct {
	Items      []expenseResponse `json:"items"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
	TotalItems int64             `json:"totalItems"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

// Create は認証済みユーザーの取引を登録する。
// POST /expenses
//
// ボディのownerIdは省略可能。指定された場合はトークンのユーザーと一致しなければ403を返す。
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req expenseRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.OwnerID != "" && req.OwnerID != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	h.create(w, r, userID, req)
}

// CreateUnauthenticated は認証なしで取引を登録する。所有者はボディのownerIdで指定する。
// POST /expenses（EXPENSE_ADD_REQUIRES_AUTH=false の場合）
func (h *ExpenseHandler) CreateUnauthenticated(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	h.create(w, r, req.OwnerID, req)
}

func (h *ExpenseHandler) create(w http.ResponseWriter, r *http.Request, ownerID string, req expenseRequest) {
	e, err := h.service.Create(r.Context(), ownerID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

// List は認証済みユーザーの取引一覧を返す。
// GET /expenses?page=&limit=&sortField=&sortOrder=&month=&year=&from=&to=&type=&category=
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	h.list(w, r, userID)
}

// ListForOwner はパスで指定された所有者の取引一覧を返す。
// GET /expenses/{id}
//
// 所有者がトークンのユーザーと異なる場合は403を返す。
func (h *ExpenseHandler) ListForOwner(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if ownerID := chi.URLParam(r, "id"); ownerID != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	h.list(w, r, userID)
}

func (h *ExpenseHandler) list(w http.ResponseWriter, r *http.Request, ownerID string) {
	q := r.URL.Query()
	page, err := h.service.List(r.Context(), ownerID, ledger.ListParams{
		Page:      q.Get("page"),
		Limit:     q.Get("limit"),
		SortField: q.Get("sortField"),
		SortOrder: q.Get("sortOrder"),
		Month:     q.Get("month"),
		Year:      q.Get("year"),
		From:      q.Get("from"),
		To:        q.Get("to"),
		Type:      q.Get("type"),
		Category:  q.Get("category"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]expenseResponse, len(page.Items))
	for i, e := range page.Items {
		items[i] = toExpenseResponse(e)
	}

	writeJSON(w, http.StatusOK, expensePageResponse{
		Items:      items,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
		TotalItems: page.TotalItems,
	})
}

// Get は取引を1件返す。
// GET /expense/{id}
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	e, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

// Update は取引の内容をすべて置き換える。
// PUT /expenses/{id}
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req expenseRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.OwnerID != "" && req.OwnerID != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	e, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

// Delete は取引を削除する。存在しない取引の削除も成功として200を返す。
// DELETE /expenses/{id}
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Deleted: true})
}

func (req expenseRequest) toInput() ledger.ExpenseInput {
	return ledger.ExpenseInput{
		DateTime: req.DateTime,
		Amount:   req.Amount,
		Type:     req.Type,
		Category: req.Category,
		Title:    req.Title,
		Currency: req.Currency,
		Note:     req.Note,
	}
}

func toExpenseResponse(e *model.Expense) expenseResponse {
	return expenseResponse{
		ID:        e.ID,
		OwnerID:   e.OwnerID,
		DateTime:  e.DateTime.UTC(),
		Amount:    json.Number(e.Amount.String()),
		Type:      e.Type,
		Category:  e.Category,
		Title:     e.Title,
		Currency:  e.Currency,
		Note:      e.Note,
		CreatedAt: e.CreatedAt.UTC(),
		UpdatedAt: e.UpdatedAt.UTC(),
	}
}
