// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/ledger/internal/auth"
	"github.com/hitoshi/ledger/internal/model"
	"github.com/hitoshi/ledger/internal/token"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput) (*token.Issued, error)
	Login(ctx context.Context, email, password string) (*token.Issued, error)
	CurrentUser(ctx context.Context, userID string) (*model.UserProfile, error)
}

// AuthHandler はサインアップ・ログイン・現在ユーザー取得のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse は発行したトークンのレスポンス。
type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// userResponse はユーザー情報のレスポンス。パスワードハッシュは含まない。
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
}

// Signup はユーザーを登録しトークンを発行する。
// POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	issued, err := h.service.Signup(r.Context(), auth.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTokenResponse(issued))
}

// Login はメールアドレスとパスワードで認証しトークンを発行する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	issued, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTokenResponse(issued))
}

// Current は認証済みユーザーの情報を返す。
// GET /current
func (h *AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:        profile.ID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		CreatedAt: profile.CreatedAt,
	})
}

func toTokenResponse(issued *token.Issued) tokenResponse {
	return tokenResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt.UTC(),
	}
}
