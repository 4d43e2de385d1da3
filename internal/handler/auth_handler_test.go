package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/ledger/internal/auth"
	"github.com/hitoshi/ledger/internal/model"
	"github.com/hitoshi/ledger/internal/token"
)

func TestAuthHandler_Signup_Returns201WithToken(t *testing.T) {
	expiresAt := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, in auth.SignupInput) (*token.Issued, error) {
			if in.Email != "a@x.com" || in.Password != "pw123456" || in.FirstName != "Taro" {
				t.Errorf("unexpected input: %+v", in)
			}
			return &token.Issued{Token: "signed-token", ExpiresAt: expiresAt}, nil
		},
	}
	h := NewAuthHandler(svc)

	body := `{"email":"a@x.com","password":"pw123456","firstName":"Taro"}`
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var resp tokenResponse
	decodeJSON(t, w, &resp)
	if resp.Token != "signed-token" {
		t.Errorf("token = %q, want %q", resp.Token, "signed-token")
	}
	if !resp.ExpiresAt.Equal(expiresAt) {
		t.Errorf("expiresAt = %v, want %v", resp.ExpiresAt, expiresAt)
	}
}

func TestAuthHandler_Signup_InvalidJSON_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		signupFn: func(context.Context, auth.SignupInput) (*token.Issued, error) {
			t.Error("service must not be called")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"email":`))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if got := parseAPIErrorResponse(t, w)["code"]; got != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", got, model.ErrCodeInvalidRequest)
	}
}

func TestAuthHandler_Signup_ServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"入力不正", model.NewValidationError("email"), http.StatusBadRequest},
		{"登録済みのメールアドレス", model.NewEmailAlreadyRegisteredError(), http.StatusConflict},
		{"内部エラー", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{
				signupFn: func(context.Context, auth.SignupInput) (*token.Issued, error) { return nil, tt.err },
			})

			req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{}`))
			w := httptest.NewRecorder()
			h.Signup(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			resp := parseAPIErrorResponse(t, w)
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(resp["message"], "db down") {
				t.Error("internal error details must not leak")
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*token.Issued, error) {
			if email == "a@x.com" && password == "pw123456" {
				return &token.Issued{Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc)

	t.Run("成功", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@x.com","password":"pw123456"}`))
		w := httptest.NewRecorder()
		h.Login(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var resp tokenResponse
		decodeJSON(t, w, &resp)
		if resp.Token != "tok" {
			t.Errorf("token = %q, want tok", resp.Token)
		}
	})

	t.Run("パスワード違いは401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@x.com","password":"nope"}`))
		w := httptest.NewRecorder()
		h.Login(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if got := parseAPIErrorResponse(t, w)["code"]; got != model.ErrCodeInvalidCredentials {
			t.Errorf("code = %q, want %q", got, model.ErrCodeInvalidCredentials)
		}
	})
}

func TestAuthHandler_Current_OmitsPasswordHash(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	h := NewAuthHandler(&mockAuthService{
		currentUserFn: func(ctx context.Context, userID string) (*model.UserProfile, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			return &model.UserProfile{ID: "user-1", Email: "a@x.com", FirstName: "Taro", CreatedAt: created}, nil
		},
	})

	req := withUserID(httptest.NewRequest(http.MethodGet, "/current", nil), "user-1")
	w := httptest.NewRecorder()
	h.Current(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	raw := w.Body.String()
	if strings.Contains(strings.ToLower(raw), "password") {
		t.Errorf("response must not contain password fields: %s", raw)
	}

	var resp userResponse
	decodeJSON(t, w, &resp)
	if resp.Email != "a@x.com" || resp.ID != "user-1" || !resp.CreatedAt.Equal(created) {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAuthHandler_Current_WithoutIdentity_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	h.Current(w, httptest.NewRequest(http.MethodGet, "/current", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Current_UserGone_Returns404(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		currentUserFn: func(context.Context, string) (*model.UserProfile, error) {
			return nil, model.NewUserNotFoundError()
		},
	})

	req := withUserID(httptest.NewRequest(http.MethodGet, "/current", nil), "user-1")
	w := httptest.NewRecorder()
	h.Current(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
