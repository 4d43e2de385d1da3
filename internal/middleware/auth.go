// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/hitoshi/ledger/internal/metrics"
	"github.com/hitoshi/ledger/internal/model"
	"github.com/hitoshi/ledger/internal/token"
)

const bearerPrefix = "Bearer "

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// identityHolderContextKey は外側のミドルウェアが認証結果を受け取るためのキー。
var identityHolderContextKey = contextKey("identity_holder")

// identityHolder は認証ミドルウェアが確定したユーザーIDを外側のミドルウェアへ渡す。
// 内側で生成したコンテキストは外側から見えないため、共有ポインタで受け渡す。
type identityHolder struct {
	mu     sync.Mutex
	userID string
}

func (h *identityHolder) set(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.userID = userID
}

func (h *identityHolder) get() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.userID
}

func withIdentityHolder(ctx context.Context, h *identityHolder) context.Context {
	return context.WithValue(ctx, identityHolderContextKey, h)
}

// TokenVerifier はトークンを検証し、subject（ユーザーID）を返すインターフェース。
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証するミドルウェアを返す。
//
// ヘッダーがない、またはBearer形式でない場合は401（AUTH_MISSING）、
// トークンが不正・署名不一致・期限切れの場合は403（AUTH_INVALID）を返し、
// 後続のハンドラーは実行しない。
// 検証に成功した場合はユーザーIDをリクエストコンテキストに注入する。
func NewAuthMiddleware(verifier TokenVerifier, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				collector.RecordTokenRejection("missing")
				slog.Info("request rejected: missing credential",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthMissingError())
				return
			}

			userID, err := verifier.Verify(raw)
			if err != nil {
				reason := token.Reason(err)
				collector.RecordTokenRejection(reason)
				slog.Info("request rejected: invalid credential",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("reason", reason),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewAuthInvalidError())
				return
			}

			if h, ok := r.Context().Value(identityHolderContextKey).(*identityHolder); ok {
				h.set(userID)
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	t := strings.TrimSpace(h[len(bearerPrefix):])
	return t, t != ""
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
