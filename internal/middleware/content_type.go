package middleware

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/hitoshi/ledger/internal/model"
)

// NewJSONContentTypeMiddleware は状態変更リクエストのContent-Typeを検証するミドルウェアを返す。
// ボディを伴うPOST/PUT/PATCHはapplication/jsonでなければ415を返す。
// フォーム送信によるクロスサイトリクエストを受け付けないようにする。
func NewJSONContentTypeMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || r.Method == http.MethodDelete || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				slog.Warn("request rejected: unsupported content type",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("content_type", r.Header.Get("Content-Type")),
				)
				WriteErrorResponse(w, http.StatusUnsupportedMediaType, model.NewUnsupportedMediaTypeError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
