package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/ledger/internal/middleware"
	"github.com/hitoshi/ledger/internal/model"
)

// maxRequestBodyBytes はリクエストボディの上限サイズ。
const maxRequestBodyBytes = 1 << 20

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSONBody はリクエストボディをJSONとしてdstに読み込む。
// 解析に失敗した場合は400レスポンスを書き込みfalseを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		slog.Info("invalid request body",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidRequest, model.ErrCodeInvalidQuery:
		return http.StatusBadRequest
	case model.ErrCodeExpenseNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeAuthMissing, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeAuthInvalid, model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeEmailAlreadyRegistered:
		return http.StatusConflict
	case model.ErrCodeUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case model.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// requireUserID は認証ミドルウェアが注入したユーザーIDを返す。
// 取得できない場合は401レスポンスを書き込みfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthMissingError())
		return "", false
	}
	return userID, true
}
