// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, ledger, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeInvalidQuery           = "INVALID_QUERY"
	ErrCodeExpenseNotFound        = "EXPENSE_NOT_FOUND"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeAuthMissing            = "AUTH_MISSING"
	ErrCodeAuthInvalid            = "AUTH_INVALID"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	ErrCodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnsupportedMediaType   = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// NewValidationError は必須項目の欠落・不正値エラーを生成する。
// fieldsには問題のあったフィールド名を列挙する。
func NewValidationError(fields ...string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に不備があります: %s", strings.Join(fields, ", ")),
		Category: "validation",
		Action:   "指定された項目を入力してから再度お試しください。",
	}
}

// NewPasswordTooShortError はパスワードが短すぎる場合のエラーを生成する。
func NewPasswordTooShortError(minLength int) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("パスワードは%d文字以上で入力してください。", minLength),
		Category: "validation",
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewPasswordTooLongError はパスワードがハッシュ化できる長さを超える場合のエラーを生成する。
func NewPasswordTooLongError(maxBytes int) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("パスワードは%dバイト以内で入力してください。", maxBytes),
		Category: "validation",
		Action:   "より短いパスワードを設定してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidQueryError は一覧取得パラメータの不正エラーを生成する。
func NewInvalidQueryError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  fmt.Sprintf("無効な検索条件です: %s", reason),
		Category: "validation",
		Action:   "page、limit、sortField、sortOrder、month、yearの値を確認してください。",
	}
}

// NewExpenseNotFoundError は取引未検出エラーを生成する。
func NewExpenseNotFoundError(expenseID string) *APIError {
	return &APIError{
		Code:     ErrCodeExpenseNotFound,
		Message:  fmt.Sprintf("指定された取引が見つかりません: %s", expenseID),
		Category: "ledger",
		Action:   "取引IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewAuthMissingError は認証情報が提示されなかった場合のエラーを生成する。
func NewAuthMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthMissing,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewAuthInvalidError はトークンが不正または期限切れの場合のエラーを生成する。
func NewAuthInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthInvalid,
		Message:  "認証トークンが無効か、有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewForbiddenError は他ユーザーのデータへのアクセスを拒否するエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "このリソースへのアクセス権がありません。",
		Category: "auth",
		Action:   "自分のデータのみ操作できます。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレスとパスワードのどちらが誤っているかは明かさない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailAlreadyRegisteredError はメールアドレス重複エラーを生成する。
func NewEmailAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyRegistered,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewUnsupportedMediaTypeError はリクエストのContent-Typeが不正な場合のエラーを生成する。
func NewUnsupportedMediaTypeError() *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedMediaType,
		Message:  "Content-Typeはapplication/jsonを指定してください。",
		Category: "validation",
		Action:   "JSON形式でリクエストしてください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
