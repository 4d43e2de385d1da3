package token

import "errors"

// トークン関連のエラー。
var (
	// ErrSecretRequired は署名鍵が設定されていないことを示す。起動時に致命的エラーとして扱う。
	ErrSecretRequired = errors.New("token signing secret is required")

	// ErrTokenMalformed はトークンの形式が不正であることを示す。
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrTokenInvalidSignature はトークンの署名が不正であることを示す。
	ErrTokenInvalidSignature = errors.New("token signature is invalid")

	// ErrTokenExpired はトークンの有効期限が切れていることを示す。
	ErrTokenExpired = errors.New("token has expired")
)

// Reason はメトリクスやログ用に検証エラーの種別を短い文字列で返す。
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
