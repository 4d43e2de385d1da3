// Package password はパスワードのハッシュ化と照合を提供する。
// 平文・ハッシュ値のいずれもログやレスポンスに出力してはならない。
package password

import "errors"

// MaxBytes はハッシュ化できるパスワードの最大バイト数（bcryptの制約）。
const MaxBytes = 72

// ErrHashFailed はハッシュ生成に失敗したことを示す。
var ErrHashFailed = errors.New("password hashing failed")

// Hasher はパスワードハッシュアルゴリズムのインターフェース。
type Hasher interface {
	// Hash はパスワードからソルト付きハッシュを生成する。
	Hash(password string) (string, error)

	// Verify はパスワードがハッシュと一致するかを確認する。
	// 不一致は (false, nil) を返し、エラーとしては扱わない。
	Verify(password, hash string) (bool, error)
}
