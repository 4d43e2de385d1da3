package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost はbcryptのデフォルトコスト。
const DefaultCost = 10

// BcryptHasher はbcryptによるHasherの実装。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。
// costはbcryptの許容範囲（4〜31）に丸める。0の場合はDefaultCostを使用する。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost は使用しているコストを返す。
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash はbcryptハッシュを生成する。
// bcryptは72バイトを超える入力を拒否するため、その場合もErrHashFailedを返す。
func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashFailed, err)
	}
	return string(hash), nil
}

// Verify はパスワードとbcryptハッシュを照合する。
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to compare password hash: %w", err)
	}
	return true, nil
}

// compile-time interface check
var _ Hasher = (*BcryptHasher)(nil)
