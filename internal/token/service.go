// Package token は署名付きの期限付き本人確認トークン（JWT）の発行と検証を提供する。
// サーバー側にセッションを保持しないため、検証は署名鍵のみに依存する純粋な関数になる。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL はトークンのデフォルト有効期間。
const DefaultTTL = time.Hour

// Config はトークンサービスの設定。
type Config struct {
	// Secret はHMAC署名鍵。必須。
	Secret string
	// TTL はトークンの有効期間。0の場合はDefaultTTLを使用する。
	TTL time.Duration
	// Issuer はissクレームに設定する発行者名。
	Issuer string
}

// Issued は発行済みトークンを表す。
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Option はServiceの任意設定。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service はトークンの発行と検証を行う。
// 生成後はイミュータブルで、複数goroutineから安全に利用できる。
type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewService はServiceを生成する。
// 署名鍵が空の場合はErrSecretRequiredを返す。
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrSecretRequired
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &Service{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)

	return s, nil
}

// TTL は設定されている有効期間を返す。
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue はsubject（ユーザーID）のトークンを発行する。
// 有効期限は発行時刻 + TTL。
func (s *Service) Issue(subject string) (*Issued, error) {
	if subject == "" {
		return nil, fmt.Errorf("token subject is required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Issued{
		Token:     signed,
		ExpiresAt: time.Unix(expiresAt.Unix(), 0),
	}, nil
}

// Verify はトークンの署名と有効期限を検証し、subjectを返す。
// 失敗時はErrTokenMalformed、ErrTokenInvalidSignature、ErrTokenExpiredのいずれかを返す。
func (s *Service) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrTokenMalformed
	}

	claims := &jwt.RegisteredClaims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", mapJWTError(err)
	}

	if claims.Subject == "" {
		return "", ErrTokenMalformed
	}

	return claims.Subject, nil
}

// mapJWTError はjwtライブラリのエラーをこのパッケージのエラーに変換する。
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenInvalidSignature
	default:
		return ErrTokenMalformed
	}
}
