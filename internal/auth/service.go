// Package auth はパスワード認証によるサインアップ・ログインと、
// 認証済みユーザーの情報取得を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ledger/internal/metrics"
	"github.com/hitoshi/ledger/internal/model"
	"github.com/hitoshi/ledger/internal/password"
	"github.com/hitoshi/ledger/internal/repository"
	"github.com/hitoshi/ledger/internal/token"
)

// サインアップの任意項目名とパスワード長の既定値。定義はmodelにある。
const (
	FieldFirstName           = model.SignupFieldFirstName
	FieldLastName            = model.SignupFieldLastName
	DefaultMinPasswordLength = model.DefaultMinPasswordLength
)

// TokenIssuer はユーザーIDに対するトークンを発行するインターフェース。
type TokenIssuer interface {
	Issue(subject string) (*token.Issued, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	RequiredFields    []string // メールアドレス・パスワード以外の必須項目
	MinPasswordLength int
}

// SignupInput はサインアップの入力。
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users   repository.UserRepository
	hasher  password.Hasher
	tokens  TokenIssuer
	metrics metrics.MetricsCollector
	config  ServiceConfig
	now     func() time.Time

	// ユーザーが存在しない場合にも照合処理を行い、応答時間の差を小さくする
	dummyHash string
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(
	users repository.UserRepository,
	hasher password.Hasher,
	tokens TokenIssuer,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if config.MinPasswordLength <= 0 {
		config.MinPasswordLength = DefaultMinPasswordLength
	}

	s := &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		metrics: collector,
		config:  config,
		now:     time.Now,
	}
	if h, err := hasher.Hash(uuid.NewString()); err == nil {
		s.dummyHash = h
	}
	return s
}

// Signup はユーザーを登録し、そのユーザーのトークンを発行する。
// メールアドレスが登録済みの場合はEMAIL_ALREADY_REGISTEREDを返す。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*token.Issued, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if err := s.validateSignup(in); err != nil {
		s.metrics.RecordAuthAttempt(metrics.OperationSignup, metrics.ResultInvalidInput)
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.metrics.RecordAuthAttempt(metrics.OperationSignup, metrics.ResultInternalError)
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.RecordAuthAttempt(metrics.OperationSignup, metrics.ResultDuplicate)
			slog.Info("signup rejected: email already registered")
			return nil, model.NewEmailAlreadyRegisteredError()
		}
		s.metrics.RecordAuthAttempt(metrics.OperationSignup, metrics.ResultInternalError)
		return nil, fmt.Errorf("ユーザーの登録に失敗しました: %w", err)
	}

	issued, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.metrics.RecordAuthAttempt(metrics.OperationSignup, metrics.ResultInternalError)
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	s.metrics.RecordAuthAttempt(metrics.OperationSignup, metrics.ResultSuccess)
	slog.Info("new user signed up", slog.String("user_id", user.ID))
	return issued, nil
}

// Login はメールアドレスとパスワードを照合し、トークンを発行する。
// ユーザー不在とパスワード不一致は内部では区別して記録するが、
// 呼び出し元にはどちらもINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, email, plain string) (*token.Issued, error) {
	email = strings.TrimSpace(email)

	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if plain == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		s.metrics.RecordAuthAttempt(metrics.OperationLogin, metrics.ResultInvalidInput)
		return nil, model.NewValidationError(missing...)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordAuthAttempt(metrics.OperationLogin, metrics.ResultInternalError)
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		if s.dummyHash != "" {
			_, _ = s.hasher.Verify(plain, s.dummyHash)
		}
		s.metrics.RecordAuthAttempt(metrics.OperationLogin, metrics.ResultUserNotFound)
		slog.Info("login rejected", slog.String("reason", metrics.ResultUserNotFound))
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := s.hasher.Verify(plain, user.PasswordHash)
	if err != nil {
		s.metrics.RecordAuthAttempt(metrics.OperationLogin, metrics.ResultInternalError)
		return nil, fmt.Errorf("パスワードの照合に失敗しました: %w", err)
	}
	if !ok {
		s.metrics.RecordAuthAttempt(metrics.OperationLogin, metrics.ResultBadPassword)
		slog.Info("login rejected",
			slog.String("reason", metrics.ResultBadPassword),
			slog.String("user_id", user.ID),
		)
		return nil, model.NewInvalidCredentialsError()
	}

	issued, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.metrics.RecordAuthAttempt(metrics.OperationLogin, metrics.ResultInternalError)
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	s.metrics.RecordAuthAttempt(metrics.OperationLogin, metrics.ResultSuccess)
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return issued, nil
}

// CurrentUser は認証済みユーザーの情報をパスワードハッシュを除いて返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.UserProfile, error) {
	profile, err := s.users.FindProfileByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewUserNotFoundError()
	}
	return profile, nil
}

func (s *Service) validateSignup(in SignupInput) error {
	var missing []string
	if in.Email == "" || !isEmailAddress(in.Email) {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	for _, f := range s.config.RequiredFields {
		switch f {
		case FieldFirstName:
			if in.FirstName == "" {
				missing = append(missing, FieldFirstName)
			}
		case FieldLastName:
			if in.LastName == "" {
				missing = append(missing, FieldLastName)
			}
		}
	}
	if len(missing) > 0 {
		return model.NewValidationError(missing...)
	}

	if len(in.Password) > password.MaxBytes {
		return model.NewPasswordTooLongError(password.MaxBytes)
	}
	if len([]rune(in.Password)) < s.config.MinPasswordLength {
		return model.NewPasswordTooShortError(s.config.MinPasswordLength)
	}
	return nil
}

// isEmailAddress は表示名などを含まない素のメールアドレスかどうかを判定する。
func isEmailAddress(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
