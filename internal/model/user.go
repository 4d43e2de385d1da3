// Package model はドメインモデルを定義する。
package model

import "time"

// サインアップで必須にできる任意項目。メールアドレスとパスワードは常に必須。
const (
	SignupFieldFirstName = "firstName"
	SignupFieldLastName  = "lastName"
)

// OptionalSignupFields は SIGNUP_REQUIRED_FIELDS に指定できる項目名。
var OptionalSignupFields = []string{SignupFieldFirstName, SignupFieldLastName}

// DefaultMinPasswordLength はパスワードの最小文字数のデフォルト値。
const DefaultMinPasswordLength = 8

// User はサービス利用ユーザーを表す。
// PasswordHashはレスポンスへ出力してはならない。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserProfile はパスワードハッシュを含まないユーザー情報の射影。
// 現在ユーザー取得（GET /current）で使用する。
type UserProfile struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
}
