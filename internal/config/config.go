// Package config は起動時の設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/ledger/internal/model"
)

// ストアの種類（STORE_DRIVER）。
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	StoreTimeout  time.Duration

	// Token
	JWTSecret   string
	TokenTTL    time.Duration
	TokenIssuer string

	// Signup / Login
	BcryptCost           int
	PasswordMinLength    int
	SignupRequiredFields []string

	// Expenses
	ExpenseAddRequiresAuth bool
	DefaultPageLimit       int
	MaxPageLimit           int

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// source は環境変数と設定ファイルの値を参照する。環境変数が優先される。
type source struct {
	file map[string]string
}

func (s source) get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

// Load は環境変数からConfigを読み込む。
// CONFIG_FILE が指定されている場合は、そのYAMLファイルの値を環境変数の既定値として使う。
// 必須項目が未設定の場合や値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		values, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
	}

	cfg := &Config{}

	cfg.StoreDriver = strings.ToLower(src.getString("STORE_DRIVER", DriverPostgres))
	if cfg.StoreDriver != DriverPostgres && cfg.StoreDriver != DriverMongo {
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q (want %q or %q)", cfg.StoreDriver, DriverPostgres, DriverMongo)
	}

	// Required fields
	var missing []string

	cfg.JWTSecret = src.get("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		cfg.DatabaseURL = src.get("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case DriverMongo:
		cfg.MongoURI = src.get("MONGO_URI")
		if cfg.MongoURI == "" {
			missing = append(missing, "MONGO_URI")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.MongoDatabase = src.getString("MONGO_DATABASE", "ledger")
	cfg.StoreTimeout = src.getDuration("STORE_TIMEOUT", 5*time.Second)
	cfg.TokenTTL = src.getDuration("TOKEN_TTL", time.Hour)
	cfg.TokenIssuer = src.getString("TOKEN_ISSUER", "ledger")
	cfg.BcryptCost = src.getInt("BCRYPT_COST", 10)
	cfg.PasswordMinLength = src.getInt("PASSWORD_MIN_LENGTH", model.DefaultMinPasswordLength)
	cfg.ExpenseAddRequiresAuth = src.getBool("EXPENSE_ADD_REQUIRES_AUTH", true)
	cfg.DefaultPageLimit = src.getInt("LEDGER_DEFAULT_PAGE_LIMIT", 10)
	cfg.MaxPageLimit = src.getInt("LEDGER_MAX_PAGE_LIMIT", 100)
	cfg.RateLimitGeneral = src.getInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = src.getInt("RATE_LIMIT_AUTH", 10)
	cfg.ServerPort = src.getString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = src.getString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = strings.ToLower(src.getString("LOG_LEVEL", "info"))

	fields, err := parseSignupFields(src.get("SIGNUP_REQUIRED_FIELDS"))
	if err != nil {
		return nil, err
	}
	cfg.SignupRequiredFields = fields

	if cfg.DefaultPageLimit > cfg.MaxPageLimit {
		return nil, fmt.Errorf("LEDGER_DEFAULT_PAGE_LIMIT (%d) must not exceed LEDGER_MAX_PAGE_LIMIT (%d)", cfg.DefaultPageLimit, cfg.MaxPageLimit)
	}

	return cfg, nil
}

// readFile はフラットなYAMLファイル（キーは環境変数名）を読み込む。
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("config file %s: key %s must be a scalar value", path, k)
		case nil:
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

// parseSignupFields はカンマ区切りの必須項目名を検証する。
func parseSignupFields(v string) ([]string, error) {
	var fields []string
	for _, f := range strings.Split(v, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !slices.Contains(model.OptionalSignupFields, f) {
			return nil, fmt.Errorf("unknown field %q in SIGNUP_REQUIRED_FIELDS (allowed: %s)", f, strings.Join(model.OptionalSignupFields, ", "))
		}
		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func (s source) getString(key, defaultVal string) string {
	if v := s.get(key); v != "" {
		return v
	}
	return defaultVal
}

func (s source) getInt(key string, defaultVal int) int {
	v := s.get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func (s source) getBool(key string, defaultVal bool) bool {
	v := s.get(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func (s source) getDuration(key string, defaultVal time.Duration) time.Duration {
	v := s.get(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
