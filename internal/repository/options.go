package repository

import (
	"context"
	"time"
)

// DefaultTimeout は1回のストア呼び出しに許容する時間のデフォルト値。
const DefaultTimeout = 5 * time.Second

// Option はリポジトリの任意設定。
type Option func(*repoOptions)

type repoOptions struct {
	timeout time.Duration
}

// WithTimeout は1回のストア呼び出しのタイムアウトを設定する。
// 0以下の場合はDefaultTimeoutを使用する。
func WithTimeout(d time.Duration) Option {
	return func(o *repoOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func newOptions(opts []Option) repoOptions {
	o := repoOptions{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// withTimeout はリクエストコンテキストにストア呼び出し用の期限を付与する。
// ストアが応答しない場合でもリクエストが無期限に待たないようにする。
func (o repoOptions) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.timeout)
}
