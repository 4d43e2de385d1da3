// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は取引のタイトル・カテゴリ・メモなどの自由入力テキストから
// HTMLタグを除去し、プレーンテキストとして保存できる形に整える。
// bluemondayのStrictPolicyを使用し、すべてのタグと属性を取り除く。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由入力テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize はHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// script, styleタグは中身ごと除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーは並行利用に対して安全。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses はエンティティの多重エンコードを解く最大回数。
const maxSanitizePasses = 8

// Sanitize はタグを除去したプレーンテキストを返す。
// エンティティで符号化されたタグも復号後に除去されるよう、出力が変化しなくなるまで繰り返す。
// 上限回数で収まらない入力はエスケープしたまま返す。
func (s *textSanitizer) Sanitize(raw string) string {
	text := strings.TrimSpace(raw)
	for i := 0; i < maxSanitizePasses; i++ {
		next := s.pass(text)
		if next == text {
			return text
		}
		text = next
	}
	return strings.TrimSpace(s.policy.Sanitize(text))
}

// pass はタグを1回除去し、StrictPolicyがエスケープしたエンティティを元の文字へ戻す。
func (s *textSanitizer) pass(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}
