// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーや外部カタログから受け取った食品名などの自由入力から
// マークアップを取り除き、プレーンテキストとして保存できる形にする。
// 保存された値はAPI応答と言語モデルへのプロンプトの両方に埋め込まれる。
package security

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキストのサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// Clean はHTMLタグと制御文字を除去し、前後の空白を取り除いたテキストを返す。
	// 同一入力に対して常に同一出力を返す。
	Clean(s string) string
}

// textSanitizer はbluemondayのStrictPolicyを使ったTextSanitizerの実装。
// Policyはスレッドセーフなので複数のgoroutineから共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はHTMLタグと制御文字を除去する。
// StrictPolicyがエスケープした実体参照は元の文字に戻す（"M&M's" はそのまま残る）。
func (s *textSanitizer) Clean(in string) string {
	if in == "" {
		return ""
	}
	out := html.UnescapeString(s.policy.Sanitize(in))
	out = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, out)
	return strings.TrimSpace(out)
}
