package security

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxMessageRunes 消息正文的最大长度（字符数）。
// Slack 的 section 块上限是 3000 字符，扣除标题与引用前缀留出余量。
const MaxMessageRunes = 2500

// truncationSuffix 截断标记
const truncationSuffix = "…"

// SanitizeMessage 清洗用户提交的消息正文。
//
// 移除除换行和制表符外的控制字符，超长时按字符截断并附省略号。
// 消息内容本身不做关键词过滤：匿名消息的文字由发送者负责，审计副本负责追责。
func SanitizeMessage(message string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, message)

	cleaned = strings.TrimSpace(cleaned)

	if utf8.RuneCountInString(cleaned) <= MaxMessageRunes {
		return cleaned
	}

	runes := []rune(cleaned)
	return strings.TrimSpace(string(runes[:MaxMessageRunes])) + truncationSuffix
}
