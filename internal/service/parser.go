package service

import (
	"regexp"
	"strings"

	"anonrelay/backend/internal/domain"
)

var (
	// mentionPattern 开头的提及：<@U123> 或 <@U123|显示名>
	mentionPattern = regexp.MustCompile(`^<@([a-zA-Z0-9]+)(?:\|[^>]*)?>`)
	// tokenReplyPattern 开头的回复令牌（6-12 个十六进制字符），其后可跟消息正文
	tokenReplyPattern = regexp.MustCompile(`(?s)^([0-9a-fA-F]{6,12})(?:\s+(.*))?$`)
)

// ParseCommand 将斜杠命令文本分类为结构化意图。
//
// 纯函数，按优先级检查：先提及，后令牌回复，否则无法识别。
// 任何输入都会得到一个分类，不会失败；正文为空的情况保留给编排器提示用户。
// 被提及的用户ID统一转为大写（平台ID本身是大写的，宽松接受小写输入），
// 回复令牌统一转为小写。
func ParseCommand(text string) domain.CommandIntent {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.CommandIntent{Kind: domain.IntentUnknown}
	}

	if m := mentionPattern.FindStringSubmatch(trimmed); m != nil {
		return domain.CommandIntent{
			Kind:        domain.IntentMention,
			RecipientID: strings.ToUpper(m[1]),
			Message:     strings.TrimSpace(trimmed[len(m[0]):]),
		}
	}

	if m := tokenReplyPattern.FindStringSubmatch(trimmed); m != nil {
		return domain.CommandIntent{
			Kind:    domain.IntentTokenReply,
			Token:   domain.NormalizeToken(m[1]),
			Message: strings.TrimSpace(m[2]),
		}
	}

	return domain.CommandIntent{Kind: domain.IntentUnknown}
}
