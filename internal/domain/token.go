package domain

import (
	"regexp"
	"strings"
	"time"
)

// TokenLength 新签发令牌的固定长度（6 个小写十六进制字符，24 位熵）
const TokenLength = 6

// tokenPattern 回复令牌格式：6 到 12 个十六进制字符
var tokenPattern = regexp.MustCompile(`^[0-9a-f]{6,12}$`)

// ReplyToken 表示一条匿名消息的回复令牌绑定。
// 令牌交给收件人，使其可以通过中继匿名回复原始发送者。
type ReplyToken struct {
	Token       string     `json:"token" gorm:"primaryKey;type:varchar(12)"`           // 令牌（主键，小写十六进制）
	SenderID    string     `json:"senderId" gorm:"type:varchar(36);not null"`          // 原始发送者的平台用户ID
	SenderName  string     `json:"senderName,omitempty" gorm:"type:varchar(255)"`      // 发送者显示名（可选）
	RecipientID string     `json:"recipientId" gorm:"type:varchar(36);index;not null"` // 收件人的平台用户ID（唯一有权使用令牌的人）
	CreatedAt   time.Time  `json:"createdAt"`                                          // 签发时间
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`                               // 最近一次成功兑换时间（从未兑换为 nil）
}

// TableName 指定 GORM 表名
func (ReplyToken) TableName() string {
	return "reply_tokens"
}

// NormalizeToken 规范化令牌输入：去除空白并转为小写。
func NormalizeToken(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// ValidToken 判断规范化后的令牌是否符合格式要求。
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}
