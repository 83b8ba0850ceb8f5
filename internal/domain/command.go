package domain

// IntentKind 斜杠命令文本的分类结果
type IntentKind string

const (
	// IntentMention 新匿名消息：文本以提及收件人开头
	IntentMention IntentKind = "mention"
	// IntentTokenReply 令牌回复：文本以回复令牌开头
	IntentTokenReply IntentKind = "token_reply"
	// IntentUnknown 无法识别的输入
	IntentUnknown IntentKind = "unknown"
)

// CommandIntent 表示命令文本解析后的结构化意图。
// 解析是纯函数：任何输入都会落入三种分类之一，不会失败。
type CommandIntent struct {
	Kind        IntentKind // 分类
	RecipientID string     // Mention：被提及用户的平台ID
	Token       string     // TokenReply：规范化后的令牌
	Message     string     // 消息正文（已去除首尾空白，可能为空）
}

// CommandRequest 斜杠命令的调用上下文（由平台经签名校验后传入）。
type CommandRequest struct {
	Text     string // 命令后的自由文本
	UserID   string // 调用者的平台用户ID
	UserName string // 调用者显示名（可选）
}

// CommandReply 返回给调用者的应答，仅对其本人可见。
type CommandReply struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// ResponseEphemeral 私密应答：仅命令调用者可见
const ResponseEphemeral = "ephemeral"

// NewEphemeralReply 构造一条私密应答。
func NewEphemeralReply(text string) *CommandReply {
	return &CommandReply{
		ResponseType: ResponseEphemeral,
		Text:         text,
	}
}
