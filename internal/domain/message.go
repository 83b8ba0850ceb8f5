package domain

// OutboundMessage 表示一条待投递的私信。
// Text 是通知预览用的纯文本回退，Blocks 是富文本表示；两者描述同一内容。
// 该结构只在单次命令处理内存在，不做持久化。
type OutboundMessage struct {
	RecipientID string  // 收件人的平台用户ID
	Text        string  // 纯文本回退（不能为空）
	Blocks      []Block // Block Kit 富文本
}

// Block Slack Block Kit 块（本系统只使用 section 与 context 两种）。
type Block struct {
	Type     string      `json:"type"`
	Text     *BlockText  `json:"text,omitempty"`
	Elements []BlockText `json:"elements,omitempty"`
}

// BlockText Block Kit 文本元素
type BlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SectionBlock 构造一个 mrkdwn 正文块。
func SectionBlock(text string) Block {
	return Block{
		Type: "section",
		Text: &BlockText{Type: "mrkdwn", Text: text},
	}
}

// ContextBlock 构造一个 mrkdwn 辅助信息块。
func ContextBlock(texts ...string) Block {
	elements := make([]BlockText, 0, len(texts))
	for _, t := range texts {
		elements = append(elements, BlockText{Type: "mrkdwn", Text: t})
	}
	return Block{
		Type:     "context",
		Elements: elements,
	}
}
