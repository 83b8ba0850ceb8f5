package service

import (
	"fmt"

	"anonrelay/backend/internal/domain"
)

// brandingFooter 固定品牌落款
const brandingFooter = "Enviado vía Amigo-No-Visible"

// ComposeFirstContact 构建首次联络消息：匿名正文 + 回复令牌与使用说明。
func ComposeFirstContact(recipientID, message, token string) domain.OutboundMessage {
	return domain.OutboundMessage{
		RecipientID: recipientID,
		Text: fmt.Sprintf(
			"Un amigo invisible quiere decirte algo: %s — Respondé con /amigo %s tu-respuesta.",
			message, token,
		),
		Blocks: []domain.Block{
			domain.SectionBlock(fmt.Sprintf(
				"*Un amigo invisible quiere decirte algo:*\n>%s", message,
			)),
			domain.SectionBlock(fmt.Sprintf(
				"Para responder, usá `/amigo %s tu-respuesta`. Ojo: al responder se revela tu identidad.",
				token,
			)),
			domain.ContextBlock(brandingFooter),
		},
	}
}

// ComposeReply 构建回复消息：标题点名回复者，正文为其回复内容。
// 回复者标识优先用显示名，其次平台ID，两者皆无时用通用占位。
func ComposeReply(recipientID, replierID, replierName, message string) domain.OutboundMessage {
	replier := replierLabel(replierID, replierName)

	return domain.OutboundMessage{
		RecipientID: recipientID,
		Text: fmt.Sprintf(
			"%s respondió a tu mensaje anónimo: %s", replier, message,
		),
		Blocks: []domain.Block{
			domain.SectionBlock(fmt.Sprintf(
				"*%s respondió a tu mensaje anónimo:*\n>%s", replier, message,
			)),
			domain.ContextBlock(
				"El token de esa respuesta ya fue usado. Para seguir la conversación, mandá un nuevo mensaje anónimo.",
				brandingFooter,
			),
		},
	}
}

// ComposeAuditFirstContact 构建首次联络的审计副本（第三人称、揭示双方身份，含令牌）。
func ComposeAuditFirstContact(auditUserID, senderID, senderName, recipientID, message, token string) domain.OutboundMessage {
	sender := senderLabel(senderID, senderName)

	return domain.OutboundMessage{
		RecipientID: auditUserID,
		Text: fmt.Sprintf(
			"Auditoría: %s le mandó un mensaje anónimo a <@%s>: %s (token %s)",
			sender, recipientID, message, token,
		),
		Blocks: []domain.Block{
			domain.SectionBlock(fmt.Sprintf(
				"*Copia de auditoría:* %s le mandó un mensaje anónimo a <@%s>:\n>%s",
				sender, recipientID, message,
			)),
			domain.ContextBlock(
				fmt.Sprintf("Token de respuesta emitido: `%s`", token),
				brandingFooter,
			),
		},
	}
}

// ComposeAuditReply 构建令牌回复的审计副本。
func ComposeAuditReply(auditUserID, replierID, replierName, originalSenderID, message string) domain.OutboundMessage {
	replier := senderLabel(replierID, replierName)

	return domain.OutboundMessage{
		RecipientID: auditUserID,
		Text: fmt.Sprintf(
			"Auditoría: %s respondió al mensaje anónimo de <@%s>: %s",
			replier, originalSenderID, message,
		),
		Blocks: []domain.Block{
			domain.SectionBlock(fmt.Sprintf(
				"*Copia de auditoría:* %s respondió al mensaje anónimo de <@%s>:\n>%s",
				replier, originalSenderID, message,
			)),
			domain.ContextBlock(brandingFooter),
		},
	}
}

// replierLabel 回复标题里的回复者称呼。
func replierLabel(id, name string) string {
	switch {
	case name != "":
		return name
	case id != "":
		return fmt.Sprintf("<@%s>", id)
	default:
		return "Alguien"
	}
}

// senderLabel 审计副本里的身份标签：name (id)，缺哪个用哪个，都缺则 desconocido。
func senderLabel(id, name string) string {
	switch {
	case name != "" && id != "":
		return fmt.Sprintf("%s (%s)", name, id)
	case name != "":
		return name
	case id != "":
		return id
	default:
		return "desconocido"
	}
}
