package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeFirstContact(t *testing.T) {
	msg := ComposeFirstContact("U2", "te admiro mucho", "a1b2c3")

	assert.Equal(t, "U2", msg.RecipientID)
	assert.Contains(t, msg.Text, "te admiro mucho")
	assert.Contains(t, msg.Text, "a1b2c3")
	// 正文不出现发送者身份
	assert.NotContains(t, msg.Text, "U1")

	require.Len(t, msg.Blocks, 3)
	assert.Equal(t, "section", msg.Blocks[0].Type)
	assert.Contains(t, msg.Blocks[0].Text.Text, "te admiro mucho")
	assert.Contains(t, msg.Blocks[1].Text.Text, "/amigo a1b2c3")
	assert.Equal(t, "context", msg.Blocks[2].Type)
	assert.Contains(t, msg.Blocks[2].Elements[0].Text, brandingFooter)
}

func TestComposeReply(t *testing.T) {
	t.Run("回复者有显示名时用显示名", func(t *testing.T) {
		msg := ComposeReply("U1", "U2", "maria", "gracias!")

		assert.Equal(t, "U1", msg.RecipientID)
		assert.Contains(t, msg.Text, "maria")
		assert.Contains(t, msg.Text, "gracias!")
	})

	t.Run("无显示名时退回平台提及", func(t *testing.T) {
		msg := ComposeReply("U1", "U2", "", "gracias!")

		assert.Contains(t, msg.Text, "<@U2>")
	})

	t.Run("身份全缺时用通用占位", func(t *testing.T) {
		msg := ComposeReply("U1", "", "", "gracias!")

		assert.Contains(t, msg.Text, "Alguien")
	})
}

func TestComposeAuditFirstContact(t *testing.T) {
	msg := ComposeAuditFirstContact("UAUDIT", "U1", "ana", "U2", "hola", "a1b2c3")

	assert.Equal(t, "UAUDIT", msg.RecipientID)
	// 审计副本必须揭示发送者身份与令牌
	assert.Contains(t, msg.Text, "ana (U1)")
	assert.Contains(t, msg.Text, "<@U2>")
	assert.Contains(t, msg.Text, "a1b2c3")
}

func TestComposeAuditReply(t *testing.T) {
	msg := ComposeAuditReply("UAUDIT", "U2", "maria", "U1", "gracias")

	assert.Equal(t, "UAUDIT", msg.RecipientID)
	assert.Contains(t, msg.Text, "maria (U2)")
	assert.Contains(t, msg.Text, "<@U1>")
	assert.Contains(t, msg.Text, "gracias")
}

func TestSenderLabel(t *testing.T) {
	assert.Equal(t, "ana (U1)", senderLabel("U1", "ana"))
	assert.Equal(t, "ana", senderLabel("", "ana"))
	assert.Equal(t, "U1", senderLabel("U1", ""))
	assert.Equal(t, "desconocido", senderLabel("", ""))
}
