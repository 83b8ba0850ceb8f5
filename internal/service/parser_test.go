package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"anonrelay/backend/internal/domain"
)

func TestParseCommand_Mention(t *testing.T) {
	t.Run("提及加正文", func(t *testing.T) {
		intent := ParseCommand("<@U123> hello there")

		assert.Equal(t, domain.IntentMention, intent.Kind)
		assert.Equal(t, "U123", intent.RecipientID)
		assert.Equal(t, "hello there", intent.Message)
	})

	t.Run("带显示名的提及", func(t *testing.T) {
		intent := ParseCommand("<@U123|juan.perez> hola")

		assert.Equal(t, domain.IntentMention, intent.Kind)
		assert.Equal(t, "U123", intent.RecipientID)
		assert.Equal(t, "hola", intent.Message)
	})

	t.Run("只有提及没有正文", func(t *testing.T) {
		intent := ParseCommand("<@U123>")

		assert.Equal(t, domain.IntentMention, intent.Kind)
		assert.Equal(t, "U123", intent.RecipientID)
		assert.Empty(t, intent.Message)
	})

	t.Run("小写用户ID规范化为大写", func(t *testing.T) {
		intent := ParseCommand("<@u042abc> hola")

		assert.Equal(t, domain.IntentMention, intent.Kind)
		assert.Equal(t, "U042ABC", intent.RecipientID)
	})

	t.Run("正文保留内部换行", func(t *testing.T) {
		intent := ParseCommand("<@U123> línea uno\nlínea dos")

		assert.Equal(t, "línea uno\nlínea dos", intent.Message)
	})

	t.Run("提及不在开头不算提及", func(t *testing.T) {
		intent := ParseCommand("hola <@U123>")

		assert.Equal(t, domain.IntentUnknown, intent.Kind)
	})
}

func TestParseCommand_TokenReply(t *testing.T) {
	t.Run("令牌加正文", func(t *testing.T) {
		intent := ParseCommand("a1b2c3 thanks!")

		assert.Equal(t, domain.IntentTokenReply, intent.Kind)
		assert.Equal(t, "a1b2c3", intent.Token)
		assert.Equal(t, "thanks!", intent.Message)
	})

	t.Run("大写令牌规范化为小写", func(t *testing.T) {
		intent := ParseCommand("A1B2C3 gracias")

		assert.Equal(t, domain.IntentTokenReply, intent.Kind)
		assert.Equal(t, "a1b2c3", intent.Token)
	})

	t.Run("只有令牌没有正文", func(t *testing.T) {
		intent := ParseCommand("c0ffee")

		assert.Equal(t, domain.IntentTokenReply, intent.Kind)
		assert.Equal(t, "c0ffee", intent.Token)
		assert.Empty(t, intent.Message)
	})

	t.Run("十二位十六进制也算令牌", func(t *testing.T) {
		intent := ParseCommand("deadbeef0123 hola")

		assert.Equal(t, domain.IntentTokenReply, intent.Kind)
		assert.Equal(t, "deadbeef0123", intent.Token)
	})

	t.Run("正文保留内部换行", func(t *testing.T) {
		intent := ParseCommand("a1b2c3 primera\nsegunda")

		assert.Equal(t, "primera\nsegunda", intent.Message)
	})

	t.Run("五位十六进制不算令牌", func(t *testing.T) {
		intent := ParseCommand("abcde hola")

		assert.Equal(t, domain.IntentUnknown, intent.Kind)
	})

	t.Run("非十六进制前缀不算令牌", func(t *testing.T) {
		intent := ParseCommand("zzzzzz hola")

		assert.Equal(t, domain.IntentUnknown, intent.Kind)
	})
}

func TestParseCommand_Unknown(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"空字符串", ""},
		{"纯空白", "   \t  "},
		{"普通文字", "hola que tal"},
		{"裸@用户名", "@juan hola"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intent := ParseCommand(tc.text)
			assert.Equal(t, domain.IntentUnknown, intent.Kind)
		})
	}
}
