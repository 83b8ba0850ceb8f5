package security

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMessage(t *testing.T) {
	t.Run("普通消息原样保留", func(t *testing.T) {
		assert.Equal(t, "hola que tal", SanitizeMessage("hola que tal"))
	})

	t.Run("保留换行和制表符", func(t *testing.T) {
		assert.Equal(t, "línea uno\nlínea\tdos", SanitizeMessage("línea uno\nlínea\tdos"))
	})

	t.Run("移除控制字符", func(t *testing.T) {
		assert.Equal(t, "hola", SanitizeMessage("ho\x00la\x1b"))
	})

	t.Run("去除首尾空白", func(t *testing.T) {
		assert.Equal(t, "hola", SanitizeMessage("  hola  \n"))
	})

	t.Run("超长消息按字符截断", func(t *testing.T) {
		long := strings.Repeat("á", MaxMessageRunes+100)

		got := SanitizeMessage(long)

		assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxMessageRunes+1)
		assert.True(t, strings.HasSuffix(got, "…"))
		assert.True(t, utf8.ValidString(got))
	})

	t.Run("上限内的消息不截断", func(t *testing.T) {
		exact := strings.Repeat("a", MaxMessageRunes)

		assert.Equal(t, exact, SanitizeMessage(exact))
	})
}
