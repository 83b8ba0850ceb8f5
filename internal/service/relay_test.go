package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonrelay/backend/internal/config"
	"anonrelay/backend/internal/domain"
	"anonrelay/backend/internal/storage/memory"
)

// postedMessage 记录一次投递
type postedMessage struct {
	ChannelID string
	Text      string
	Blocks    []domain.Block
}

// fakeMessenger Messenger 的内存替身，通道ID为 "D" + 用户ID。
type fakeMessenger struct {
	mu      sync.Mutex
	posts   []postedMessage
	openErr map[string]error // 按用户ID注入 OpenConversation 失败
	postErr map[string]error // 按通道ID注入 PostMessage 失败
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		openErr: make(map[string]error),
		postErr: make(map[string]error),
	}
}

func (f *fakeMessenger) OpenConversation(_ context.Context, userID string) (string, error) {
	if err := f.openErr[userID]; err != nil {
		return "", err
	}
	return "D" + userID, nil
}

func (f *fakeMessenger) PostMessage(_ context.Context, channelID, text string, blocks []domain.Block) error {
	if err := f.postErr[channelID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, postedMessage{ChannelID: channelID, Text: text, Blocks: blocks})
	return nil
}

// postsTo 返回投递到指定用户私信通道的所有消息
func (f *fakeMessenger) postsTo(userID string) []postedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []postedMessage
	for _, p := range f.posts {
		if p.ChannelID == "D"+userID {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeMessenger) totalPosts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

// newTestRelay 组装一个内存存储上的中继服务
func newTestRelay(messenger Messenger, auditUserID string) *RelayService {
	cfg := &config.Config{}
	cfg.Slack.AuditUserID = auditUserID
	tokens := NewTokenService(memory.NewStore(), nil)
	return NewRelayService(tokens, messenger, cfg, nil, nil)
}

// confirmationTokenPattern 确认文案里反引号包裹的令牌
var confirmationTokenPattern = regexp.MustCompile("`([0-9a-f]{6})`")

// extractToken 从确认文案里取出签发的令牌
func extractToken(t *testing.T, confirmation string) string {
	t.Helper()
	m := confirmationTokenPattern.FindStringSubmatch(confirmation)
	require.NotNil(t, m, "confirmation %q does not contain a token", confirmation)
	return m[1]
}

func TestRelayService_HandleCommand_Mention(t *testing.T) {
	ctx := context.Background()

	t.Run("匿名消息投递给收件人且不暴露发送者", func(t *testing.T) {
		messenger := newFakeMessenger()
		relay := newTestRelay(messenger, "")

		reply, err := relay.HandleCommand(ctx, domain.CommandRequest{
			Text:     "<@U2> te admiro mucho",
			UserID:   "U1",
			UserName: "ana",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ResponseEphemeral, reply.ResponseType)
		assert.Contains(t, reply.Text, "<@U2>")

		delivered := messenger.postsTo("U2")
		require.Len(t, delivered, 1)
		assert.Contains(t, delivered[0].Text, "te admiro mucho")
		assert.NotContains(t, delivered[0].Text, "U1")
		assert.NotContains(t, delivered[0].Text, "ana")
	})

	t.Run("确认文案里的令牌可用于回复", func(t *testing.T) {
		messenger := newFakeMessenger()
		relay := newTestRelay(messenger, "")

		reply, err := relay.HandleCommand(ctx, domain.CommandRequest{
			Text: "<@U2> hola", UserID: "U1", UserName: "ana",
		})
		require.NoError(t, err)
		token := extractToken(t, reply.Text)

		// 收件人用令牌回复
		reply, err = relay.HandleCommand(ctx, domain.CommandRequest{
			Text: token + " gracias!", UserID: "U2", UserName: "maria",
		})
		require.NoError(t, err)
		assert.Contains(t, reply.Text, "identidad")

		// 回复送达原始发送者并揭示回复者身份
		delivered := messenger.postsTo("U1")
		require.Len(t, delivered, 1)
		assert.Contains(t, delivered[0].Text, "maria")
		assert.Contains(t, delivered[0].Text, "gracias!")
	})

	t.Run("缺正文时提示且无副作用", func(t *testing.T) {
		messenger := newFakeMessenger()
		relay := newTestRelay(messenger, "")

		reply, err := relay.HandleCommand(ctx, domain.CommandRequest{
			Text: "<@U2>", UserID: "U1",
		})
		require.NoError(t, err)
		assert.Equal(t, replyMissingBody, reply.Text)
		assert.Zero(t, messenger.totalPosts())
	})

	t.Run("配置审计收件人时分发揭示身份的副本", func(t *testing.T) {
		messenger := newFakeMessenger()
		relay := newTestRelay(messenger, "UAUDIT")

		_, err := relay.HandleCommand(ctx, domain.CommandRequest{
			Text: "<@U2> hola", UserID: "U1", UserName: "ana",
		})
		require.NoError(t, err)

		audit := messenger.postsTo("UAUDIT")
		require.Len(t, audit, 1)
		assert.Contains(t, audit[0].Text, "ana (U1)")
		assert.Contains(t, audit[0].Text, "<@U2>")

		// 主消息照常匿名
		primary := messenger.postsTo("U2")
		require.Len(t, primary, 1)
		assert.NotContains(t, primary[0].Text, "ana")
	})

	t.Run("审计投递失败不影响主应答", func(t *testing.T) {
		messenger := newFakeMessenger()
		messenger.openErr["UAUDIT"] = errors.New("user_not_found")
		relay := newTestRelay(messenger, "UAUDIT")

		reply, err := relay.HandleCommand(ctx, domain.CommandRequest{
			Text: "<@U2> hola", UserID: "U1", UserName: "ana",
		})
		require.NoError(t, err)
		assert.Contains(t, reply.Text, "<@U2>")
		require.Len(t, messenger.postsTo("U2"), 1)
	})

	t.Run("主投递失败向上传播", func(t *testing.T) {
		messenger := newFakeMessenger()
		messenger.openErr["U2"] = errors.New("channel_not_found")
		relay := newTestRelay(messenger, "")

		_, err := relay.HandleCommand(ctx, domain.CommandRequest{
			Text: "<@U2> hola", UserID: "U1",
		})
		assert.Error(t, err)
	})
}

func TestRelayService_HandleCommand_TokenReply(t *testing.T) {
	ctx := context.Background()

	t.Run("未知令牌以友好文案应答", func(t *testing.T) {
		messenger := newFakeMessenger()
		relay := newTestRelay(messenger, "")

		reply, err := relay.HandleCommand(ctx, domain.CommandRequest{
			Text: "abcdef gracias", UserID: "U2",
		})
		require.NoError(t, err)
		assert.Contains(t, reply.Text, "abcdef")
		assert.Zero(t, messenger.totalPosts())
	})

	t.Run("非收件人兑换被拒且不泄露归属", func(t *testing.T) {
		messenger := newFakeMessenger()
		relay := newTestRelay(messenger, "")

		reply, err := relay.HandleCommand(ctx, domain.CommandRequest{
			Text: "<@U2> hola", UserID: "U1", UserName: "ana",
		})
		require.NoError(t, err)
		token := extractToken(t, reply.Text)

		reply, err = relay.HandleCommand(ctx, domain.CommandRequest{
			Text: token + " soy un intruso", UserID: "U99",
		})
		require.NoError(t, err)
		assert.Equal(t, replyForbidden, reply.Text)
		assert.NotContains(t, reply.Text, "U1")
		assert.NotContains(t, reply.Text, "U2")

		// 没有新的投递发生
		assert.Empty(t, messenger.postsTo("U1"))
	})

	t.Run("令牌可多次兑换", func(t *testing.T) {
		messenger := newFakeMessenger()
		relay := newTestRelay(messenger, "")

		reply, err := relay.HandleCommand(ctx, domain.CommandRequest{
			Text: "<@U2> hola", UserID: "U1", UserName: "ana",
		})
		require.NoError(t, err)
		token := extractToken(t, reply.Text)

		for i := 0; i < 2; i++ {
			_, err = relay.HandleCommand(ctx, domain.CommandRequest{
				Text: token + " respuesta", UserID: "U2", UserName: "maria",
			})
			require.NoError(t, err)
		}

		assert.Len(t, messenger.postsTo("U1"), 2)
	})

	t.Run("缺回复正文时提示", func(t *testing.T) {
		messenger := newFakeMessenger()
		relay := newTestRelay(messenger, "")

		reply, err := relay.HandleCommand(ctx, domain.CommandRequest{
			Text: "a1b2c3", UserID: "U2",
		})
		require.NoError(t, err)
		assert.Equal(t, replyMissingReply, reply.Text)
		assert.Zero(t, messenger.totalPosts())
	})
}

func TestRelayService_HandleCommand_Unknown(t *testing.T) {
	ctx := context.Background()

	t.Run("空命令提示用法", func(t *testing.T) {
		relay := newTestRelay(newFakeMessenger(), "")

		reply, err := relay.HandleCommand(ctx, domain.CommandRequest{Text: "   ", UserID: "U1"})
		require.NoError(t, err)
		assert.Equal(t, replyEmptyCommand, reply.Text)
	})

	t.Run("无法识别的文本返回用法说明", func(t *testing.T) {
		relay := newTestRelay(newFakeMessenger(), "")

		reply, err := relay.HandleCommand(ctx, domain.CommandRequest{Text: "hola que tal", UserID: "U1"})
		require.NoError(t, err)
		assert.Equal(t, replyUsageHint, reply.Text)
	})
}
