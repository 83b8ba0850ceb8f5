package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonrelay/backend/internal/domain"
	"anonrelay/backend/internal/storage"
)

func newTestToken(token string) *domain.ReplyToken {
	return &domain.ReplyToken{
		Token:       token,
		SenderID:    "U111",
		SenderName:  "ana",
		RecipientID: "U222",
		CreatedAt:   time.Now().UTC(),
	}
}

func TestStore_SaveAndGetToken(t *testing.T) {
	store := NewStore()

	t.Run("保存并读取令牌成功", func(t *testing.T) {
		err := store.SaveToken(newTestToken("a1b2c3"))
		require.NoError(t, err)

		binding, err := store.GetToken("a1b2c3")
		require.NoError(t, err)
		assert.Equal(t, "U111", binding.SenderID)
		assert.Equal(t, "ana", binding.SenderName)
		assert.Equal(t, "U222", binding.RecipientID)
		assert.Nil(t, binding.LastUsedAt)
	})

	t.Run("重复保存同一令牌返回冲突", func(t *testing.T) {
		err := store.SaveToken(newTestToken("a1b2c3"))
		assert.ErrorIs(t, err, storage.ErrTokenExists)

		// 冲突不得覆盖原有绑定
		binding, err := store.GetToken("a1b2c3")
		require.NoError(t, err)
		assert.Equal(t, "U111", binding.SenderID)
	})

	t.Run("读取不存在的令牌失败", func(t *testing.T) {
		binding, err := store.GetToken("ffffff")
		assert.ErrorIs(t, err, storage.ErrTokenNotFound)
		assert.Nil(t, binding)
	})
}

func TestStore_TouchToken(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveToken(newTestToken("0fc1d2")))

	t.Run("更新最近使用时间成功", func(t *testing.T) {
		usedAt := time.Now().UTC()
		err := store.TouchToken("0fc1d2", usedAt)
		require.NoError(t, err)

		binding, err := store.GetToken("0fc1d2")
		require.NoError(t, err)
		require.NotNil(t, binding.LastUsedAt)
		assert.Equal(t, usedAt, *binding.LastUsedAt)
	})

	t.Run("重复更新保持非递减", func(t *testing.T) {
		later := time.Now().UTC().Add(time.Minute)
		require.NoError(t, store.TouchToken("0fc1d2", later))

		binding, err := store.GetToken("0fc1d2")
		require.NoError(t, err)
		assert.Equal(t, later, *binding.LastUsedAt)
	})

	t.Run("更新不存在的令牌失败", func(t *testing.T) {
		err := store.TouchToken("ffffff", time.Now().UTC())
		assert.ErrorIs(t, err, storage.ErrTokenNotFound)
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveToken(newTestToken("abc123")))

	// 修改返回值不得影响存储内部状态
	binding, err := store.GetToken("abc123")
	require.NoError(t, err)
	binding.RecipientID = "U999"

	again, err := store.GetToken("abc123")
	require.NoError(t, err)
	assert.Equal(t, "U222", again.RecipientID)
}

func TestStore_ConcurrentSave(t *testing.T) {
	store := NewStore()

	const writers = 32
	var wg sync.WaitGroup
	conflicts := make([]error, writers)

	// 所有协程竞争同一令牌，必须恰好一个成功
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := newTestToken("c0ffee")
			tok.SenderID = fmt.Sprintf("U%03d", i)
			conflicts[i] = store.SaveToken(tok)
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range conflicts {
		if err == nil {
			success++
		} else {
			assert.ErrorIs(t, err, storage.ErrTokenExists)
		}
	}
	assert.Equal(t, 1, success)
}
