package memory

import (
	"sync"
	"time"

	"anonrelay/backend/internal/domain"
	"anonrelay/backend/internal/storage"
)

// Store 使用内存保存令牌绑定，主要用于开发验证与测试。
// 进程退出后数据丢失，生产环境应使用持久化后端。
type Store struct {
	mu     sync.RWMutex
	tokens map[string]*domain.ReplyToken
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		tokens: make(map[string]*domain.ReplyToken),
	}
}

// SaveToken 保存令牌绑定；令牌已存在时返回 ErrTokenExists，不覆盖。
func (s *Store) SaveToken(token *domain.ReplyToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token.Token]; ok {
		return storage.ErrTokenExists
	}

	clone := *token
	s.tokens[token.Token] = &clone
	return nil
}

// GetToken 根据令牌获取绑定。
func (s *Store) GetToken(token string) (*domain.ReplyToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	binding, ok := s.tokens[token]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}

	clone := *binding
	return &clone, nil
}

// TouchToken 更新令牌的最近使用时间。
func (s *Store) TouchToken(token string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	binding, ok := s.tokens[token]
	if !ok {
		return storage.ErrTokenNotFound
	}

	binding.LastUsedAt = &usedAt
	return nil
}

// Health 内存存储始终健康。
func (s *Store) Health() error {
	return nil
}

// Close 关闭存储（内存实现为空操作）。
func (s *Store) Close() error {
	return nil
}
