package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"anonrelay/backend/internal/domain"
	"anonrelay/backend/internal/storage"
)

// Store Redis 存储实现。
// SetNX 提供原子的"不存在才插入"；键不设 TTL（令牌无有效期）。
type Store struct {
	client *goredis.Client
}

// NewStore 创建 Redis 存储实例。
func NewStore(addr, password string, db int) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client}, nil
}

// SaveToken 保存令牌绑定；键已存在时返回 ErrTokenExists。
func (s *Store) SaveToken(token *domain.ReplyToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// 0 表示永不过期：令牌可无限期兑换
	ok, err := s.client.SetNX(ctx, tokenKey(token.Token), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if !ok {
		return storage.ErrTokenExists
	}
	return nil
}

// GetToken 根据令牌读取绑定。
func (s *Store) GetToken(token string) (*domain.ReplyToken, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	data, err := s.client.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var binding domain.ReplyToken
	if err := json.Unmarshal([]byte(data), &binding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &binding, nil
}

// TouchToken 更新令牌的最近使用时间。
// 读取-回写不是原子操作；lastUsedAt 属于观测性元数据，丢失更新可容忍。
func (s *Store) TouchToken(token string, usedAt time.Time) error {
	binding, err := s.GetToken(token)
	if err != nil {
		return err
	}

	binding.LastUsedAt = &usedAt

	data, err := json.Marshal(binding)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.client.Set(ctx, tokenKey(token), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to touch token: %w", err)
	}
	return nil
}

// Health 检查 Redis 连接。
func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接。
func (s *Store) Close() error {
	return s.client.Close()
}

// tokenKey 令牌键：reply_token:{token}
func tokenKey(token string) string {
	return fmt.Sprintf("reply_token:%s", token)
}
