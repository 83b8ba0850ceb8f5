package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"anonrelay/backend/internal/domain"
	"anonrelay/backend/internal/storage"
)

// Store PostgreSQL 存储实现（pgx 连接池 + 原生 SQL）
type Store struct {
	pool *pgxpool.Pool
}

// NewStore 创建 PostgreSQL 存储并初始化表结构。
func NewStore(dsn string, maxConns, minConns int, maxConnLifetime time.Duration) (*Store, error) {
	pool, err := newPool(dsn, maxConns, minConns, maxConnLifetime)
	if err != nil {
		return nil, err
	}

	store := &Store{pool: pool}
	if err := store.migrate(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 创建令牌表（幂等）。
func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS reply_tokens (
			token        VARCHAR(12) PRIMARY KEY,
			sender_id    VARCHAR(36) NOT NULL,
			sender_name  VARCHAR(255),
			recipient_id VARCHAR(36) NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL,
			last_used_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_reply_tokens_recipient_id ON reply_tokens (recipient_id);
	`)
	return err
}

// SaveToken 保存令牌绑定。
// ON CONFLICT DO NOTHING 保证"不存在才插入"，冲突时返回 ErrTokenExists。
func (s *Store) SaveToken(token *domain.ReplyToken) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var senderName *string
	if token.SenderName != "" {
		senderName = &token.SenderName
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO reply_tokens (token, sender_id, sender_name, recipient_id, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token) DO NOTHING
	`, token.Token, token.SenderID, senderName, token.RecipientID, token.CreatedAt, token.LastUsedAt)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrTokenExists
	}
	return nil
}

// GetToken 根据令牌读取绑定。
func (s *Store) GetToken(token string) (*domain.ReplyToken, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		binding    domain.ReplyToken
		senderName *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT token, sender_id, sender_name, recipient_id, created_at, last_used_at
		FROM reply_tokens WHERE token = $1
	`, token).Scan(
		&binding.Token,
		&binding.SenderID,
		&senderName,
		&binding.RecipientID,
		&binding.CreatedAt,
		&binding.LastUsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if senderName != nil {
		binding.SenderName = *senderName
	}
	return &binding, nil
}

// TouchToken 更新令牌的最近使用时间。
func (s *Store) TouchToken(token string, usedAt time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
		UPDATE reply_tokens SET last_used_at = $2 WHERE token = $1
	`, token, usedAt)
	if err != nil {
		return fmt.Errorf("failed to touch token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrTokenNotFound
	}
	return nil
}

// Health 检查数据库连接。
func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Close 关闭连接池。
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
