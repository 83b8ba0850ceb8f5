package storage

import (
	"errors"
	"time"

	"anonrelay/backend/internal/domain"
)

var (
	// ErrTokenNotFound 令牌不存在错误
	ErrTokenNotFound = errors.New("reply token not found")
	// ErrTokenExists 令牌已存在错误（签发冲突，调用方应重新生成）
	ErrTokenExists = errors.New("reply token already exists")
)

// TokenRepository 定义回复令牌绑定的数据存取操作。
//
// SaveToken 必须是原子的"不存在才插入"：两个并发签发绝不能写入同一令牌，
// 冲突时返回 ErrTokenExists，由令牌服务重新生成。
type TokenRepository interface {
	SaveToken(token *domain.ReplyToken) error
	GetToken(token string) (*domain.ReplyToken, error)
	TouchToken(token string, usedAt time.Time) error // 更新 lastUsedAt（观测性元数据，丢失更新可容忍）
	Health() error
	Close() error
}
