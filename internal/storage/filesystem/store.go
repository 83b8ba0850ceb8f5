package filesystem

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"anonrelay/backend/internal/domain"
	"anonrelay/backend/internal/storage"
)

// Store 文件系统存储实现：每个令牌一个 JSON 文件。
// 绑定在进程重启后仍然可用；O_EXCL 创建保证"不存在才插入"的原子性。
type Store struct {
	basePath string // 令牌存储根目录
}

// NewStore 创建文件系统存储实例。
func NewStore(basePath string) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	// 确保令牌目录存在
	if err := os.MkdirAll(filepath.Join(basePath, "tokens"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{basePath: basePath}, nil
}

// SaveToken 保存令牌绑定；令牌已存在时返回 ErrTokenExists，不覆盖。
func (s *Store) SaveToken(token *domain.ReplyToken) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	// O_EXCL：文件已存在即失败，避免并发签发覆盖同一令牌
	file, err := os.OpenFile(s.tokenFile(token.Token), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return storage.ErrTokenExists
		}
		return fmt.Errorf("failed to create token file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(file.Name())
		return fmt.Errorf("failed to write token file: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}

	return nil
}

// GetToken 根据令牌读取绑定。
func (s *Store) GetToken(token string) (*domain.ReplyToken, error) {
	data, err := os.ReadFile(s.tokenFile(token))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var binding domain.ReplyToken
	if err := json.Unmarshal(data, &binding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &binding, nil
}

// TouchToken 更新令牌的最近使用时间并重写文件。
func (s *Store) TouchToken(token string, usedAt time.Time) error {
	binding, err := s.GetToken(token)
	if err != nil {
		return err
	}

	binding.LastUsedAt = &usedAt

	data, err := json.MarshalIndent(binding, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(s.tokenFile(token), data, 0644); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// Health 检查存储目录是否可写。
func (s *Store) Health() error {
	probe := filepath.Join(s.basePath, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("storage path not writable: %w", err)
	}
	return os.Remove(probe)
}

// Close 关闭存储（文件系统实现为空操作）。
func (s *Store) Close() error {
	return nil
}

// tokenFile 令牌文件路径：{basePath}/tokens/{token}.json
func (s *Store) tokenFile(token string) string {
	return filepath.Join(s.basePath, "tokens", token+".json")
}
