package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"anonrelay/backend/internal/domain"
	"anonrelay/backend/internal/storage"
)

// ErrInvalidBinding 签发令牌时发送者或收件人为空
// （两者都来自已认证的命令上下文，属于编程契约检查而非用户输入校验）
var ErrInvalidBinding = errors.New("sender and recipient are required to issue a reply token")

// TokenService 封装回复令牌的签发与兑换。
type TokenService struct {
	repo storage.TokenRepository
	log  *zap.Logger
}

// NewTokenService 创建令牌业务服务。
func NewTokenService(repo storage.TokenRepository, log *zap.Logger) *TokenService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TokenService{
		repo: repo,
		log:  log,
	}
}

// Issue 为一对发送者/收件人签发新的回复令牌。
//
// 令牌为 3 字节加密随机数的十六进制表示；与现有令牌冲突时重新生成，
// 绝不覆盖已有绑定。返回前绑定已持久化。
func (s *TokenService) Issue(senderID, senderName, recipientID string) (string, error) {
	if strings.TrimSpace(senderID) == "" || strings.TrimSpace(recipientID) == "" {
		return "", ErrInvalidBinding
	}

	for {
		token, err := generateToken()
		if err != nil {
			return "", err
		}

		err = s.repo.SaveToken(&domain.ReplyToken{
			Token:       token,
			SenderID:    senderID,
			SenderName:  senderName,
			RecipientID: recipientID,
			CreatedAt:   time.Now().UTC(),
		})
		if errors.Is(err, storage.ErrTokenExists) {
			// 24 位熵下冲突概率极低，但必须处理而不是假设不会发生
			s.log.Debug("reply token collision, regenerating", zap.String("token", token))
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to persist reply token: %w", err)
		}

		return token, nil
	}
}

// Redeem 兑换令牌并返回完整绑定。
//
// 输入先规范化；空或格式非法的令牌直接返回未找到，不查存储。
// 每次成功兑换都会更新 lastUsedAt；令牌可重复兑换且无有效期。
func (s *TokenService) Redeem(token string) (*domain.ReplyToken, error) {
	normalized := domain.NormalizeToken(token)
	if !domain.ValidToken(normalized) {
		return nil, storage.ErrTokenNotFound
	}

	binding, err := s.repo.GetToken(normalized)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.TouchToken(normalized, now); err != nil {
		// lastUsedAt 是观测性元数据，更新失败不影响兑换
		s.log.Warn("failed to update token last used time",
			zap.String("token", normalized),
			zap.Error(err),
		)
	} else {
		binding.LastUsedAt = &now
	}

	return binding, nil
}

// generateToken 生成 6 个小写十六进制字符的随机令牌。
func generateToken() (string, error) {
	buf := make([]byte, domain.TokenLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
