package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"anonrelay/backend/internal/config"
	"anonrelay/backend/internal/domain"
	"anonrelay/backend/internal/monitoring"
	"anonrelay/backend/internal/security"
	"anonrelay/backend/internal/storage"
)

// Messenger 定义消息投递协作方（Slack Web API 的抽象）。
type Messenger interface {
	// OpenConversation 解析用户的私信通道，失败视为本次投递的致命错误
	OpenConversation(ctx context.Context, userID string) (string, error)
	// PostMessage 向通道投递消息（纯文本回退 + 富文本）
	PostMessage(ctx context.Context, channelID string, text string, blocks []domain.Block) error
}

// 用户可见的应答文案
const (
	replyEmptyCommand = "Escribí a quién y qué querés decir después del comando."
	replyMissingBody  = "Escribí un mensaje después de mencionar al destinatario."
	replyMissingReply = "Escribí un mensaje después del token para responder."
	replyForbidden    = "Ese token no te pertenece, así que no podés usarlo para responder."
	replyUsageHint    = "No entendí el comando. Usá `/amigo @usuario mensaje` para mandar un mensaje anónimo, " +
		"o `/amigo <token> respuesta` para responder a uno que recibiste."
)

// RelayService 编排一次斜杠命令的完整处理：
// 解析、授权、令牌签发/兑换、消息投递与审计分发。
// 服务自身不保存跨调用状态；每条命令在给定存储下都是无状态处理。
type RelayService struct {
	tokens      *TokenService
	messenger   Messenger
	auditUserID string
	metrics     *monitoring.Metrics
	log         *zap.Logger
}

// NewRelayService 创建中继编排服务。
func NewRelayService(tokens *TokenService, messenger Messenger, cfg *config.Config, metrics *monitoring.Metrics, log *zap.Logger) *RelayService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RelayService{
		tokens:      tokens,
		messenger:   messenger,
		auditUserID: cfg.Slack.AuditUserID,
		metrics:     metrics,
		log:         log,
	}
}

// HandleCommand 处理一次斜杠命令调用。
//
// 用户输入类错误（空命令、缺正文、未知令牌、无权使用）以友好文案应答且不产生副作用；
// 主投递失败向上传播，由 HTTP 层转换为通用错误；审计投递失败只记日志，绝不影响主应答。
func (s *RelayService) HandleCommand(ctx context.Context, req domain.CommandRequest) (*domain.CommandReply, error) {
	intent := ParseCommand(req.Text)
	intent.Message = security.SanitizeMessage(intent.Message)

	switch intent.Kind {
	case domain.IntentMention:
		if intent.Message == "" {
			s.recordCommand("mention_missing_body")
			return domain.NewEphemeralReply(replyMissingBody), nil
		}
		return s.handleMention(ctx, req, intent)

	case domain.IntentTokenReply:
		if intent.Message == "" {
			s.recordCommand("reply_missing_body")
			return domain.NewEphemeralReply(replyMissingReply), nil
		}
		return s.handleTokenReply(ctx, req, intent)

	default:
		if strings.TrimSpace(req.Text) == "" {
			s.recordCommand("empty")
			return domain.NewEphemeralReply(replyEmptyCommand), nil
		}
		s.recordCommand("unrecognized")
		return domain.NewEphemeralReply(replyUsageHint), nil
	}
}

// handleMention 处理新匿名消息：签发令牌、投递首次联络消息、分发审计副本。
func (s *RelayService) handleMention(ctx context.Context, req domain.CommandRequest, intent domain.CommandIntent) (*domain.CommandReply, error) {
	token, err := s.tokens.Issue(req.UserID, req.UserName, intent.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue reply token: %w", err)
	}
	if s.metrics != nil {
		s.metrics.TokensIssued.Inc()
	}

	// 令牌签发完成后才能组装首次联络消息（正文内嵌令牌）
	msg := ComposeFirstContact(intent.RecipientID, intent.Message, token)
	if err := s.deliver(ctx, msg, "primary"); err != nil {
		return nil, err
	}

	if s.auditUserID != "" {
		audit := ComposeAuditFirstContact(s.auditUserID, req.UserID, req.UserName, intent.RecipientID, intent.Message, token)
		s.deliverAudit(ctx, audit)
	}

	s.recordCommand("mention_sent")
	return domain.NewEphemeralReply(fmt.Sprintf(
		"Tu mensaje fue enviado de forma anónima a <@%s>. Token de respuesta emitido: `%s`.",
		intent.RecipientID, token,
	)), nil
}

// handleTokenReply 处理令牌回复：兑换、授权检查、向原始发送者投递回复。
func (s *RelayService) handleTokenReply(ctx context.Context, req domain.CommandRequest, intent domain.CommandIntent) (*domain.CommandReply, error) {
	binding, err := s.tokens.Redeem(intent.Token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			s.recordCommand("reply_token_not_found")
			return domain.NewEphemeralReply(fmt.Sprintf(
				"No reconozco el token `%s`. Revisá que esté bien escrito.", intent.Token,
			)), nil
		}
		return nil, fmt.Errorf("failed to redeem reply token: %w", err)
	}

	// 只有绑定的收件人可以兑换；拒绝时不泄露令牌真正的归属
	if binding.RecipientID != req.UserID {
		s.recordCommand("reply_forbidden")
		return domain.NewEphemeralReply(replyForbidden), nil
	}
	if s.metrics != nil {
		s.metrics.TokensRedeemed.Inc()
	}

	msg := ComposeReply(binding.SenderID, req.UserID, req.UserName, intent.Message)
	if err := s.deliver(ctx, msg, "primary"); err != nil {
		return nil, err
	}

	if s.auditUserID != "" {
		audit := ComposeAuditReply(s.auditUserID, req.UserID, req.UserName, binding.SenderID, intent.Message)
		s.deliverAudit(ctx, audit)
	}

	s.recordCommand("reply_sent")
	return domain.NewEphemeralReply(
		"Tu respuesta fue enviada. El autor del mensaje original ahora conoce tu identidad.",
	), nil
}

// deliver 解析收件人的私信通道并投递消息。
func (s *RelayService) deliver(ctx context.Context, msg domain.OutboundMessage, kind string) error {
	channelID, err := s.messenger.OpenConversation(ctx, msg.RecipientID)
	if err != nil {
		s.recordDelivery(kind, "error")
		return fmt.Errorf("failed to open conversation with %s: %w", msg.RecipientID, err)
	}

	if err := s.messenger.PostMessage(ctx, channelID, msg.Text, msg.Blocks); err != nil {
		s.recordDelivery(kind, "error")
		return fmt.Errorf("failed to post message to %s: %w", msg.RecipientID, err)
	}

	s.recordDelivery(kind, "ok")
	return nil
}

// deliverAudit 尽力而为地投递审计副本：失败只记日志，不传播、不重试。
func (s *RelayService) deliverAudit(ctx context.Context, msg domain.OutboundMessage) {
	if err := s.deliver(ctx, msg, "audit"); err != nil {
		s.log.Warn("audit copy delivery failed",
			zap.String("audit_user_id", msg.RecipientID),
			zap.Error(err),
		)
	}
}

func (s *RelayService) recordCommand(outcome string) {
	if s.metrics != nil {
		s.metrics.CommandsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *RelayService) recordDelivery(kind, status string) {
	if s.metrics != nil {
		s.metrics.DeliveriesTotal.WithLabelValues(kind, status).Inc()
	}
}
