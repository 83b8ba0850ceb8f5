package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anonrelay/backend/internal/domain"
	"anonrelay/backend/internal/middleware"
	"anonrelay/backend/internal/service"
	"anonrelay/backend/internal/slack"
)

// replyInternalError 投递失败时的通用应答，不向用户暴露内部细节
const replyInternalError = "Ups, no pude entregar tu mensaje. Probá de nuevo en un rato."

// replyNotConfigured Bot 凭证缺失时的应答（配置错误，而非投递故障）
const replyNotConfigured = "El bot no está configurado para enviar mensajes. Avisale a quien administra el espacio de trabajo."

// CommandHandler 斜杠命令处理器
type CommandHandler struct {
	relay  *service.RelayService
	logger *zap.Logger
}

// NewCommandHandler 创建斜杠命令处理器
func NewCommandHandler(relay *service.RelayService, logger *zap.Logger) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{
		relay:  relay,
		logger: logger,
	}
}

// HandleSlashCommand 处理 Slack 斜杠命令回调。
//
// Slack 以 application/x-www-form-urlencoded 表单提交；
// 所有业务结果（包括用户输入错误）都以 200 + ephemeral JSON 应答，
// 只有投递等内部故障返回 500，并附带通用文案供 Slack 展示。
func (h *CommandHandler) HandleSlashCommand(c *gin.Context) {
	req := domain.CommandRequest{
		Text:     c.PostForm("text"),
		UserID:   c.PostForm("user_id"),
		UserName: c.PostForm("user_name"),
	}

	reply, err := h.relay.HandleCommand(c.Request.Context(), req)
	if err != nil {
		// Bot 凭证缺失是配置错误：记 error 日志，用户看到"未配置"提示
		if errors.Is(err, slack.ErrNotConfigured) {
			h.logger.Error("slack bot token is not configured",
				zap.String("user_id", req.UserID),
				zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			)
			c.JSON(http.StatusOK, domain.NewEphemeralReply(replyNotConfigured))
			return
		}

		h.logger.Error("slash command failed",
			zap.String("user_id", req.UserID),
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, domain.NewEphemeralReply(replyInternalError))
		return
	}

	c.JSON(http.StatusOK, reply)
}
