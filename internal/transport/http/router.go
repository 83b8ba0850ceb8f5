package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anonrelay/backend/internal/config"
	"anonrelay/backend/internal/health"
	"anonrelay/backend/internal/middleware"
	"anonrelay/backend/internal/monitoring"
	"anonrelay/backend/internal/service"
)

// maxCommandBodyBytes 斜杠命令请求体上限（Slack 表单很小，64KB 足够）
const maxCommandBodyBytes = 64 * 1024

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config        *config.Config
	RelayService  *service.RelayService
	HealthChecker *health.HealthChecker
	Metrics       *monitoring.Metrics
	Logger        *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 指标未启用时退回 Gin 自带的恢复中间件
	var mon *middleware.MonitoringMiddleware
	if deps.Metrics != nil {
		mon = middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
		router.Use(mon.PanicRecovery())
	} else {
		router.Use(gin.Recovery())
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	if mon != nil {
		router.Use(mon.HTTPMetrics())
	}
	router.Use(middleware.BodySizeLimit(maxCommandBodyBytes))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := NewCommandHandler(deps.RelayService, deps.Logger)
	signatureAuth := middleware.NewSignatureAuth(deps.Config.Slack.SigningSecret, deps.Logger)

	// 保活探测端点（托管平台与自 ping 使用）
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// 存活/就绪探针
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveEndpoint()))
		router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint()))
	}

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// ========== Slack Routes ==========
	slackRoutes := router.Group("/slack")
	slackRoutes.Use(signatureAuth.RequireSignature())
	{
		slackRoutes.POST("/commands", handler.HandleSlashCommand)
	}

	return router
}
