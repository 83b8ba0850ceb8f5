package health

import (
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"anonrelay/backend/internal/storage"
)

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	repo   storage.TokenRepository
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(repo storage.TokenRepository, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		repo:   repo,
		logger: logger,
	}

	hc.addChecks()

	return hc
}

// addChecks 添加健康检查
func (hc *HealthChecker) addChecks() {
	// 令牌存储连接检查
	hc.health.AddReadinessCheck("token-store", func() error {
		return hc.repo.Health()
	})

	// 协程数量检查（异常增长通常意味着泄漏）
	hc.health.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(200))
}

// LiveEndpoint 存活探针处理器
func (hc *HealthChecker) LiveEndpoint() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// ReadyEndpoint 就绪探针处理器
func (hc *HealthChecker) ReadyEndpoint() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}
