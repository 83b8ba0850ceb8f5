package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"anonrelay/backend/internal/config"
	"anonrelay/backend/internal/health"
	"anonrelay/backend/internal/keepalive"
	"anonrelay/backend/internal/logger"
	"anonrelay/backend/internal/monitoring"
	"anonrelay/backend/internal/service"
	"anonrelay/backend/internal/slack"
	"anonrelay/backend/internal/storage"
	"anonrelay/backend/internal/storage/filesystem"
	"anonrelay/backend/internal/storage/memory"
	"anonrelay/backend/internal/storage/postgres"
	redisstore "anonrelay/backend/internal/storage/redis"
	sqlstore "anonrelay/backend/internal/storage/sql"
	httptransport "anonrelay/backend/internal/transport/http"
)

// main 启动匿名消息中继服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.LogFile,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting anonrelay server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("storage_type", cfg.Storage.Type),
	)

	if cfg.Slack.BotToken == "" {
		log.Warn("slack bot token is not configured, message delivery will fail")
	}
	if cfg.Slack.SigningSecret == "" {
		log.Warn("slack signing secret is not configured, command requests will be rejected")
	}

	// 初始化令牌存储
	store, err := initializeStorage(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close token store", zap.Error(err))
		}
	}()

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 初始化健康检查
	healthChecker := health.NewHealthChecker(store, log)

	// 初始化服务层
	tokenService := service.NewTokenService(store, log)
	slackClient := slack.NewClient(cfg.Slack.BotToken, cfg.Slack.APIBaseURL, log)
	relayService := service.NewRelayService(tokenService, slackClient, cfg, metrics, log)

	if cfg.Slack.AuditUserID != "" {
		log.Info("audit copies enabled", zap.String("audit_user_id", cfg.Slack.AuditUserID))
	}

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:        cfg,
		RelayService:  relayService,
		HealthChecker: healthChecker,
		Metrics:       metrics,
		Logger:        log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 保活自 ping goroutine（免费托管平台防休眠）
	if cfg.KeepAlive.URL != "" {
		pinger := keepalive.NewPinger(cfg.KeepAlive.URL, cfg.KeepAlive.Interval, log)
		group.Go(func() error {
			log.Info("starting keepalive pinger",
				zap.String("url", cfg.KeepAlive.URL),
				zap.Duration("interval", cfg.KeepAlive.Interval),
			)
			pinger.Run(groupCtx)
			return nil
		})
	}

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeStorage 根据配置选择令牌存储后端
func initializeStorage(cfg *config.Config, log *zap.Logger) (storage.TokenRepository, error) {
	switch cfg.Storage.Type {
	case "memory":
		log.Info("using memory token store (tokens are lost on restart)")
		return memory.NewStore(), nil

	case "filesystem":
		log.Info("using filesystem token store", zap.String("path", cfg.Storage.Path))
		return filesystem.NewStore(cfg.Storage.Path)

	case "sql":
		log.Info("using SQL token store", zap.String("database_type", cfg.Database.Type))
		return sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)

	case "postgres":
		log.Info("using PostgreSQL token store")
		return postgres.NewStore(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)

	case "redis":
		log.Info("using Redis token store", zap.String("address", cfg.Redis.Address))
		return redisstore.NewStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}
