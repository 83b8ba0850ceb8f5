package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 4000
}

// SlackConfig 定义 Slack 平台接入配置
type SlackConfig struct {
	BotToken      string // Bot 用户凭证（xoxb-...），缺失时命令在请求期被拒绝
	SigningSecret string // 请求签名密钥，缺失时签名校验在请求期被拒绝
	AuditUserID   string // 审计收件人的用户ID，留空表示不分发审计副本
	APIBaseURL    string // Slack Web API 基地址，默认官方地址（测试时可替换）
}

// StorageConfig 定义令牌存储后端配置
type StorageConfig struct {
	Type string // 存储类型: "filesystem"（默认）, "memory", "sql", "postgres", "redis"
	Path string // filesystem 类型的数据目录，默认 "./data/relay-storage"
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"（storage.type=sql 时生效）
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 存储配置
type RedisConfig struct {
	Address  string // Redis 服务地址，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	LogFile     string // 日志文件路径，留空表示仅输出到标准输出
}

// KeepAliveConfig 定义保活自检配置（免费托管平台防休眠）
type KeepAliveConfig struct {
	URL      string        // 被 ping 的地址，留空表示禁用
	Interval time.Duration // ping 间隔，默认 10 分钟
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig
	Slack     SlackConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	KeepAlive KeepAliveConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//   1. 系统环境变量（最高优先级）
//   2. .env 文件（如果存在）
//   3. 默认值
//
// 环境变量前缀: ANONRELAY_
// 例如: ANONRELAY_SERVER_PORT, ANONRELAY_SLACK_BOT_TOKEN
//
// 注意：Slack 凭证缺失不会导致 Load 失败——按错误分类设计，
// 配置缺失在请求处理期被拒绝并记录 error 日志，用户收到"未配置"提示。
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("anonrelay")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 4000)
	viper.SetDefault("slack.bot_token", "")
	viper.SetDefault("slack.signing_secret", "")
	viper.SetDefault("slack.audit_user_id", "")
	viper.SetDefault("slack.api_base_url", "https://slack.com/api")
	viper.SetDefault("storage.type", "filesystem")
	viper.SetDefault("storage.path", "./data/relay-storage")
	viper.SetDefault("database.type", "")
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.log_file", "")
	viper.SetDefault("keepalive.url", "")
	viper.SetDefault("keepalive.interval", "10m")

	storageType := strings.ToLower(viper.GetString("storage.type"))
	switch storageType {
	case "memory", "filesystem", "sql", "postgres", "redis":
	default:
		return nil, fmt.Errorf("invalid storage.type: %q (supported: memory, filesystem, sql, postgres, redis)", storageType)
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	keepAliveInterval, err := time.ParseDuration(viper.GetString("keepalive.interval"))
	if err != nil || keepAliveInterval <= 0 {
		keepAliveInterval = 10 * time.Minute
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Slack: SlackConfig{
			BotToken:      strings.TrimSpace(viper.GetString("slack.bot_token")),
			SigningSecret: strings.TrimSpace(viper.GetString("slack.signing_secret")),
			AuditUserID:   strings.TrimSpace(viper.GetString("slack.audit_user_id")),
			APIBaseURL:    strings.TrimRight(viper.GetString("slack.api_base_url"), "/"),
		},
		Storage: StorageConfig{
			Type: storageType,
			Path: viper.GetString("storage.path"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			LogFile:     viper.GetString("log.log_file"),
		},
		KeepAlive: KeepAliveConfig{
			URL:      viper.GetString("keepalive.url"),
			Interval: keepAliveInterval,
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//   1. 当前目录的 .env
//   2. 父目录的 .env（从子目录运行时）
//
// 环境变量不会被覆盖（已存在的环境变量优先级更高）
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
