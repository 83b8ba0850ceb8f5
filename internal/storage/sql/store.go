package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"anonrelay/backend/internal/domain"
	"anonrelay/backend/internal/storage"
)

// Store SQL 数据库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）
type Store struct {
	db         *sql.DB
	gormDB     *gorm.DB
	driverName string // "mysql" or "postgres"
}

// NewStore 创建SQL数据库存储
func NewStore(
	driverName string,
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
) (*Store, error) {
	// 验证驱动类型
	if driverName != "mysql" && driverName != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", driverName)
	}

	// 打开数据库连接
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 初始化 GORM（复用已有连接池）
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var gormDB *gorm.DB
	if driverName == "mysql" {
		gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: db}), gormConfig)
	} else {
		gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: db}), gormConfig)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	// 自动执行数据库迁移
	if err := gormDB.AutoMigrate(&domain.ReplyToken{}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{
		db:         db,
		gormDB:     gormDB,
		driverName: driverName,
	}, nil
}

// SaveToken 保存令牌绑定。
// 通过 ON CONFLICT DO NOTHING 保证"不存在才插入"，冲突时返回 ErrTokenExists。
func (s *Store) SaveToken(token *domain.ReplyToken) error {
	result := s.gormDB.Clauses(clause.OnConflict{DoNothing: true}).Create(token)
	if result.Error != nil {
		return fmt.Errorf("failed to save token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrTokenExists
	}
	return nil
}

// GetToken 根据令牌读取绑定。
func (s *Store) GetToken(token string) (*domain.ReplyToken, error) {
	var binding domain.ReplyToken
	result := s.gormDB.First(&binding, "token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", result.Error)
	}
	return &binding, nil
}

// TouchToken 更新令牌的最近使用时间。
func (s *Store) TouchToken(token string, usedAt time.Time) error {
	result := s.gormDB.Model(&domain.ReplyToken{}).
		Where("token = ?", token).
		Update("last_used_at", usedAt)
	if result.Error != nil {
		return fmt.Errorf("failed to touch token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrTokenNotFound
	}
	return nil
}

// Health 检查数据库连接。
func (s *Store) Health() error {
	return s.db.Ping()
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
