package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/sshcollectorpro/switchinfo/internal/config"
	"github.com/sshcollectorpro/switchinfo/internal/model"
)

// Open 打开运行记录数据库并迁移表结构
func Open(cfg config.JournalConfig, log *logrus.Logger) (*gorm.DB, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("journal database path is empty")
	}
	// 确保数据库目录存在
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	gormConfig := &gorm.Config{
		Logger: gormLogger.New(
			log,
			gormLogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		// 单进程顺序写入，不需要每条语句的隐式事务
		SkipDefaultTransaction: true,
	}

	// 使用 modernc.org/sqlite 纯 Go 驱动
	dsn := cfg.Path + "?_pragma=busy_timeout(15000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn,
	}, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// 单连接，保证 PRAGMA 生效
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&model.Run{}, &model.CommandAttempt{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	log.WithField("path", cfg.Path).Debug("SQLite journal initialized")
	return db, nil
}

// Close 关闭数据库连接
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsBusyError 判断是否为 SQLite 锁相关错误
func IsBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

// WithRetry 检测到锁冲突（例如另一个进程正在写同一个库）时短暂退避重试
func WithRetry(db *gorm.DB, fn func(*gorm.DB) error, attempts int, sleep time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	if sleep <= 0 {
		sleep = 50 * time.Millisecond
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn(db)
		if err == nil || !IsBusyError(err) {
			return err
		}
		time.Sleep(sleep)
		if sleep < 500*time.Millisecond {
			sleep *= 2
		}
	}
	return err
}
