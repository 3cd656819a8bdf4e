package db

import (
	"context"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// Options 数据库连接参数.
type Options struct {
	Host                  string           // 数据库主机地址（如 "127.0.0.1:3306"）
	Username              string           // 数据库访问用户名
	Password              string           // 数据库访问密码
	Database              string           // 要连接的数据库名
	MaxIdleConnections    int              // 连接池中的最大空闲连接数
	MaxOpenConnections    int              // 与数据库的最大打开连接数
	MaxConnectionLifeTime time.Duration    // 连接的最大可重用时间
	LogLevel              int              // 日志级别（GORM 日志详细程度）
	Logger                logger.Interface // GORM 日志器实例
	TablePrefix           string
	Timeout               time.Duration // 单条语句超时
	SlowQueryThreshold    time.Duration
}

// DSN 使用驱动自带的 Config 拼接连接串.
func (opts *Options) DSN() string {
	cfg := mysqldriver.NewConfig()
	cfg.User = opts.Username
	cfg.Passwd = opts.Password
	cfg.Net = "tcp"
	cfg.Addr = opts.Host
	cfg.DBName = opts.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = 10 * time.Second
	cfg.ReadTimeout = 30 * time.Second
	cfg.WriteTimeout = 30 * time.Second
	// 运行期 DDL 需要多语句 ALTER
	cfg.MultiStatements = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// New 创建 mysql 连接池.
func New(opts *Options) (*gorm.DB, error) {
	setDefaultOptions(opts)

	db, err := gorm.Open(mysql.Open(opts.DSN()), gormConfig(opts))
	if err != nil {
		log.Errorf("打开数据库失败: %v", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
	sqlDB.SetConnMaxLifetime(opts.MaxConnectionLifeTime)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	addQueryTimeoutCallbacks(db, opts.Timeout)

	log.Infof("数据库连接池初始化完成: MaxOpenConns=%d, MaxIdleConns=%d, ConnMaxLifetime=%v",
		opts.MaxOpenConnections, opts.MaxIdleConnections, opts.MaxConnectionLifeTime)

	return db, nil
}

func gormConfig(opts *Options) *gorm.Config {
	return &gorm.Config{
		Logger:                                   opts.Logger,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   opts.TablePrefix,
			SingularTable: true,
		},
	}
}

func addQueryTimeoutCallbacks(db *gorm.DB, timeout time.Duration) {
	_ = db.Callback().Create().Before("gorm:create").Register("query_timeout:create", func(db *gorm.DB) {
		setQueryTimeout(db, timeout)
	})
	_ = db.Callback().Create().After("gorm:create").Register("query_timeout:create_cleanup", cleanupTimeout)

	_ = db.Callback().Query().Before("gorm:query").Register("query_timeout:query", func(db *gorm.DB) {
		setQueryTimeout(db, timeout)
	})
	_ = db.Callback().Query().After("gorm:query").Register("query_timeout:query_cleanup", cleanupTimeout)

	_ = db.Callback().Update().Before("gorm:update").Register("query_timeout:update", func(db *gorm.DB) {
		setQueryTimeout(db, timeout)
	})
	_ = db.Callback().Update().After("gorm:update").Register("query_timeout:update_cleanup", cleanupTimeout)

	_ = db.Callback().Delete().Before("gorm:delete").Register("query_timeout:delete", func(db *gorm.DB) {
		setQueryTimeout(db, timeout)
	})
	_ = db.Callback().Delete().After("gorm:delete").Register("query_timeout:delete_cleanup", cleanupTimeout)
}

// 请求上下文没有截止时间时补一个.
func setQueryTimeout(db *gorm.DB, timeout time.Duration) {
	parent := db.Statement.Context
	if parent == nil {
		parent = context.Background()
	}
	if _, ok := parent.Deadline(); ok {
		return
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	db.Statement.Context = ctx
	db.InstanceSet("query_timeout_cancel", cancel)
}

func cleanupTimeout(db *gorm.DB) {
	if cancel, ok := db.InstanceGet("query_timeout_cancel"); ok {
		if c, ok := cancel.(context.CancelFunc); ok {
			c()
		}
		db.InstanceSet("query_timeout_cancel", nil)
	}
}

func setDefaultOptions(opts *Options) {
	if opts.MaxOpenConnections <= 0 {
		opts.MaxOpenConnections = 100
	}
	if opts.MaxIdleConnections <= 0 {
		opts.MaxIdleConnections = 20
	}
	if opts.MaxConnectionLifeTime <= 0 {
		opts.MaxConnectionLifeTime = time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = newGormLogger(opts)
	}
}
