package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultSlowQueryThreshold = 200 * time.Millisecond
)

type gormLoggerAdapter struct {
	config logger.Config
}

func newGormLogger(opts *Options) logger.Interface {
	cfg := logger.Config{
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
		SlowThreshold:             opts.SlowQueryThreshold,
		LogLevel:                  toGormLogLevel(opts.LogLevel),
	}

	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = defaultSlowQueryThreshold
	}

	return &gormLoggerAdapter{config: cfg}
}

func (g *gormLoggerAdapter) LogMode(level logger.LogLevel) logger.Interface {
	clone := *g
	clone.config.LogLevel = level
	return &clone
}

func (g *gormLoggerAdapter) Info(ctx context.Context, msg string, args ...interface{}) {
	if g == nil || g.config.LogLevel < logger.Info {
		return
	}
	log.L(ctx).Infof("[gorm] %s", fmt.Sprintf(msg, args...))
}

func (g *gormLoggerAdapter) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g == nil || g.config.LogLevel < logger.Warn {
		return
	}
	log.L(ctx).Warnf("[gorm] %s", fmt.Sprintf(msg, args...))
}

func (g *gormLoggerAdapter) Error(ctx context.Context, msg string, args ...interface{}) {
	if g == nil || g.config.LogLevel < logger.Error {
		return
	}
	log.L(ctx).Errorf("[gorm] %s", fmt.Sprintf(msg, args...))
}

func (g *gormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g == nil || g.config.LogLevel == logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	rowCount := rows
	if rowCount < 0 {
		rowCount = 0
	}

	lg := log.L(ctx)
	switch {
	case err != nil && !(g.config.IgnoreRecordNotFoundError && errors.Is(err, gorm.ErrRecordNotFound)) &&
		g.config.LogLevel >= logger.Error:
		lg.Errorw("[gorm] 执行失败", "error", err, "elapsed", elapsed, "rows", rowCount, "sql", sql)
	case g.config.SlowThreshold > 0 && elapsed > g.config.SlowThreshold && g.config.LogLevel >= logger.Warn:
		lg.Warnw("[gorm] 慢查询", "threshold", g.config.SlowThreshold, "elapsed", elapsed, "rows", rowCount, "sql", sql)
	case g.config.LogLevel >= logger.Info:
		lg.Debugw("[gorm] 查询", "elapsed", elapsed, "rows", rowCount, "sql", sql)
	}
}

func toGormLogLevel(level int) logger.LogLevel {
	switch level {
	case 0:
		return logger.Silent
	case 1:
		return logger.Error
	case 2:
		return logger.Warn
	case 3:
		return logger.Info
	default:
		return logger.Info
	}
}
