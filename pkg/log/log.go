// Package log 是基于 zap 的全局日志封装.
package log

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	baselog "github.com/maxiaolu1981/cretem/nexuscore/log"
)

// 上下文中的日志字段名.
const (
	KeyRequestID = "requestID"
	KeyUsername  = "username"
)

// Field 是 zap.Field 的别名，调用方无需直接引入 zap.
type Field = zapcore.Field

var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Uint64   = zap.Uint64
	Bool     = zap.Bool
	Duration = zap.Duration
	Any      = zap.Any
	Err      = zap.Error
)

// Logger 带上下文字段的日志器.
type Logger struct {
	z *zap.Logger
}

var (
	mu  sync.RWMutex
	std = &Logger{z: zap.NewNop()}
)

func init() {
	Init(NewOptions())
}

// Init 按配置重建全局日志器.
func Init(opts *Options) {
	if opts == nil {
		opts = NewOptions()
	}
	z := New(opts)
	mu.Lock()
	std = &Logger{z: z}
	mu.Unlock()
	zap.RedirectStdLog(z)

	// nexuscore 组件（flag 打印等）使用同一套输出
	baselog.Init(&baselog.Options{
		Level:            opts.Level,
		Format:           encodingOf(opts.Format),
		EnableColor:      opts.EnableColor,
		EnableCaller:     !opts.DisableCaller,
		OutputPaths:      opts.OutputPaths,
		ErrorOutputPaths: opts.ErrorOutputPaths,
	})
}

// New 按配置创建 zap 日志器，非法配置回退到 info/console.
func New(opts *Options) *zap.Logger {
	if opts == nil {
		opts = NewOptions()
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(opts.Level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	encodeLevel := zapcore.CapitalLevelEncoder
	// 输出重定向到文件时不带颜色
	if encodingOf(opts.Format) == consoleFormat && opts.EnableColor && term.IsTerminal(int(os.Stdout.Fd())) {
		encodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encoding := encodingOf(opts.Format)

	cfg := &zap.Config{
		Level:             zap.NewAtomicLevelAt(zapLevel),
		Development:       opts.Development,
		DisableCaller:     opts.DisableCaller,
		DisableStacktrace: true,
		Encoding:          encoding,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "message",
			LevelKey:       "level",
			TimeKey:        "timestamp",
			NameKey:        "logger",
			CallerKey:      "caller",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encodeLevel,
			EncodeTime:     timeEncoder,
			EncodeDuration: milliSecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		},
		OutputPaths:      opts.OutputPaths,
		ErrorOutputPaths: opts.ErrorOutputPaths,
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.PanicLevel), zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewExample()
	}
	return l.Named(opts.Name)
}

func encodingOf(format string) string {
	if strings.ToLower(format) == jsonFormat {
		return jsonFormat
	}
	return consoleFormat
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func milliSecondsDurationEncoder(d time.Duration, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendFloat64(float64(d) / float64(time.Millisecond))
}

func global() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// ZapLogger 返回底层 zap 日志器，供 gorm 等组件适配.
func ZapLogger() *zap.Logger { return global().z }

// Flush 刷新缓冲的日志.
func Flush() { _ = global().z.Sync() }

// WithValues 返回附带键值对的日志器.
func WithValues(keysAndValues ...interface{}) *Logger {
	return &Logger{z: global().z.With(handleFields(keysAndValues)...)}
}

// WithName 返回命名子日志器.
func WithName(name string) *Logger {
	return &Logger{z: global().z.Named(name)}
}

// L 从 ctx 中取出 requestID/username 字段并返回日志器.
func L(ctx context.Context) *Logger {
	lg := global()
	if ctx == nil {
		return lg
	}
	var fields []zap.Field
	if v := ctx.Value(KeyRequestID); v != nil {
		fields = append(fields, zap.Any(KeyRequestID, v))
	}
	if v := ctx.Value(KeyUsername); v != nil {
		fields = append(fields, zap.Any(KeyUsername, v))
	}
	if len(fields) == 0 {
		return lg
	}
	return &Logger{z: lg.z.With(fields...)}
}

func handleFields(args []interface{}) []zap.Field {
	if len(args) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); {
		if f, ok := args[i].(zap.Field); ok {
			fields = append(fields, f)
			i++
			continue
		}
		if i == len(args)-1 {
			fields = append(fields, zap.Any("ignored", args[i]))
			break
		}
		key, ok := args[i].(string)
		if !ok {
			fields = append(fields, zap.Any("invalid-key", args[i]))
			i += 2
			continue
		}
		fields = append(fields, zap.Any(key, args[i+1]))
		i += 2
	}
	return fields
}

func (l *Logger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.z.Sugar().Debugf(format, v...)
}
func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.z.Debug(msg, handleFields(keysAndValues)...)
}
func (l *Logger) Info(msg string, fields ...Field) { l.z.Info(msg, fields...) }
func (l *Logger) Infof(format string, v ...interface{}) {
	l.z.Sugar().Infof(format, v...)
}
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.z.Info(msg, handleFields(keysAndValues)...)
}
func (l *Logger) Warn(msg string, fields ...Field) { l.z.Warn(msg, fields...) }
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.z.Sugar().Warnf(format, v...)
}
func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.z.Warn(msg, handleFields(keysAndValues)...)
}
func (l *Logger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.z.Sugar().Errorf(format, v...)
}
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.z.Error(msg, handleFields(keysAndValues)...)
}

func Debug(msg string, fields ...Field)      { global().z.Debug(msg, fields...) }
func Debugf(format string, v ...interface{}) { global().z.Sugar().Debugf(format, v...) }
func Debugw(msg string, keysAndValues ...interface{}) {
	global().z.Debug(msg, handleFields(keysAndValues)...)
}
func Info(msg string, fields ...Field)      { global().z.Info(msg, fields...) }
func Infof(format string, v ...interface{}) { global().z.Sugar().Infof(format, v...) }
func Infow(msg string, keysAndValues ...interface{}) {
	global().z.Info(msg, handleFields(keysAndValues)...)
}
func Warn(msg string, fields ...Field)      { global().z.Warn(msg, fields...) }
func Warnf(format string, v ...interface{}) { global().z.Sugar().Warnf(format, v...) }
func Warnw(msg string, keysAndValues ...interface{}) {
	global().z.Warn(msg, handleFields(keysAndValues)...)
}
func Error(msg string, fields ...Field)      { global().z.Error(msg, fields...) }
func Errorf(format string, v ...interface{}) { global().z.Sugar().Errorf(format, v...) }
func Errorw(msg string, keysAndValues ...interface{}) {
	global().z.Error(msg, handleFields(keysAndValues)...)
}
func Fatal(msg string, fields ...Field)      { global().z.Fatal(msg, fields...) }
func Fatalf(format string, v ...interface{}) { global().z.Sugar().Fatalf(format, v...) }
