package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志目录下的文件名
const (
	MainLogFile  = "llmassist.log"
	ErrorLogFile = "llmassist_error.log"
)

// Logger 进程级日志器. InitLogger 之前只写标准错误
var Logger = newLogger(consoleOutput())

var (
	rotateMu    sync.Mutex
	openedFiles []*lumberjack.Logger
)

// LogConfig 日志与轮转参数, 由 core.Config.LogConfig 生成
type LogConfig struct {
	Level      string
	LogDir     string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // 天
	Compress   bool
}

// DefaultLogConfig 未配置 logging 段时使用
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", LogDir: "logs", MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
}

// rotating 按配置打开一个轮转文件, 并登记以便 CloseLogger 释放
func (c LogConfig) rotating(name string) *lumberjack.Logger {
	f := &lumberjack.Logger{
		Filename:   filepath.Join(c.LogDir, name),
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
	openedFiles = append(openedFiles, f)
	return f
}

func consoleOutput() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// InitLogger 切换到 控制台 + 主日志 + 错误日志 三路输出.
// 级别无法解析时按 info 处理; 重复调用会先关闭上一轮打开的文件
func InitLogger(config LogConfig) error {
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if err := CloseLogger(); err != nil {
		Logger.Warn().Err(err).Msg("关闭旧日志文件失败")
	}

	rotateMu.Lock()
	out := zerolog.MultiLevelWriter(
		consoleOutput(),
		config.rotating(MainLogFile),
		&FilteredWriter{Writer: config.rotating(ErrorLogFile), MinLevel: zerolog.ErrorLevel},
	)
	rotateMu.Unlock()

	Logger = newLogger(out)
	log.Logger = Logger

	Logger.Info().Str("level", level.String()).Str("log_dir", config.LogDir).Msg("日志已写入文件")
	return nil
}

// CloseLogger 关闭 InitLogger 打开的轮转文件, 日志器回到仅控制台输出
func CloseLogger() error {
	rotateMu.Lock()
	defer rotateMu.Unlock()

	var errs []error
	for _, f := range openedFiles {
		errs = append(errs, f.Close())
	}
	openedFiles = nil
	Logger = newLogger(consoleOutput())
	log.Logger = Logger
	return errors.Join(errs...)
}

// FilteredWriter 只放行不低于 MinLevel 的带级别写入
type FilteredWriter struct {
	Writer   io.Writer
	MinLevel zerolog.Level
}

// Write 不带级别的写入一律视为已处理
func (w *FilteredWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

func (w *FilteredWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < w.MinLevel || level >= zerolog.NoLevel {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

// WithSession 附带 session 字段的子日志器
func WithSession(sessionID string) zerolog.Logger {
	return Logger.With().Str("session", sessionID).Logger()
}

func Info(msg string) { Logger.Info().Msg(msg) }

func Infof(format string, args ...any) { Logger.Info().Msgf(format, args...) }

func Warn(msg string) { Logger.Warn().Msg(msg) }

func Warnf(format string, args ...any) { Logger.Warn().Msgf(format, args...) }

func Errorf(format string, args ...any) { Logger.Error().Msgf(format, args...) }

func Debugf(format string, args ...any) { Logger.Debug().Msgf(format, args...) }
