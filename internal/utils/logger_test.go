package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestLogConfig(dir, level string) LogConfig {
	return LogConfig{
		Level:      level,
		LogDir:     dir,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   false,
	}
}

func initTestLogger(t *testing.T, dir, level string) {
	t.Helper()
	if err := InitLogger(newTestLogConfig(dir, level)); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}
	t.Cleanup(func() { _ = CloseLogger() })
}

func TestInitLogger(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "logs")

	initTestLogger(t, tempDir, "debug")

	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Errorf("日志目录未创建: %s", tempDir)
	}

	Info("测试信息日志")
	Debugf("测试调试日志: %d", 1)

	mainLogPath := filepath.Join(tempDir, MainLogFile)
	content, err := os.ReadFile(mainLogPath)
	if err != nil {
		t.Fatalf("读取主日志失败: %v", err)
	}
	if !strings.Contains(string(content), "测试信息日志") {
		t.Errorf("主日志应包含信息日志, 实际内容: %s", content)
	}
}

func TestErrorLogOnlyReceivesErrors(t *testing.T) {
	tempDir := t.TempDir()

	initTestLogger(t, tempDir, "info")

	Warn("这是一条警告")
	Errorf("请求失败: %s", "https://example.com")

	content, err := os.ReadFile(filepath.Join(tempDir, ErrorLogFile))
	if err != nil {
		t.Fatalf("读取错误日志失败: %v", err)
	}
	if strings.Contains(string(content), "这是一条警告") {
		t.Error("错误日志不应包含警告级别日志")
	}
	if !strings.Contains(string(content), "请求失败") {
		t.Error("错误日志应包含错误级别日志")
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	initTestLogger(t, t.TempDir(), "不存在的级别")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("无效级别应回退为info, 实际 %s", zerolog.GlobalLevel())
	}
}

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()

	if config.Level != "info" {
		t.Errorf("默认日志级别错误: 期望 'info', 得到 '%s'", config.Level)
	}
	if config.LogDir != "logs" {
		t.Errorf("默认日志目录错误: 期望 'logs', 得到 '%s'", config.LogDir)
	}
	if config.MaxSize != 10 || config.MaxBackups != 3 || config.MaxAge != 28 {
		t.Errorf("默认轮转参数错误: %+v", config)
	}
	if !config.Compress {
		t.Error("默认应该启用压缩")
	}
}

func TestFilteredWriter(t *testing.T) {
	var sb strings.Builder
	w := &FilteredWriter{Writer: &sb, MinLevel: zerolog.ErrorLevel}

	if _, err := w.WriteLevel(zerolog.InfoLevel, []byte("info\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.WriteLevel(zerolog.ErrorLevel, []byte("error\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("plain\n")); err != nil {
		t.Fatal(err)
	}

	if sb.String() != "error\n" {
		t.Errorf("期望只写入error级别, 实际 %q", sb.String())
	}
}

func TestCloseLoggerStopsFileOutput(t *testing.T) {
	tempDir := t.TempDir()
	initTestLogger(t, tempDir, "info")

	Info("关闭前")
	if err := CloseLogger(); err != nil {
		t.Fatalf("关闭日志失败: %v", err)
	}
	Info("关闭后")

	content, err := os.ReadFile(filepath.Join(tempDir, MainLogFile))
	if err != nil {
		t.Fatalf("读取主日志失败: %v", err)
	}
	if !strings.Contains(string(content), "关闭前") {
		t.Error("关闭前的日志应写入文件")
	}
	if strings.Contains(string(content), "关闭后") {
		t.Error("关闭后的日志不应再写入文件")
	}
}

func TestWithSession(t *testing.T) {
	var sb strings.Builder
	saved := Logger
	t.Cleanup(func() { Logger = saved })
	Logger = zerolog.New(&sb)

	l := WithSession("abc")
	l.Info().Msg("x")
	if !strings.Contains(sb.String(), `"session":"abc"`) {
		t.Errorf("缺少session字段: %s", sb.String())
	}
}
