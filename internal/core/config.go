package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/llm-online-assistant/internal/crawlers"
	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀,例如 LLMASSIST_SEARCH_ENGINE
const EnvPrefix = "LLMASSIST"

// Config 应用程序配置,仅由命令行入口读取
type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SearchConfig 搜索配置
type SearchConfig struct {
	Engine        string  `mapstructure:"engine"`
	PageCount     int     `mapstructure:"page_count"`
	RatePerSecond float64 `mapstructure:"rate_per_second"` // 搜索结果页请求速率
	Burst         int     `mapstructure:"burst"`
}

// FetchConfig 页面抓取配置
type FetchConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	ExtractLinks   bool          `mapstructure:"extract_links"`
	TLSFingerprint bool          `mapstructure:"tls_fingerprint"`
	MaxBodySize    int           `mapstructure:"max_body_size"`
	Insecure       bool          `mapstructure:"insecure_skip_verify"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	Directory string `mapstructure:"directory"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// LoadConfig 加载配置文件
//
// configPath为空时依次搜索 ./configs、当前目录和 ~/.llmassist 下的config.yaml,
// 找不到配置文件时使用默认值。环境变量优先于配置文件。
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".llmassist"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configPath, Cause: err}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.engine", string(models.EngineGoogle))
	v.SetDefault("search.page_count", models.DefaultPageCount)
	v.SetDefault("search.rate_per_second", 1.0)
	v.SetDefault("search.burst", 1)

	v.SetDefault("fetch.max_retries", crawlers.DefaultMaxRetries)
	v.SetDefault("fetch.timeout", crawlers.DefaultTimeout)
	v.SetDefault("fetch.retry_delay", crawlers.DefaultRetryDelay)
	v.SetDefault("fetch.extract_links", false)
	v.SetDefault("fetch.tls_fingerprint", false)
	v.SetDefault("fetch.max_body_size", crawlers.DefaultMaxBodySize)
	v.SetDefault("fetch.insecure_skip_verify", false)

	v.SetDefault("output.directory", utils.DefaultDownloadsDir())

	log := utils.DefaultLogConfig()
	v.SetDefault("logging.level", log.Level)
	v.SetDefault("logging.log_dir", log.LogDir)
	v.SetDefault("logging.rotation.max_size", log.MaxSize)
	v.SetDefault("logging.rotation.max_backups", log.MaxBackups)
	v.SetDefault("logging.rotation.max_age", log.MaxAge)
	v.SetDefault("logging.rotation.compress", log.Compress)
}

// LogConfig 转换为日志系统配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// RequesterConfig 转换为HTTP层配置
func (c *Config) RequesterConfig() crawlers.RequesterConfig {
	return crawlers.RequesterConfig{
		Timeout:            c.Fetch.Timeout,
		MaxBodySize:        c.Fetch.MaxBodySize,
		TLSFingerprint:     c.Fetch.TLSFingerprint,
		InsecureSkipVerify: c.Fetch.Insecure,
	}
}

// FetcherConfig 转换为页面抓取配置
func (c *Config) FetcherConfig() crawlers.FetcherConfig {
	return crawlers.FetcherConfig{
		MaxRetries:   c.Fetch.MaxRetries,
		RetryDelay:   c.Fetch.RetryDelay,
		ExtractLinks: c.Fetch.ExtractLinks,
	}
}

// SessionOptions 转换为会话选项
func (c *Config) SessionOptions() SessionOptions {
	return SessionOptions{
		RatePerSecond: c.Search.RatePerSecond,
		Burst:         c.Search.Burst,
		WithLinks:     c.Fetch.ExtractLinks,
	}
}
