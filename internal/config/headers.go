package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultIdentityFile 默认身份配置文件路径
	DefaultIdentityFile = "configs/headers.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024
)

//go:embed headers_template.yaml
var defaultIdentityTemplate []byte

// DefaultIdentityTemplate 返回内置的身份配置模板
func DefaultIdentityTemplate() []byte {
	return append([]byte(nil), defaultIdentityTemplate...)
}

// IdentityConfigLoader 身份配置加载器
//
// 指定的文件必须存在;使用默认路径时文件不存在则回退到内置模板。
type IdentityConfigLoader struct {
	configPath string
	explicit   bool
}

// NewIdentityConfigLoader 创建身份配置加载器,configPath为空时使用默认路径
func NewIdentityConfigLoader(configPath string) *IdentityConfigLoader {
	if configPath == "" {
		return &IdentityConfigLoader{configPath: DefaultIdentityFile}
	}
	return &IdentityConfigLoader{configPath: configPath, explicit: true}
}

// Path 配置文件路径
func (l *IdentityConfigLoader) Path() string {
	return l.configPath
}

// Load 加载身份配置
//
// 配置文件中缺少的user_agents使用内置模板补齐。
func (l *IdentityConfigLoader) Load() (*models.IdentityConfig, error) {
	defaults, err := parseIdentityConfig(viperFromBytes(defaultIdentityTemplate))
	if err != nil {
		return nil, &models.ConfigError{FilePath: "<内置模板>", Cause: err}
	}

	info, err := os.Stat(l.configPath)
	if errors.Is(err, os.ErrNotExist) && !l.explicit {
		utils.Debugf("未找到身份配置文件 [%s], 使用内置模板", l.configPath)
		return defaults, nil
	}
	if err != nil {
		return nil, &models.ConfigError{FilePath: l.configPath, Cause: err}
	}
	if info.Size() > MaxConfigFileSize {
		return nil, &models.ConfigError{
			FilePath: l.configPath,
			Cause:    fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)", info.Size(), MaxConfigFileSize),
		}
	}

	v := viper.New()
	v.SetConfigFile(l.configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, &models.ConfigError{FilePath: l.configPath, Cause: err}
	}

	cfg, err := parseIdentityConfig(v)
	if err != nil {
		return nil, &models.ConfigError{FilePath: l.configPath, Cause: err}
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaults.UserAgents
	}

	utils.Debugf("加载身份配置 [%s]: %d 个User-Agent, %d 个额外头部",
		l.configPath, len(cfg.UserAgents), len(cfg.Headers))
	return cfg, nil
}

func viperFromBytes(data []byte) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	// 内置模板在编译期确定,解析失败会在parseIdentityConfig中体现为空配置
	_ = v.ReadConfig(bytes.NewReader(data))
	return v
}

func parseIdentityConfig(v *viper.Viper) (*models.IdentityConfig, error) {
	var cfg models.IdentityConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("配置绑定失败: %w", err)
	}
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	return &cfg, nil
}
