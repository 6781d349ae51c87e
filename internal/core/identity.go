package core

import (
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/RecoveryAshes/llm-online-assistant/internal/config"
	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
)

var _ models.IdentityProvider = (*IdentityManager)(nil)

// IdentityManager 管理请求身份: User-Agent池与附加头部
//
// 头部优先级: 默认 < 配置文件 < 命令行。
// 配置文件或命令行显式设置了User-Agent时,身份池固定为该值。
// 实现 models.IdentityProvider 接口,可并发使用。
type IdentityManager struct {
	defaults http.Header
	config   http.Header
	cli      http.Header
	agents   []string

	validator *utils.HeaderValidator
	redactor  *utils.HeaderRedactor
}

// NewIdentityManager 根据身份配置和命令行头部创建管理器
func NewIdentityManager(cfg *models.IdentityConfig, cliHeaders []string) (*IdentityManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = &models.IdentityConfig{}
	}
	configured := make(http.Header)
	for name, value := range cfg.Headers {
		configured.Set(name, value)
	}

	agents := make([]string, 0, len(cfg.UserAgents))
	for _, ua := range cfg.UserAgents {
		if ua = strings.TrimSpace(ua); ua != "" {
			agents = append(agents, ua)
		}
	}
	// 显式指定的User-Agent优先于身份池
	for _, h := range []http.Header{cli, configured} {
		if ua := h.Get("User-Agent"); ua != "" {
			agents = []string{ua}
			break
		}
	}
	cli.Del("User-Agent")
	configured.Del("User-Agent")

	return &IdentityManager{
		defaults:  defaultHeaders(),
		config:    configured,
		cli:       cli,
		agents:    agents,
		validator: utils.NewHeaderValidator(),
		redactor:  utils.NewHeaderRedactor(),
	}, nil
}

// LoadIdentityManager 从身份配置文件加载管理器,configFile为空时使用默认路径
func LoadIdentityManager(configFile string, cliHeaders []string) (*IdentityManager, error) {
	cfg, err := config.NewIdentityConfigLoader(configFile).Load()
	if err != nil {
		utils.Errorf("加载身份配置失败: %v", err)
		return nil, err
	}
	return NewIdentityManager(cfg, cliHeaders)
}

func defaultHeaders() http.Header {
	return http.Header{
		"Accept":          []string{"*/*"},
		"Accept-Encoding": []string{"gzip, deflate, br"},
	}
}

// Validate 验证所有头部和User-Agent池
func (im *IdentityManager) Validate() error {
	for _, h := range []http.Header{im.defaults, im.config, im.cli} {
		if err := im.validator.Validate(h); err != nil {
			return err
		}
	}
	if len(im.agents) == 0 {
		return &models.ValidationError{
			Field:      "value",
			HeaderName: "User-Agent",
			Reason:     "User-Agent池为空",
			Suggestion: "在 user_agents 中至少配置一个User-Agent",
		}
	}
	return im.validator.ValidateUserAgents(im.agents)
}

// UserAgents 身份池副本
func (im *IdentityManager) UserAgents() []string {
	return append([]string(nil), im.agents...)
}

// Identity 随机选取一个User-Agent,返回合并后的头部副本
func (im *IdentityManager) Identity() http.Header {
	h := im.merged()
	if len(im.agents) > 0 {
		h.Set("User-Agent", im.agents[rand.IntN(len(im.agents))])
	}
	return h
}

// Rotate 更换User-Agent,身份池多于一个时保证与current不同
func (im *IdentityManager) Rotate(current http.Header) http.Header {
	h := im.merged()
	switch len(im.agents) {
	case 0:
		return h
	case 1:
		h.Set("User-Agent", im.agents[0])
		return h
	}

	previous := ""
	if current != nil {
		previous = current.Get("User-Agent")
	}
	candidates := make([]string, 0, len(im.agents))
	for _, ua := range im.agents {
		if ua != previous {
			candidates = append(candidates, ua)
		}
	}
	if len(candidates) == 0 {
		candidates = im.agents
	}
	h.Set("User-Agent", candidates[rand.IntN(len(candidates))])
	return h
}

// SafeHeaders 脱敏后的有效头部,用于日志
func (im *IdentityManager) SafeHeaders() map[string]string {
	h := im.merged()
	if len(im.agents) > 0 {
		h.Set("User-Agent", im.agents[0])
	}
	return im.redactor.Redact(h)
}

func (im *IdentityManager) merged() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{im.defaults, im.config, im.cli} {
		for name, values := range layer {
			result[name] = append([]string(nil), values...)
		}
	}
	return result
}
