package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
)

// MaxHeaderValueLength HTTP头部值最大长度 (8KB)
const MaxHeaderValueLength = 8192

var (
	headerNamePattern  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	headerValuePattern = regexp.MustCompile(`^[\x20-\x7E\t]*$`)

	// forbiddenHeaders 由HTTP客户端管理,不允许自定义
	forbiddenHeaders = map[string]bool{
		"host":              true,
		"content-length":    true,
		"transfer-encoding": true,
		"connection":        true,
	}

	// sensitiveKeywords 敏感头部名称关键字
	sensitiveKeywords = []string{"authorization", "cookie", "token", "key", "secret", "password", "credential"}
)

// HeaderValidator 验证HTTP头部是否符合RFC 7230规范
type HeaderValidator struct{}

// NewHeaderValidator 创建验证器
func NewHeaderValidator() *HeaderValidator {
	return &HeaderValidator{}
}

// ValidateHeader 验证单个头部
func (hv *HeaderValidator) ValidateHeader(name, value string) error {
	switch {
	case forbiddenHeaders[strings.ToLower(name)]:
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "此头部由HTTP客户端自动管理,不允许自定义",
			Suggestion: fmt.Sprintf("移除 '%s' 头部配置", name),
		}
	case !headerNamePattern.MatchString(name):
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "头部名称为空或包含非法字符 (仅允许字母、数字和连字符)",
		}
	case len(value) > MaxHeaderValueLength:
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     fmt.Sprintf("头部值过长: %d 字节 (最大 %d)", len(value), MaxHeaderValueLength),
		}
	case !headerValuePattern.MatchString(value):
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     "头部值包含非法字符 (仅允许可打印ASCII字符)",
			Suggestion: "移除控制字符和非ASCII字符",
		}
	}
	return nil
}

// Validate 验证http.Header中的所有头部,返回第一个错误
func (hv *HeaderValidator) Validate(headers http.Header) error {
	for name, values := range headers {
		for _, value := range values {
			if err := hv.ValidateHeader(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateUserAgents 验证User-Agent池
func (hv *HeaderValidator) ValidateUserAgents(agents []string) error {
	for i, ua := range agents {
		if strings.TrimSpace(ua) == "" {
			return &models.ValidationError{
				Field:      "value",
				HeaderName: "User-Agent",
				Reason:     fmt.Sprintf("第%d个User-Agent为空", i+1),
			}
		}
		if err := hv.ValidateHeader("User-Agent", ua); err != nil {
			return err
		}
	}
	return nil
}

// HeaderRedactor 头部脱敏器,用于日志输出
type HeaderRedactor struct{}

// NewHeaderRedactor 创建头部脱敏器
func NewHeaderRedactor() *HeaderRedactor {
	return &HeaderRedactor{}
}

// IsSensitiveHeader 根据名称关键字判断是否为敏感头部
func (hr *HeaderRedactor) IsSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// Redact 脱敏整个http.Header,只保留每个头部的第一个值
func (hr *HeaderRedactor) Redact(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		if hr.IsSensitiveHeader(name) {
			switch {
			case strings.HasPrefix(value, "Bearer "):
				value = "Bearer ***"
			case len(value) > 8:
				value = value[:4] + "***" + value[len(value)-4:]
			default:
				value = "***"
			}
		}
		result[name] = value
	}
	return result
}

// RedactToString 脱敏后按名称排序输出 "Name: value, ..."
func (hr *HeaderRedactor) RedactToString(headers http.Header) string {
	redacted := hr.Redact(headers)
	names := make([]string, 0, len(redacted))
	for name := range redacted {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+redacted[name])
	}
	return strings.Join(parts, ", ")
}
