package crawlers

import (
	"net/http"

	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
)

// attemptResult 单次请求的结论
type attemptResult int

const (
	attemptSucceeded attemptResult = iota // 成功
	attemptRejected                       // 403: 更换身份后重试
	attemptFailed                         // 其他失败: 保持身份重试
)

func (r attemptResult) String() string {
	switch r {
	case attemptSucceeded:
		return "succeeded"
	case attemptRejected:
		return "rejected"
	default:
		return "failed"
	}
}

// classify 判定一次请求的结果,4xx/5xx视为失败
func classify(resp *Response, err error) attemptResult {
	switch {
	case err != nil || resp == nil:
		return attemptFailed
	case resp.StatusCode == http.StatusForbidden:
		return attemptRejected
	case resp.StatusCode >= http.StatusBadRequest:
		return attemptFailed
	default:
		return attemptSucceeded
	}
}

// retryState 重试状态机: 已尝试次数 + 当前身份
type retryState struct {
	maxAttempts int
	attempt     int
	identity    http.Header
	provider    models.IdentityProvider
}

func newRetryState(maxAttempts int, provider models.IdentityProvider) *retryState {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryState{
		maxAttempts: maxAttempts,
		identity:    provider.Identity(),
		provider:    provider,
	}
}

// next 进入下一次尝试,次数用尽时返回false
func (s *retryState) next() bool {
	if s.attempt >= s.maxAttempts {
		return false
	}
	s.attempt++
	return true
}

// header 本次尝试使用的请求头副本
func (s *retryState) header() http.Header {
	return s.identity.Clone()
}

// observe 记录尝试结果,只有被拒绝时才更换身份
func (s *retryState) observe(result attemptResult) {
	if result == attemptRejected {
		s.identity = s.provider.Rotate(s.identity)
	}
}

// exhausted 是否已用尽所有尝试
func (s *retryState) exhausted() bool {
	return s.attempt >= s.maxAttempts
}
