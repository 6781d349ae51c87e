package crawlers

import (
	"fmt"
	"time"

	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
)

const (
	// DefaultMaxRetries 每个URL的最大尝试次数
	DefaultMaxRetries = 3

	// DefaultRetryDelay 两次尝试之间的固定间隔
	DefaultRetryDelay = time.Second
)

// FetcherConfig 页面抓取配置
type FetcherConfig struct {
	MaxRetries   int           // 最大尝试次数(含第一次)
	RetryDelay   time.Duration // 失败后的固定等待
	ExtractLinks bool          // 是否提取外链和按钮目标
}

// DefaultFetcherConfig 默认抓取配置
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// PageFetcher 抓取单个页面,带重试和身份轮换
//
// 失败不会以错误形式返回: 重试耗尽或被取消时得到空的 FetchOutcome。
type PageFetcher struct {
	requester  Requester
	identities models.IdentityProvider
	config     FetcherConfig
}

// NewPageFetcher 创建页面抓取器
func NewPageFetcher(requester Requester, identities models.IdentityProvider, config FetcherConfig) *PageFetcher {
	if config.MaxRetries < 1 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}
	return &PageFetcher{
		requester:  requester,
		identities: identities,
		config:     config,
	}
}

// Fetch 抓取页面并提取正文
//
// 每次尝试前检查取消令牌;403时更换身份,其他失败保持身份,两者都等待固定间隔后重试。
func (f *PageFetcher) Fetch(token *models.CancelToken, rawURL string) models.FetchOutcome {
	state := newRetryState(f.config.MaxRetries, f.identities)
	var lastErr error

	for state.next() {
		if token.Cancelled() {
			utils.Debugf("抓取已取消, 放弃剩余重试: %s", rawURL)
			return models.EmptyOutcome()
		}

		resp, err := f.requester.Get(rawURL, state.header())
		result := classify(resp, err)

		switch result {
		case attemptSucceeded:
			outcome, err := ExtractContent(resp.Body, f.config.ExtractLinks)
			if err != nil {
				utils.Errorf("解析页面失败 [%s]: %v", rawURL, err)
				return models.EmptyOutcome()
			}
			utils.Debugf("抓取成功 [%s]: 正文 %d 字节 (第%d次尝试)", rawURL, len(outcome.Text), state.attempt)
			return outcome

		case attemptRejected:
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			utils.Warnf("请求被拒绝(403), 更换User-Agent后重试 [%s] (第%d/%d次)",
				rawURL, state.attempt, state.maxAttempts)

		case attemptFailed:
			switch {
			case err != nil:
				lastErr = err
			case resp != nil:
				lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			default:
				lastErr = errNoResponse
			}
			utils.Warnf("请求失败 [%s] (第%d/%d次): %v", rawURL, state.attempt, state.maxAttempts, lastErr)
		}

		state.observe(result)
		if !state.exhausted() {
			f.wait(token)
		}
	}

	utils.Errorf("请求失败, 已达到最大重试次数 [%s]: %v", rawURL, lastErr)
	return models.EmptyOutcome()
}

// wait 固定间隔等待,取消时提前返回
func (f *PageFetcher) wait(token *models.CancelToken) {
	if f.config.RetryDelay <= 0 {
		return
	}
	timer := time.NewTimer(f.config.RetryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-token.Done():
	}
}
