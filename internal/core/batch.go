package core

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
)

// SessionFactory 为批量模式中的每个关键词创建新会话
type SessionFactory func() *Session

// BatchRunner 逐个关键词运行独立会话,每个关键词生成一份文档
type BatchRunner struct {
	newSession    SessionFactory
	delay         time.Duration
	continueOnErr bool
	token         *models.CancelToken

	mu      sync.Mutex
	current *Session
}

// BatchResult 单个关键词的会话结果
type BatchResult struct {
	Keyword  string
	Result   *models.SessionResult
	Err      error
	Duration time.Duration
}

// Success 会话是否成功写出文档
func (r BatchResult) Success() bool {
	return r.Err == nil && r.Result != nil
}

// MarshalJSON 错误以字符串形式输出
func (r BatchResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Keyword  string                `json:"keyword"`
		Result   *models.SessionResult `json:"result,omitempty"`
		Error    string                `json:"error,omitempty"`
		Duration time.Duration         `json:"duration"`
	}{Keyword: r.Keyword, Result: r.Result, Duration: r.Duration}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// BatchSummary 批量运行摘要
type BatchSummary struct {
	Total        int           `json:"total"`
	SuccessCount int           `json:"success_count"`
	FailCount    int           `json:"fail_count"`
	TotalRecords int           `json:"total_records"`
	Cancelled    bool          `json:"cancelled"`
	Duration     time.Duration `json:"duration"`
	Results      []BatchResult `json:"results"`
}

// ToJSON 转换为JSON
func (s *BatchSummary) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// NewBatchRunner 创建批量运行器,delay为相邻两个关键词之间的等待
func NewBatchRunner(newSession SessionFactory, delay time.Duration, continueOnErr bool) *BatchRunner {
	return &BatchRunner{
		newSession:    newSession,
		delay:         delay,
		continueOnErr: continueOnErr,
		token:         models.NewCancelToken(),
	}
}

// Cancel 取消当前会话并停止处理后续关键词
func (b *BatchRunner) Cancel() {
	b.token.Cancel()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		b.current.Cancel()
	}
}

// Run 以base为模板为每个关键词运行一个会话,文档标题即关键词
func (b *BatchRunner) Run(base models.ScrapeRequest) (*BatchSummary, error) {
	base.Normalize()
	if err := base.Validate(); err != nil {
		return nil, err
	}

	keywords := base.Keywords
	summary := &BatchSummary{
		Total:   len(keywords),
		Results: make([]BatchResult, 0, len(keywords)),
	}
	start := time.Now()
	utils.Infof("开始批量处理: %d 个关键词", len(keywords))

	for i, keyword := range keywords {
		if i > 0 && !b.pause() {
			break
		}
		if b.token.Cancelled() {
			break
		}
		utils.Infof("==================== [%d/%d] %s ====================", i+1, len(keywords), keyword)

		result := b.runOne(base, keyword)
		summary.Results = append(summary.Results, result)
		if result.Success() {
			summary.SuccessCount++
			summary.TotalRecords += len(result.Result.Records)
		} else {
			summary.FailCount++
			utils.Errorf("关键词 [%s] 处理失败: %v", keyword, result.Err)
			if !b.continueOnErr {
				summary.Cancelled = b.token.Cancelled()
				summary.Duration = time.Since(start)
				return summary, fmt.Errorf("批量处理在关键词 [%s] 处中止: %w", keyword, result.Err)
			}
		}
	}

	summary.Cancelled = b.token.Cancelled()
	summary.Duration = time.Since(start)
	utils.Infof("批量处理结束: 成功 %d, 失败 %d, 共 %d 条结果, 耗时 %.2f秒",
		summary.SuccessCount, summary.FailCount, summary.TotalRecords, summary.Duration.Seconds())
	return summary, nil
}

func (b *BatchRunner) runOne(base models.ScrapeRequest, keyword string) BatchResult {
	start := time.Now()
	session := b.newSession()

	b.mu.Lock()
	b.current = session
	b.mu.Unlock()
	if b.token.Cancelled() {
		session.Cancel()
	}

	req := base
	req.Keywords = []string{keyword}
	req.DocumentTitle = keyword

	res, err := session.Run(req)

	b.mu.Lock()
	b.current = nil
	b.mu.Unlock()

	return BatchResult{Keyword: keyword, Result: res, Err: err, Duration: time.Since(start)}
}

// pause 关键词之间等待,被取消时返回false
func (b *BatchRunner) pause() bool {
	if b.delay <= 0 {
		return !b.token.Cancelled()
	}
	utils.Debugf("等待 %.1f 秒后处理下一个关键词", b.delay.Seconds())
	timer := time.NewTimer(b.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-b.token.Done():
		return false
	}
}
