package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/llm-online-assistant/internal/crawlers"
	"github.com/RecoveryAshes/llm-online-assistant/internal/engines"
	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// SessionOptions 会话选项
type SessionOptions struct {
	// RatePerSecond 搜索结果页请求速率,<=0 表示不限速
	RatePerSecond float64

	// Burst 限速器突发容量
	Burst int

	// WithLinks 在记录和文档中保留外链和按钮目标
	WithLinks bool

	// Progress 进度通知通道,发送不阻塞,消费者跟不上时事件被丢弃
	Progress chan<- models.ProgressEvent
}

// Session 一次抓取会话
//
// 状态机: Idle → Running → {Completed, Cancelled}。会话对象只能运行一次。
// 关键词按提交顺序串行处理,每个关键词的结果页由 FetchPool 并发抓取。
type Session struct {
	id         string
	requester  crawlers.Requester
	identities models.IdentityProvider
	pool       *crawlers.FetchPool
	writer     *DocumentWriter
	limiter    *rate.Limiter
	opts       SessionOptions
	token      *models.CancelToken
	log        zerolog.Logger

	mu     sync.Mutex
	status models.SessionStatus
}

// NewSession 创建会话
//
// requester 用于请求搜索结果页,fetcher 用于抓取每个结果页面。
func NewSession(requester crawlers.Requester, identities models.IdentityProvider, fetcher crawlers.Fetcher, writer *DocumentWriter, opts SessionOptions) *Session {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if writer == nil {
		writer = NewDocumentWriter(opts.WithLinks)
	}

	id := models.NewSessionID()
	return &Session{
		id:         id,
		requester:  requester,
		identities: identities,
		pool:       crawlers.NewFetchPool(fetcher),
		writer:     writer,
		limiter:    rate.NewLimiter(limit, opts.Burst),
		opts:       opts,
		token:      models.NewCancelToken(),
		log:        utils.WithSession(id),
		status:     models.SessionIdle,
	}
}

// ID 会话ID
func (s *Session) ID() string {
	return s.id
}

// Status 当前状态
func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Cancel 请求取消,可在任意时刻调用,包括启动之前
func (s *Session) Cancel() {
	s.token.Cancel()
}

// Run 执行会话并写出文档
//
// 请求验证失败时立即返回错误且不发出任何网络请求。
// 单个页面的失败不会导致会话失败;写文档失败作为致命错误返回。
// 被取消的会话同样写出已收集到的部分结果。
func (s *Session) Run(req models.ScrapeRequest) (*models.SessionResult, error) {
	adapter, err := s.begin(&req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	total := len(req.Keywords)
	s.log.Info().
		Str("engine", string(req.Engine)).
		Int("keywords", total).
		Int("page_count", req.PageCount).
		Msg("会话开始")
	s.emit(models.ProgressEvent{Kind: models.ProgressSessionStarted, KeywordTotal: total})

	records := make([]models.ResultRecord, 0)
	for i, keyword := range req.Keywords {
		if s.token.Cancelled() {
			s.log.Warn().Msgf("会话已取消, 跳过剩余 %d 个关键词", total-i)
			break
		}
		s.emit(models.ProgressEvent{Kind: models.ProgressKeywordStarted, Keyword: keyword, KeywordIndex: i + 1, KeywordTotal: total})

		batch := s.searchKeyword(adapter, keyword, req.PageCount)
		s.emit(models.ProgressEvent{Kind: models.ProgressResultsExtracted, Keyword: keyword, KeywordIndex: i + 1, KeywordTotal: total, Count: len(batch)})

		if len(batch) > 0 {
			urls := make([]string, len(batch))
			for j := range batch {
				urls[j] = batch[j].URL
			}
			outcomes := s.pool.FetchAll(s.token, urls)
			for j := range batch {
				batch[j].Merge(outcomes[j], s.opts.WithLinks)
			}
		}
		records = append(records, batch...)

		s.log.Info().Str("keyword", keyword).Int("results", len(batch)).Msg("关键词处理完成")
		s.emit(models.ProgressEvent{Kind: models.ProgressKeywordFinished, Keyword: keyword, KeywordIndex: i + 1, KeywordTotal: total, Count: len(batch)})
	}

	status := models.SessionCompleted
	if s.token.Cancelled() {
		status = models.SessionCancelled
	}
	s.finish(status)

	result := &models.SessionResult{
		SessionID: s.id,
		Status:    status,
		Records:   records,
	}

	path, stats, err := s.writer.Write(records, req)
	result.Path = path
	result.Stats = stats
	result.Duration = time.Since(start)
	s.emit(models.ProgressEvent{Kind: models.ProgressSessionFinished, KeywordTotal: total, Count: len(records), Status: status})
	if err != nil {
		s.log.Error().Err(err).Msg("写入文档失败")
		return result, fmt.Errorf("会话 %s 写入文档失败: %w", s.id, err)
	}

	s.log.Info().
		Str("status", string(status)).
		Int("records", len(records)).
		Str("path", path).
		Dur("duration", result.Duration).
		Msg(stats.String())
	return result, nil
}

// begin 验证请求并进入Running状态
func (s *Session) begin(req *models.ScrapeRequest) (engines.Adapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionIdle {
		return nil, models.ErrSessionStarted
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	adapter, err := engines.New(req.Engine)
	if err != nil {
		return nil, err
	}
	s.status = models.SessionRunning
	return adapter, nil
}

// searchKeyword 请求一个关键词的搜索结果页并解析结果
//
// 结果页请求失败只影响该关键词,返回空列表。
func (s *Session) searchKeyword(adapter engines.Adapter, keyword string, pageCount int) []models.ResultRecord {
	if err := s.limiter.Wait(s.token.Context()); err != nil {
		s.log.Debug().Err(err).Str("keyword", keyword).Msg("等待限速时会话被取消")
		return nil
	}

	searchURL := adapter.BuildQueryURL(keyword, pageCount)
	resp, err := s.requester.Get(searchURL, s.identities.Identity())
	if err != nil {
		s.log.Error().Err(err).Str("keyword", keyword).Msg("请求搜索结果页失败")
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.log.Warn().Int("status", resp.StatusCode).Str("url", searchURL).Msg("搜索结果页返回非成功状态码, 仍尝试解析")
	}

	hits, err := adapter.ExtractResults(resp.Body, s.token.Cancelled)
	if err != nil {
		s.log.Error().Err(err).Str("keyword", keyword).Msg("解析搜索结果失败")
		return nil
	}

	records := make([]models.ResultRecord, 0, len(hits))
	for _, hit := range hits {
		records = append(records, models.NewResultRecord(adapter.Engine(), keyword, hit))
	}
	return records
}

func (s *Session) finish(status models.SessionStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Session) emit(ev models.ProgressEvent) {
	if s.opts.Progress == nil {
		return
	}
	ev.SessionID = s.id
	select {
	case s.opts.Progress <- ev:
	default:
	}
}
