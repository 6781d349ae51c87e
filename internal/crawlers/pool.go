package crawlers

import (
	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
	"golang.org/x/sync/errgroup"
)

// MaxConcurrentFetches 同时进行的页面抓取数上限
const MaxConcurrentFetches = 5

// Fetcher 单页面抓取
type Fetcher interface {
	Fetch(token *models.CancelToken, rawURL string) models.FetchOutcome
}

// FetchPool 并发抓取一批URL,结果与输入按下标一一对应
type FetchPool struct {
	fetcher Fetcher
}

// NewFetchPool 创建抓取池
func NewFetchPool(fetcher Fetcher) *FetchPool {
	return &FetchPool{fetcher: fetcher}
}

// FetchAll 抓取全部URL,返回与urls等长同序的结果
//
// 取消后不再派发新任务,已派发的任务自行观察取消令牌;未派发的位置填充空结果。
func (p *FetchPool) FetchAll(token *models.CancelToken, urls []string) []models.FetchOutcome {
	outcomes := make([]models.FetchOutcome, len(urls))
	for i := range outcomes {
		outcomes[i] = models.EmptyOutcome()
	}

	var g errgroup.Group
	g.SetLimit(MaxConcurrentFetches)

	for i, u := range urls {
		if token.Cancelled() {
			utils.Warnf("收到取消请求, 剩余 %d 个页面不再抓取", len(urls)-i)
			break
		}
		g.Go(func() error {
			outcomes[i] = p.fetcher.Fetch(token, u)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
