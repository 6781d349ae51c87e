package engines

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
)

// Google 谷歌搜索
type Google struct{ layout resultLayout }

// NewGoogle 创建谷歌适配器
func NewGoogle() *Google {
	return &Google{layout: resultLayout{
		engine: models.EngineGoogle,
		origin: "https://www.google.com",
		nodes:  "div.g",
		dates: []dateRule{
			{selector: "span.f"},
			{selector: "span.st", scan: true},
		},
	}}
}

func (g *Google) Engine() models.SearchEngine { return models.EngineGoogle }

func (g *Google) BuildQueryURL(keyword string, pageCount int) string {
	return fmt.Sprintf("https://www.google.com/search?q=%s&num=%d", keyword, normalizePageCount(pageCount))
}

func (g *Google) ExtractResults(page []byte, stop StopFunc) ([]models.SearchHit, error) {
	return g.layout.extract(page, stop, g.link)
}

// link 展开 /url?q= 形式的跳转链接
func (g *Google) link(href string) (string, bool) {
	abs, ok := g.layout.resolve(href)
	if !ok {
		return "", false
	}
	u, err := url.Parse(abs)
	if err != nil || u.Path != "/url" || !strings.HasSuffix(u.Hostname(), "google.com") {
		return abs, true
	}
	for _, key := range []string{"q", "url"} {
		if target := u.Query().Get(key); models.IsWebURL(target) {
			return target, true
		}
	}
	return abs, true
}

// Bing 必应搜索
type Bing struct{ layout resultLayout }

// NewBing 创建必应适配器
func NewBing() *Bing {
	return &Bing{layout: resultLayout{
		engine: models.EngineBing,
		origin: "https://www.bing.com",
		nodes:  "li.b_algo",
		dates: []dateRule{
			{selector: "span.news_dt"},
		},
	}}
}

func (b *Bing) Engine() models.SearchEngine { return models.EngineBing }

func (b *Bing) BuildQueryURL(keyword string, pageCount int) string {
	return fmt.Sprintf("https://www.bing.com/search?q=%s&count=%d", keyword, normalizePageCount(pageCount))
}

func (b *Bing) ExtractResults(page []byte, stop StopFunc) ([]models.SearchHit, error) {
	return b.layout.extract(page, stop, nil)
}

// Baidu 百度搜索
type Baidu struct{ layout resultLayout }

// NewBaidu 创建百度适配器
func NewBaidu() *Baidu {
	return &Baidu{layout: resultLayout{
		engine: models.EngineBaidu,
		origin: "https://www.baidu.com",
		nodes:  "div.result",
		dates: []dateRule{
			{selector: ".c-abstract", scan: true},
			{selector: "span.c-color-gray2"},
		},
	}}
}

func (b *Baidu) Engine() models.SearchEngine { return models.EngineBaidu }

func (b *Baidu) BuildQueryURL(keyword string, pageCount int) string {
	return fmt.Sprintf("https://www.baidu.com/s?wd=%s&pn=%d", keyword, normalizePageCount(pageCount))
}

func (b *Baidu) ExtractResults(page []byte, stop StopFunc) ([]models.SearchHit, error) {
	return b.layout.extract(page, stop, nil)
}

// Sogou 搜狗搜索
type Sogou struct{ layout resultLayout }

// NewSogou 创建搜狗适配器
func NewSogou() *Sogou {
	return &Sogou{layout: resultLayout{
		engine: models.EngineSogou,
		origin: "https://www.sogou.com",
		nodes:  "div.vrwrap",
		dates: []dateRule{
			{selector: ".news-from", scan: true},
		},
	}}
}

func (s *Sogou) Engine() models.SearchEngine { return models.EngineSogou }

func (s *Sogou) BuildQueryURL(keyword string, pageCount int) string {
	return fmt.Sprintf("https://www.sogou.com/web?query=%s&page=%d", keyword, normalizePageCount(pageCount))
}

func (s *Sogou) ExtractResults(page []byte, stop StopFunc) ([]models.SearchHit, error) {
	return s.layout.extract(page, stop, nil)
}

// DuckDuckGo 搜索,查询URL不支持结果数量参数
type DuckDuckGo struct{ layout resultLayout }

// NewDuckDuckGo 创建DuckDuckGo适配器
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{layout: resultLayout{
		engine: models.EngineDuckDuckGo,
		origin: "https://duckduckgo.com",
		nodes:  `article[data-testid="result"], div.result`,
		dates: []dateRule{
			{selector: "span.result__timestamp"},
		},
	}}
}

func (d *DuckDuckGo) Engine() models.SearchEngine { return models.EngineDuckDuckGo }

func (d *DuckDuckGo) BuildQueryURL(keyword string, _ int) string {
	return fmt.Sprintf("https://duckduckgo.com/?q=%s&t=h_&ia=web", keyword)
}

func (d *DuckDuckGo) ExtractResults(page []byte, stop StopFunc) ([]models.SearchHit, error) {
	return d.layout.extract(page, stop, nil)
}
