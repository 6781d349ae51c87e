// Package engines 实现各搜索引擎的查询URL构造和结果页解析
//
// 每个搜索引擎是一个独立的类型,共同实现 Adapter 接口。新增引擎只需要
// 增加一个类型并在 New 中注册,不影响其他引擎。
package engines

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
)

// StopFunc 在解析每个结果节点之前调用,返回true时停止解析
type StopFunc func() bool

// Adapter 搜索引擎适配器
type Adapter interface {
	// Engine 适配器对应的搜索引擎
	Engine() models.SearchEngine

	// BuildQueryURL 构造查询URL,关键词原样嵌入,编码交给HTTP层
	BuildQueryURL(keyword string, pageCount int) string

	// ExtractResults 按页面顺序提取搜索结果,缺少链接的节点被跳过
	ExtractResults(page []byte, stop StopFunc) ([]models.SearchHit, error)
}

// New 根据搜索引擎创建适配器
func New(engine models.SearchEngine) (Adapter, error) {
	switch engine {
	case models.EngineGoogle:
		return NewGoogle(), nil
	case models.EngineBing:
		return NewBing(), nil
	case models.EngineBaidu:
		return NewBaidu(), nil
	case models.EngineSogou:
		return NewSogou(), nil
	case models.EngineDuckDuckGo:
		return NewDuckDuckGo(), nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEngine, engine)
	}
}

// datePattern 日期形状的子串: 2024年3月5日 / 2024-03-05 / 2024/03/05 / Mar 5, 2024
var datePattern = regexp.MustCompile(
	`\d{4}年\d{1,2}月\d{1,2}日` +
		`|\d{4}-\d{1,2}-\d{1,2}` +
		`|\d{4}/\d{1,2}/\d{1,2}` +
		`|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.? \d{1,2}, \d{4}`)

// dateRule 日期提取策略
type dateRule struct {
	selector string
	scan     bool // true: 在元素文本中匹配日期; false: 直接使用元素文本
}

// resultLayout 一个搜索引擎结果页的结构描述
type resultLayout struct {
	engine models.SearchEngine
	origin string     // 用于补全相对链接
	nodes  string     // 结果节点选择器
	dates  []dateRule // 按顺序尝试,全部失败后扫描整个节点文本
}

// linkFunc 把节点中的href转换为可抓取的绝对URL
type linkFunc func(href string) (string, bool)

func (l resultLayout) extract(page []byte, stop StopFunc, link linkFunc) ([]models.SearchHit, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("解析%s结果页失败: %w", l.engine.DisplayName(), err)
	}
	if link == nil {
		link = l.resolve
	}

	hits := make([]models.SearchHit, 0)
	doc.Find(l.nodes).EachWithBreak(func(i int, node *goquery.Selection) bool {
		if stop != nil && stop() {
			utils.Debugf("%s结果解析在第%d个节点处被取消", l.engine.DisplayName(), i+1)
			return false
		}

		anchor := node.Find("a").First()
		href, ok := anchor.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			utils.Warnf("%s第%d个结果节点未找到有效链接, 已跳过", l.engine.DisplayName(), i+1)
			return true
		}

		target, ok := link(href)
		if !ok {
			utils.Warnf("%s第%d个结果节点的链接不可抓取: %s", l.engine.DisplayName(), i+1, href)
			return true
		}

		hits = append(hits, models.SearchHit{
			Title:    collapseSpace(anchor.Text()),
			URL:      target,
			DateText: l.date(node),
		})
		return true
	})

	return hits, nil
}

// date 依次尝试日期策略,最终回退为 models.UnknownDate
func (l resultLayout) date(node *goquery.Selection) string {
	for _, rule := range l.dates {
		sel := node.Find(rule.selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := collapseSpace(sel.Text())
		if rule.scan {
			if m := datePattern.FindString(text); m != "" {
				return m
			}
			continue
		}
		if text != "" {
			return text
		}
	}

	if m := datePattern.FindString(node.Text()); m != "" {
		return m
	}
	return models.UnknownDate
}

// resolve 相对链接按引擎域名补全,只接受http/https
func (l resultLayout) resolve(href string) (string, bool) {
	base, err := url.Parse(l.origin)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref).String()
	if !models.IsWebURL(abs) {
		return "", false
	}
	return abs, true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normalizePageCount(n int) int {
	if n < 1 {
		return models.DefaultPageCount
	}
	return n
}
