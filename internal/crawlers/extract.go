package crawlers

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractContent 从页面中提取段落正文,withLinks为true时同时提取外链和按钮目标
func ExtractContent(page []byte, withLinks bool) (models.FetchOutcome, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return models.EmptyOutcome(), fmt.Errorf("解析HTML失败: %w", err)
	}

	outcome := models.EmptyOutcome()
	outcome.Text = extractParagraphs(doc)
	if withLinks {
		outcome.Links = extractLinks(doc)
		outcome.Buttons = extractButtons(doc)
	}
	return outcome, nil
}

// extractParagraphs 按文档顺序每行一个段落,跳过空段落
func extractParagraphs(doc *goquery.Document) string {
	lines := make([]string, 0)
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		var sb strings.Builder
		for _, node := range p.Nodes {
			visibleText(node, &sb)
		}
		if line := strings.Join(strings.Fields(sb.String()), " "); line != "" {
			lines = append(lines, line)
		}
	})
	return strings.Join(lines, "\n")
}

// visibleText 收集文本节点,跳过脚本和样式
func visibleText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return
		case atom.Br:
			sb.WriteByte(' ')
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visibleText(c, sb)
	}
}

// extractLinks 以http或www开头的链接,保持文档顺序且不去重
func extractLinks(doc *goquery.Document) []string {
	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if strings.HasPrefix(href, "http") || strings.HasPrefix(href, "www") {
			links = append(links, href)
		}
	})
	return links
}

// extractButtons 提交/按钮控件,格式为 "<名称>目标"
//
// 名称取value属性,否则取文本;目标依次取onclick、formaction、href。
// 没有type属性的button元素按HTML默认视为submit。
func extractButtons(doc *goquery.Document) []string {
	buttons := make([]string, 0)
	doc.Find("button, input").Each(func(_ int, el *goquery.Selection) {
		kind, hasType := el.Attr("type")
		kind = strings.ToLower(strings.TrimSpace(kind))
		if !hasType && goquery.NodeName(el) == "button" {
			kind = "submit"
		}
		if kind != "submit" && kind != "button" {
			return
		}

		name := strings.TrimSpace(el.AttrOr("value", ""))
		if name == "" {
			name = strings.Join(strings.Fields(el.Text()), " ")
		}

		var target string
		for _, attr := range []string{"onclick", "formaction", "href"} {
			if v := strings.TrimSpace(el.AttrOr(attr, "")); v != "" {
				target = v
				break
			}
		}

		if name != "" && target != "" {
			buttons = append(buttons, "<"+name+">"+target)
		}
	})
	return buttons
}
