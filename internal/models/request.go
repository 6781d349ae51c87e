package models

import (
	"fmt"
	"strings"
)

const (
	// DefaultPageCount 默认每个关键词请求的搜索结果数量
	DefaultPageCount = 10

	// MaxPageCount 搜索结果数量上限
	MaxPageCount = 100
)

// ScrapeRequest 一次抓取会话的输入
type ScrapeRequest struct {
	Keywords        []string     `json:"keywords"`                   // 关键词,按提交顺序处理
	PageCount       int          `json:"page_count"`                 // 每个关键词的搜索结果数量
	Engine          SearchEngine `json:"engine"`                     // 搜索引擎
	OutputDirectory string       `json:"output_directory,omitempty"` // 输出目录,为空时使用下载目录
	DocumentTitle   string       `json:"document_title,omitempty"`   // 文档标题(即问题),为空时使用第一个关键词
}

// Normalize 去除关键词首尾空白并丢弃空关键词
func (r *ScrapeRequest) Normalize() {
	keywords := make([]string, 0, len(r.Keywords))
	for _, kw := range r.Keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	r.Keywords = keywords
	r.DocumentTitle = strings.TrimSpace(r.DocumentTitle)
	r.OutputDirectory = strings.TrimSpace(r.OutputDirectory)
}

// Validate 验证请求,在会话开始前调用
func (r *ScrapeRequest) Validate() error {
	hasKeyword := false
	for _, kw := range r.Keywords {
		if strings.TrimSpace(kw) != "" {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return ErrNoKeywords
	}
	if r.PageCount < 1 {
		return fmt.Errorf("%w, 当前值: %d", ErrInvalidPageCount, r.PageCount)
	}
	if !r.Engine.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEngine, r.Engine)
	}
	return nil
}

// Title 返回文档标题,未设置时使用第一个非空关键词
func (r *ScrapeRequest) Title() string {
	if t := strings.TrimSpace(r.DocumentTitle); t != "" {
		return t
	}
	for _, kw := range r.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			return kw
		}
	}
	return ""
}
