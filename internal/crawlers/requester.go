package crawlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
	"github.com/gocolly/colly/v2"
)

const (
	// DefaultTimeout 单次请求超时
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize 响应体大小上限
	DefaultMaxBodySize = 10 * 1024 * 1024

	ctxStatus = "status"
	ctxBody   = "body"
	ctxHeader = "header"
)

// errNoResponse 请求结束但没有收到任何响应
var errNoResponse = errors.New("未收到响应")

// Response 一次HTTP请求的结果
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Requester 发送单个GET请求,不做重试
//
// 实现必须允许并发调用。非2xx状态码不视为错误,由调用方根据StatusCode判断。
type Requester interface {
	Get(rawURL string, header http.Header) (*Response, error)
}

// RequesterConfig HTTP层配置
type RequesterConfig struct {
	Timeout            time.Duration // 单次请求超时
	MaxBodySize        int           // 响应体大小上限(字节)
	TLSFingerprint     bool          // 使用Chrome的TLS指纹
	InsecureSkipVerify bool          // 跳过证书验证
}

// DefaultRequesterConfig 默认HTTP层配置
func DefaultRequesterConfig() RequesterConfig {
	return RequesterConfig{
		Timeout:     DefaultTimeout,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// CollyRequester 基于Colly的Requester实现
//
// 同步模式的collector,每个请求通过独立的colly.Context取回响应,因此可以并发使用。
type CollyRequester struct {
	collector *colly.Collector
}

// NewCollyRequester 创建Colly请求器
func NewCollyRequester(cfg RequesterConfig) *CollyRequester {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(cfg.MaxBodySize),
	)
	c.SetRequestTimeout(cfg.Timeout)
	c.WithTransport(newTransport(cfg))

	c.OnRequest(func(r *colly.Request) {
		utils.Debugf("访问: %s (UA: %s)", r.URL.String(), r.Headers.Get("User-Agent"))
	})

	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxStatus, r.StatusCode)
		r.Ctx.Put(ctxBody, r.Body)
		if r.Headers != nil {
			r.Ctx.Put(ctxHeader, r.Headers.Clone())
		}
	})

	if cfg.TLSFingerprint {
		utils.Debugf("请求器: 已启用Chrome TLS指纹")
	}
	if cfg.InsecureSkipVerify {
		utils.Warnf("请求器: 已禁用TLS证书验证")
	}

	return &CollyRequester{collector: c}
}

// Get 实现 Requester 接口
func (cr *CollyRequester) Get(rawURL string, header http.Header) (*Response, error) {
	ctx := colly.NewContext()
	if err := cr.collector.Request(http.MethodGet, rawURL, nil, ctx, header.Clone()); err != nil {
		return nil, fmt.Errorf("请求 %s 失败: %w", rawURL, err)
	}

	status, _ := ctx.GetAny(ctxStatus).(int)
	if status == 0 {
		return nil, fmt.Errorf("请求 %s 失败: %w", rawURL, errNoResponse)
	}
	body, _ := ctx.GetAny(ctxBody).([]byte)
	respHeader, _ := ctx.GetAny(ctxHeader).(http.Header)

	return &Response{
		StatusCode: status,
		Header:     respHeader,
		Body:       body,
	}, nil
}
