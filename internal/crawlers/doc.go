// Package crawlers 提供搜索结果页面的抓取和正文提取
//
// # 概述
//
// crawlers包负责网络I/O: 通过Colly发送GET请求,按固定次数重试,
// 遇到403时更换User-Agent,并以固定并发度批量抓取页面。
//
// # 核心组件
//
// ## CollyRequester
//
// 基于Colly同步collector的 Requester 实现。每个请求携带独立的colly.Context,
// 因此同一个实例可以被多个goroutine同时使用。传输层负责解压gzip/deflate/br,
// 可选使用Chrome的TLS指纹(utls)。
//
//	requester := NewCollyRequester(DefaultRequesterConfig())
//	resp, err := requester.Get("https://example.com", header)
//
// ## PageFetcher
//
// 单页面抓取,内部是一个显式的重试状态机(尝试次数 + 当前身份):
//
//   - 成功(状态码 < 400): 提取正文并返回
//   - 403: 更换身份,等待固定间隔后重试
//   - 其他失败: 保持身份,等待固定间隔后重试
//   - 重试耗尽: 记录一次error日志,返回空结果
//   - 每次尝试前检查取消令牌,已取消则立即返回空结果
//
// 使用示例:
//
//	fetcher := NewPageFetcher(requester, identities, DefaultFetcherConfig())
//	outcome := fetcher.Fetch(token, "https://example.com/article")
//
// ## FetchPool
//
// 最多 MaxConcurrentFetches 个页面同时抓取。结果写入预先分配好的切片,
// 下标与输入URL一一对应,与完成顺序无关。
//
//	pool := NewFetchPool(fetcher)
//	outcomes := pool.FetchAll(token, urls) // len(outcomes) == len(urls)
//
// # 正文提取
//
//   - 正文: 所有<p>元素的可见文本,每段一行,跳过空段落和脚本/样式
//   - 外链(可选): 以http或www开头的<a href>,保持顺序不去重
//   - 按钮(可选): submit/button控件,格式 "<名称>目标",
//     目标依次取onclick、formaction、href
package crawlers
