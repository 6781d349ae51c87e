package utils

import (
	"fmt"
	"io"
	"strings"

	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/schollz/progressbar/v3"
)

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// ProgressReporter 把会话的进度事件渲染为关键词进度条
type ProgressReporter struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewProgressReporter 创建进度渲染器
func NewProgressReporter(out io.Writer) *ProgressReporter {
	return &ProgressReporter{out: out}
}

// Consume 持续消费事件直到通道关闭
func (r *ProgressReporter) Consume(events <-chan models.ProgressEvent) {
	for ev := range events {
		r.Handle(ev)
	}
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// Handle 处理单个事件
func (r *ProgressReporter) Handle(ev models.ProgressEvent) {
	switch ev.Kind {
	case models.ProgressSessionStarted:
		r.bar = NewProgressBar(ev.KeywordTotal, "🔍 搜索关键词", r.out)
	case models.ProgressKeywordStarted:
		if r.bar != nil {
			r.bar.Describe(fmt.Sprintf("🔍 [%d/%d] %s", ev.KeywordIndex, ev.KeywordTotal, ev.Keyword))
		}
	case models.ProgressResultsExtracted:
		Debugf("关键词 '%s' 解析到 %d 条搜索结果", ev.Keyword, ev.Count)
	case models.ProgressKeywordFinished:
		if r.bar != nil {
			_ = r.bar.Add(1)
		}
	case models.ProgressSessionFinished:
		if r.bar != nil {
			_ = r.bar.Finish()
		}
	}
}

// PrintSummary 输出会话统计
func PrintSummary(w io.Writer, result *models.SessionResult) {
	line := strings.Repeat("=", 50)
	fmt.Fprintln(w)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "📊 抓取统计")
	fmt.Fprintln(w, line)
	if result.Status == models.SessionCancelled {
		fmt.Fprintln(w, "⚠️  会话已取消,文档内容不完整")
	}
	fmt.Fprintf(w, "✅ 搜索结果: %d\n", len(result.Records))
	fmt.Fprintf(w, "📄 文档路径: %s\n", result.Path)
	fmt.Fprintf(w, "📝 字数: %d\n", result.Stats.WordCount)
	fmt.Fprintf(w, "🔤 字符数(不计空格): %d\n", result.Stats.CharsExcludingWhitespace)
	fmt.Fprintf(w, "🔤 字符数(计空格): %d\n", result.Stats.CharsIncludingWhitespace)
	fmt.Fprintf(w, "🔠 非中文单词数: %d\n", result.Stats.NonChineseWordCount)
	fmt.Fprintf(w, "⏱️  总耗时: %.2f秒\n", result.Duration.Seconds())
	fmt.Fprintln(w, line)
}
