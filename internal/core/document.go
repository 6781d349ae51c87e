package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
)

const (
	// DocumentExt 输出文档扩展名
	DocumentExt = ".txt"

	// DateTimeLayout 文档中当前时间的格式
	DateTimeLayout = "2006-01-02 15:04:05"

	// resultFence 搜索结果块的起止标记
	resultFence = `"""`

	fallbackTitle = "search results"
)

// illegalNameChars 文件名中不允许出现的字符
var illegalNameChars = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// DocumentWriter 将结果列表渲染为问答用的参考文档
type DocumentWriter struct {
	// Now 当前时间,为nil时使用time.Now
	Now func() time.Time

	// WithLinks 为每条记录附加LINKS和BUTTON_LINKS行
	WithLinks bool
}

// NewDocumentWriter 创建文档写入器
func NewDocumentWriter(withLinks bool) *DocumentWriter {
	return &DocumentWriter{Now: time.Now, WithLinks: withLinks}
}

// Write 写入文档并返回实际路径和统计
//
// 同名文件已存在时追加 " (n)" 后缀,绝不覆盖已有文件。
// 统计数据通过重新读取写入的文件得到。
func (w *DocumentWriter) Write(records []models.ResultRecord, req models.ScrapeRequest) (string, models.SessionStatistics, error) {
	var stats models.SessionStatistics

	dir := req.OutputDirectory
	if dir == "" {
		dir = utils.DefaultDownloadsDir()
	}
	dir = utils.ExpandHome(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", stats, fmt.Errorf("创建输出目录失败: %w", err)
	}

	file, path, err := createUnique(dir, documentBaseName(req.Title()))
	if err != nil {
		return "", stats, err
	}

	if err := writeDocument(file, path, w.render(records, req)); err != nil {
		return "", stats, err
	}

	written, err := os.ReadFile(path)
	if err != nil {
		return path, stats, fmt.Errorf("读取文档失败 %s: %w", path, err)
	}
	stats = ComputeStatistics(string(written))

	utils.Infof("文档已保存: %s (%d 条结果)", path, len(records))
	return path, stats, nil
}

// documentBaseName 由标题生成合法的文件名(不含扩展名)
func documentBaseName(title string) string {
	name := strings.TrimSpace(illegalNameChars.Replace(title))
	if name == "" {
		return fallbackTitle
	}
	return name
}

// createUnique 以独占方式创建文件,名称冲突时递增后缀
func createUnique(dir, base string) (*os.File, string, error) {
	for n := 0; ; n++ {
		name := base + DocumentExt
		if n > 0 {
			name = fmt.Sprintf("%s (%d)%s", base, n, DocumentExt)
		}
		path := filepath.Join(dir, name)

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("创建文档失败 %s: %w", path, err)
		}
	}
}

// documentFile 是 *os.File 中写文档用到的部分
type documentFile interface {
	io.StringWriter
	io.Closer
}

// writeDocument 写入并关闭 createUnique 刚创建的文件, 失败时删除该文件
func writeDocument(file documentFile, path, content string) error {
	_, werr := file.WriteString(content)
	cerr := file.Close()
	if werr == nil && cerr == nil {
		return nil
	}
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		utils.Warnf("删除未写完的文档失败 %s: %v", path, rmErr)
	}
	if werr != nil {
		return fmt.Errorf("写入文档失败 %s: %w", path, werr)
	}
	return fmt.Errorf("关闭文档失败 %s: %w", path, cerr)
}

func (w *DocumentWriter) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

func (w *DocumentWriter) render(records []models.ResultRecord, req models.ScrapeRequest) string {
	var sb strings.Builder

	sb.WriteString("您是一个知识渊博且乐于助人的人，可以回答任何问题。您的任务是回答以下由三个反引号分隔的问题。\n\n")
	fmt.Fprintf(&sb, "问题:\n```\n%s\n```\n\n", req.Title())
	sb.WriteString("可能问题本身，或其中的一部分,需要从互联网获取相关信息才能给出令人满意的答案。" +
		"下面由三个反引号分隔的相关搜索结果已经提供了必要的信息，用于为问题设置背景，因此您无需访问互联网来回答问题。\n\n")
	fmt.Fprintf(&sb, "供您参考，今天的日期是%s。\n\n", w.now().Format(DateTimeLayout))
	sb.WriteString("---\n\n")
	sb.WriteString("如果您在回答中使用了任何搜索结果，请始终在相应行的末尾引用来源，类似于Wikipedia.org引用信息。" +
		"使用格式[[NUMBER](URL)], 其中NUMBER和URL对应于下面由三个反引号分隔的提供的搜索结果。\n\n")
	sb.WriteString("以清晰的格式呈现答案。\n")
	sb.WriteString("如果有必要, 使用编号列表以澄清事情。\n")
	sb.WriteString("尽量简洁回答，理想情况不超过1000个字。\n\n")
	sb.WriteString("---\n\n")
	sb.WriteString("如果在搜索结果中找不到足够的信息，不确定答案, 尽最大努力通过使用所有来自搜索结果的信息给出有帮助的回应。\n\n")

	sb.WriteString(resultFence + "\n")
	for i, rec := range records {
		fmt.Fprintf(&sb, "NUMBER: %d\n", i+1)
		fmt.Fprintf(&sb, "SEARCH ENGINE: %s\n", rec.Engine.DisplayName())
		fmt.Fprintf(&sb, "KEYWORD: %s\n", rec.Keyword)
		fmt.Fprintf(&sb, "URL: %s\n", rec.URL)
		fmt.Fprintf(&sb, "TITLE: %s\n", rec.Title)
		fmt.Fprintf(&sb, "DATE: %s\n", rec.PublishedDate)
		fmt.Fprintf(&sb, "CONTENT:\n%s\n", rec.BodyText)
		if w.WithLinks {
			fmt.Fprintf(&sb, "LINKS: %s\n", strings.Join(rec.OutboundLinks, ", "))
			fmt.Fprintf(&sb, "BUTTON_LINKS: %s\n", strings.Join(rec.InteractiveTargets, ", "))
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString(resultFence + "\n")

	return sb.String()
}
