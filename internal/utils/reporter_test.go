package utils

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
)

func TestProgressReporter_Consume(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewProgressReporter(&buf)

	events := make(chan models.ProgressEvent, 8)
	events <- models.ProgressEvent{Kind: models.ProgressSessionStarted, KeywordTotal: 2}
	events <- models.ProgressEvent{Kind: models.ProgressKeywordStarted, Keyword: "a", KeywordIndex: 1, KeywordTotal: 2}
	events <- models.ProgressEvent{Kind: models.ProgressResultsExtracted, Keyword: "a", Count: 3}
	events <- models.ProgressEvent{Kind: models.ProgressKeywordFinished, Keyword: "a", KeywordIndex: 1, KeywordTotal: 2}
	events <- models.ProgressEvent{Kind: models.ProgressSessionFinished, Status: models.SessionCompleted}
	close(events)

	reporter.Consume(events)

	if reporter.bar == nil {
		t.Fatal("会话开始事件应创建进度条")
	}
	if !reporter.bar.IsFinished() {
		t.Error("通道关闭后进度条应结束")
	}
}

func TestProgressReporter_IgnoresEventsBeforeStart(t *testing.T) {
	reporter := NewProgressReporter(&bytes.Buffer{})
	reporter.Handle(models.ProgressEvent{Kind: models.ProgressKeywordFinished})
	if reporter.bar != nil {
		t.Error("未收到开始事件时不应创建进度条")
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, &models.SessionResult{
		Status:   models.SessionCancelled,
		Path:     "/tmp/out/rust ownership.txt",
		Stats:    models.SessionStatistics{WordCount: 12, NonChineseWordCount: 4},
		Records:  make([]models.ResultRecord, 3),
		Duration: 1500 * time.Millisecond,
	})

	out := buf.String()
	for _, want := range []string{"会话已取消", "搜索结果: 3", "/tmp/out/rust ownership.txt", "字数: 12", "1.50秒"} {
		if !strings.Contains(out, want) {
			t.Errorf("输出缺少 %q:\n%s", want, out)
		}
	}
}
