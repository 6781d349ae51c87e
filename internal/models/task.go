package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionStatus 会话状态
type SessionStatus string

const (
	SessionIdle      SessionStatus = "idle"      // 未启动
	SessionRunning   SessionStatus = "running"   // 执行中
	SessionCompleted SessionStatus = "completed" // 已完成
	SessionCancelled SessionStatus = "cancelled" // 已取消
)

// Terminal 是否为终止状态
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// SessionStatistics 输出文档的文本统计,由重新读取文档得到
type SessionStatistics struct {
	WordCount                int `json:"word_count"`                 // 中文或英文字母连续串的数量
	CharsExcludingWhitespace int `json:"chars_excluding_whitespace"` // 非空白字符数
	CharsIncludingWhitespace int `json:"chars_including_whitespace"` // 总字符数
	NonChineseWordCount      int `json:"non_chinese_word_count"`     // 英文单词数
}

// String 日志友好的统计描述
func (s SessionStatistics) String() string {
	return fmt.Sprintf("字数: %d, 字符数(不计空格): %d, 字符数(计空格): %d, 非中文单词: %d",
		s.WordCount, s.CharsExcludingWhitespace, s.CharsIncludingWhitespace, s.NonChineseWordCount)
}

// SessionResult 会话结束通知
type SessionResult struct {
	SessionID string            `json:"session_id"`
	Status    SessionStatus     `json:"status"`
	Path      string            `json:"path"`
	Stats     SessionStatistics `json:"stats"`
	Records   []ResultRecord    `json:"records"`
	Duration  time.Duration     `json:"duration"`
}

// Empty 是否没有得到任何结果
func (r *SessionResult) Empty() bool {
	return len(r.Records) == 0
}

// ToJSON 转换为JSON
func (r *SessionResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ProgressKind 进度事件类型
type ProgressKind string

const (
	ProgressSessionStarted   ProgressKind = "session_started"
	ProgressKeywordStarted   ProgressKind = "keyword_started"
	ProgressResultsExtracted ProgressKind = "results_extracted"
	ProgressKeywordFinished  ProgressKind = "keyword_finished"
	ProgressSessionFinished  ProgressKind = "session_finished"
)

// ProgressEvent 粗粒度的进度通知,投递为尽力而为
type ProgressEvent struct {
	SessionID    string        `json:"session_id"`
	Kind         ProgressKind  `json:"kind"`
	Keyword      string        `json:"keyword,omitempty"`
	KeywordIndex int           `json:"keyword_index"` // 从1开始
	KeywordTotal int           `json:"keyword_total"`
	Count        int           `json:"count"` // 结果数量,含义随事件类型变化
	Status       SessionStatus `json:"status,omitempty"`
}
