package core

import (
	"unicode"
	"unicode/utf8"

	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
)

// isHan 基本汉字区 U+4E00 ~ U+9FA5
func isHan(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FA5
}

func isLatin(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// isWordRune 单词字符: Unicode字母、数字或下划线
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// ComputeStatistics 扫描文档内容计算文本统计
//
//   - 字数: 汉字或英文字母组成的最长连续串数量
//   - 不计空白的字符数: 非Unicode空白字符的数量
//   - 计空白的字符数: 字符总数
//   - 非中文单词数: 两侧都不是单词字符的英文字母串数量
func ComputeStatistics(content string) models.SessionStatistics {
	var stats models.SessionStatistics
	runes := []rune(content)
	stats.CharsIncludingWhitespace = utf8.RuneCountInString(content)

	inWord := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !unicode.IsSpace(r) {
			stats.CharsExcludingWhitespace++
		}

		if isHan(r) || isLatin(r) {
			if !inWord {
				stats.WordCount++
			}
			inWord = true
		} else {
			inWord = false
		}

		if isLatin(r) && (i == 0 || !isLatin(runes[i-1])) {
			end := i
			for end < len(runes) && isLatin(runes[end]) {
				end++
			}
			before := i == 0 || !isWordRune(runes[i-1])
			after := end == len(runes) || !isWordRune(runes[end])
			if before && after {
				stats.NonChineseWordCount++
			}
		}
	}
	return stats
}
