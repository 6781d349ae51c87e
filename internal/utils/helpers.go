package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadKeywordsFromFile 从文件中读取关键词,每行一个,跳过空行和#注释行
func ReadKeywordsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开关键词文件失败: %w", err)
	}
	defer file.Close()

	keywords := make([]string, 0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取关键词文件失败: %w", err)
	}

	if len(keywords) == 0 {
		return nil, fmt.Errorf("关键词文件中没有有效的关键词")
	}

	Debugf("从文件加载了 %d 个关键词", len(keywords))
	return keywords, nil
}

// ExpandHome 展开路径开头的 ~
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultDownloadsDir 用户的下载目录
func DefaultDownloadsDir() string {
	return ExpandHome("~/Downloads")
}
