package models

import (
	"fmt"
	"strings"
)

// SearchEngine 搜索引擎
type SearchEngine string

const (
	EngineGoogle     SearchEngine = "google"     // 谷歌
	EngineBing       SearchEngine = "bing"       // 必应
	EngineBaidu      SearchEngine = "baidu"      // 百度
	EngineSogou      SearchEngine = "sogou"      // 搜狗
	EngineDuckDuckGo SearchEngine = "duckduckgo" // DuckDuckGo
)

// AllEngines 支持的全部搜索引擎,顺序即展示顺序
var AllEngines = []SearchEngine{
	EngineGoogle,
	EngineBing,
	EngineBaidu,
	EngineSogou,
	EngineDuckDuckGo,
}

// engineAliases 搜索引擎别名 (小写)
var engineAliases = map[string]SearchEngine{
	"google":     EngineGoogle,
	"谷歌":         EngineGoogle,
	"bing":       EngineBing,
	"必应":         EngineBing,
	"baidu":      EngineBaidu,
	"百度":         EngineBaidu,
	"sogou":      EngineSogou,
	"搜狗":         EngineSogou,
	"duckduckgo": EngineDuckDuckGo,
	"ddg":        EngineDuckDuckGo,
}

// DisplayName 返回写入文档的引擎名称
func (e SearchEngine) DisplayName() string {
	switch e {
	case EngineGoogle:
		return "Google"
	case EngineBing:
		return "Bing"
	case EngineBaidu:
		return "Baidu"
	case EngineSogou:
		return "Sogou"
	case EngineDuckDuckGo:
		return "DuckDuckGo"
	default:
		return string(e)
	}
}

// Valid 是否为支持的搜索引擎
func (e SearchEngine) Valid() bool {
	for _, known := range AllEngines {
		if e == known {
			return true
		}
	}
	return false
}

// ParseSearchEngine 解析搜索引擎名称,大小写不敏感,支持中文别名
func ParseSearchEngine(name string) (SearchEngine, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if engine, ok := engineAliases[key]; ok {
		return engine, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}
