package models

import "errors"

var (
	// ErrNoKeywords 没有提供任何非空关键词
	ErrNoKeywords = errors.New("至少需要一个非空关键词")

	// ErrInvalidPageCount 页数不合法
	ErrInvalidPageCount = errors.New("搜索结果数量必须大于等于1")

	// ErrUnknownEngine 未知的搜索引擎
	ErrUnknownEngine = errors.New("不支持的搜索引擎")

	// ErrSessionStarted 会话已经启动过,每个会话只能运行一次
	ErrSessionStarted = errors.New("会话已启动,不能重复运行")
)
