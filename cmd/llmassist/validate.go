package main

import (
	"fmt"

	"github.com/RecoveryAshes/llm-online-assistant/internal/core"
	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
	"github.com/spf13/cobra"
)

// applyFlags 显式指定的命令行参数覆盖配置文件
func applyFlags(cmd *cobra.Command, cfg *core.Config) {
	flags := cmd.Flags()
	if flags.Changed("pages") {
		cfg.Search.PageCount = pageCount
	}
	if flags.Changed("engine") {
		cfg.Search.Engine = engineName
	}
	if flags.Changed("output") {
		cfg.Output.Directory = outputDir
	}
	if withLinks {
		cfg.Fetch.ExtractLinks = true
	}
	if tlsFingerprint {
		cfg.Fetch.TLSFingerprint = true
	}
	if insecure {
		cfg.Fetch.Insecure = true
	}
}

// buildRequest 合并命令行关键词和关键词文件,构造抓取请求
func buildRequest(cfg *core.Config, keywords []string, keywordFile, question string) (models.ScrapeRequest, error) {
	all := append([]string(nil), keywords...)
	if keywordFile != "" {
		fromFile, err := utils.ReadKeywordsFromFile(keywordFile)
		if err != nil {
			return models.ScrapeRequest{}, fmt.Errorf("读取关键词文件失败: %w", err)
		}
		all = append(all, fromFile...)
	}

	engine, err := models.ParseSearchEngine(cfg.Search.Engine)
	if err != nil {
		return models.ScrapeRequest{}, err
	}

	req := models.ScrapeRequest{
		Keywords:        all,
		PageCount:       cfg.Search.PageCount,
		Engine:          engine,
		OutputDirectory: utils.ExpandHome(cfg.Output.Directory),
		DocumentTitle:   question,
	}
	req.Normalize()
	return req, nil
}

// ValidateRequest 验证命令行构造的请求
func ValidateRequest(req models.ScrapeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.PageCount > models.MaxPageCount {
		return fmt.Errorf("%w (上限 %d), 当前值: %d", models.ErrInvalidPageCount, models.MaxPageCount, req.PageCount)
	}
	return nil
}
