package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/RecoveryAshes/llm-online-assistant/internal/core"
	"github.com/RecoveryAshes/llm-online-assistant/internal/crawlers"
	"github.com/RecoveryAshes/llm-online-assistant/internal/engines"
	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
	"github.com/spf13/cobra"
)

var checkOnline bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查运行环境: 配置文件、请求身份、输出目录和搜索引擎连通性",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !runChecks(os.Stdout, appConfig) {
			return fmt.Errorf("环境检查未通过")
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkOnline, "online", false, "同时请求所配置搜索引擎的结果页")
	checkCmd.Flags().StringVar(&headersFile, "headers-file", "", "请求身份配置文件 (默认 configs/headers.yaml)")
	rootCmd.AddCommand(checkCmd)
}

func runChecks(w io.Writer, cfg *core.Config) bool {
	line := strings.Repeat("=", 50)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "  llmassist 环境检查")
	fmt.Fprintln(w, line)

	allOK := true
	fmt.Fprintf(w, "✅ Go版本: %s\n", runtime.Version())
	fmt.Fprintf(w, "✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	engine, err := models.ParseSearchEngine(cfg.Search.Engine)
	if err != nil {
		fmt.Fprintf(w, "❌ 搜索引擎配置错误: %v\n", err)
		allOK = false
	} else {
		fmt.Fprintf(w, "✅ 搜索引擎: %s\n", engine.DisplayName())
	}

	identities, err := core.LoadIdentityManager(headersFile, nil)
	if err == nil {
		err = identities.Validate()
	}
	if err != nil {
		fmt.Fprintf(w, "❌ 请求身份配置: %v\n", err)
		allOK = false
	} else {
		fmt.Fprintf(w, "✅ 请求身份配置: %d 个User-Agent\n", len(identities.UserAgents()))
	}

	dir := utils.ExpandHome(cfg.Output.Directory)
	if err := checkOutputDir(dir); err != nil {
		fmt.Fprintf(w, "❌ 输出目录不可写: %v\n", err)
		allOK = false
	} else {
		fmt.Fprintf(w, "✅ 输出目录: %s\n", dir)
	}

	if checkOnline && identities != nil && engine.Valid() {
		status, err := checkEngine(engine, identities, cfg.RequesterConfig())
		switch {
		case err != nil:
			fmt.Fprintf(w, "❌ %s 无法访问: %v\n", engine.DisplayName(), err)
			allOK = false
		case status == 403:
			fmt.Fprintf(w, "⚠️  %s 拒绝访问 (403), 可能需要更换User-Agent或代理\n", engine.DisplayName())
		default:
			fmt.Fprintf(w, "✅ %s 可访问 (状态码 %d)\n", engine.DisplayName(), status)
		}
	}

	fmt.Fprintln(w, line)
	if allOK {
		fmt.Fprintln(w, "✅ 环境检查通过")
	} else {
		fmt.Fprintln(w, "❌ 环境检查未通过,请解决上述问题")
	}
	return allOK
}

// checkOutputDir 确认目录存在(必要时创建)且可写
func checkOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".llmassist-check-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(filepath.Clean(name))
}

// checkEngine 请求一次搜索结果页并返回状态码
func checkEngine(engine models.SearchEngine, identities models.IdentityProvider, cfg crawlers.RequesterConfig) (int, error) {
	adapter, err := engines.New(engine)
	if err != nil {
		return 0, err
	}
	resp, err := crawlers.NewCollyRequester(cfg).Get(adapter.BuildQueryURL("golang", 1), identities.Identity())
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}
