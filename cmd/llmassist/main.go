package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/llm-online-assistant/internal/core"
	"github.com/RecoveryAshes/llm-online-assistant/internal/crawlers"
	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
	"github.com/RecoveryAshes/llm-online-assistant/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// 请求身份参数
	headers        []string
	headersFile    string
	validateConfig bool

	// 搜索参数
	keywords       []string
	keywordFile    string
	question       string
	pageCount      int
	engineName     string
	outputDir      string
	withLinks      bool
	tlsFingerprint bool
	insecure       bool
	jsonOutput     bool

	// 批量模式参数
	perKeyword      bool
	batchDelay      time.Duration
	continueOnError bool
)

// appConfig 在PersistentPreRunE中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "llmassist",
	Short: "搜索引擎结果抓取与问答参考文档生成工具",
	Long: `llmassist - 在线搜索助手

按关键词请求搜索引擎结果页,并发抓取每个结果页面的正文,
生成一份带编号引用的参考文档,供大语言模型回答问题时使用。

  • 支持 Google / Bing / 百度 / 搜狗 / DuckDuckGo
  • 遇到403自动更换User-Agent并重试
  • Ctrl+C 取消后仍会写出已收集的部分结果

使用示例:
  llmassist -k "rust ownership"
  llmassist -k "rust 所有权" -k "borrow checker" -e bing -n 20 -q "Rust的所有权规则是什么?"
  llmassist -f keywords.txt --per-keyword -o ./out
  llmassist -k golang -H "Cookie: a=b" --with-links

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig = cfg

		logConfig := cfg.LogConfig()
		if logLevel != "" {
			logConfig.Level = logLevel
		} else if verbose {
			logConfig.Level = "debug"
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}
		return nil
	},
	RunE: runRoot,
}

func runRoot(cmd *cobra.Command, args []string) error {
	identities, err := core.LoadIdentityManager(headersFile, headers)
	if err != nil {
		return fmt.Errorf("加载请求身份失败: %w", err)
	}
	if err := identities.Validate(); err != nil {
		return fmt.Errorf("请求身份验证失败: %w", err)
	}

	if validateConfig {
		printIdentity(identities)
		return nil
	}

	applyFlags(cmd, appConfig)

	req, err := buildRequest(appConfig, keywords, keywordFile, question)
	if err != nil {
		return err
	}
	if len(req.Keywords) == 0 {
		return cmd.Help()
	}
	if err := ValidateRequest(req); err != nil {
		return err
	}

	utils.Debugf("请求头部: %s", utils.NewHeaderRedactor().RedactToString(identities.Identity()))

	requester := crawlers.NewCollyRequester(appConfig.RequesterConfig())
	fetcher := crawlers.NewPageFetcher(requester, identities, appConfig.FetcherConfig())

	progress := make(chan models.ProgressEvent, 64)
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		utils.NewProgressReporter(os.Stderr).Consume(progress)
	}()
	defer func() {
		close(progress)
		<-reporterDone
	}()

	opts := appConfig.SessionOptions()
	opts.Progress = progress
	newSession := func() *core.Session {
		return core.NewSession(requester, identities, fetcher, core.NewDocumentWriter(opts.WithLinks), opts)
	}

	if perKeyword {
		runner := core.NewBatchRunner(newSession, batchDelay, continueOnError)
		stop := handleSignals(runner.Cancel)
		defer stop()

		summary, err := runner.Run(req)
		if summary != nil && jsonOutput {
			data, jerr := summary.ToJSON()
			if jerr != nil {
				return fmt.Errorf("序列化结果失败: %w", jerr)
			}
			fmt.Println(string(data))
		} else if summary != nil {
			for _, r := range summary.Results {
				if r.Result != nil {
					utils.PrintSummary(os.Stdout, r.Result)
				}
			}
		}
		return err
	}

	session := newSession()
	stop := handleSignals(session.Cancel)
	defer stop()

	result, err := session.Run(req)
	if err != nil {
		return err
	}
	if jsonOutput {
		data, err := result.ToJSON()
		if err != nil {
			return fmt.Errorf("序列化结果失败: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	utils.PrintSummary(os.Stdout, result)
	if result.Empty() {
		utils.Warn("没有抓取到任何搜索结果")
	}
	return nil
}

// handleSignals 第一次中断信号触发取消,第二次立即退出
func handleSignals(cancel func()) (stop func()) {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			utils.Warnf("收到中断信号: %v, 正在取消并写出已收集的结果... (再次按下立即退出)", sig)
			cancel()
		case <-done:
			return
		}
		select {
		case <-sigChan:
			utils.Warn("再次收到中断信号, 立即退出")
			os.Exit(130)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

func printIdentity(identities *core.IdentityManager) {
	utils.Info("✅ 请求身份配置验证通过!")
	utils.Infof("User-Agent池 (%d个):", len(identities.UserAgents()))
	for _, ua := range identities.UserAgents() {
		utils.Infof("  %s", ua)
	}
	safe := identities.SafeHeaders()
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safe))
	for name, value := range safe {
		utils.Infof("  %s: %s", name, value)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("llmassist %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "列出支持的搜索引擎",
	Run: func(cmd *cobra.Command, args []string) {
		for _, e := range models.AllEngines {
			fmt.Printf("%-12s %s\n", e, e.DisplayName())
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	rootCmd.Flags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.Flags().StringVar(&headersFile, "headers-file", "", "请求身份配置文件 (默认 configs/headers.yaml)")
	rootCmd.Flags().BoolVar(&validateConfig, "validate-config", false, "验证请求身份配置后退出")

	rootCmd.Flags().StringArrayVarP(&keywords, "keyword", "k", []string{}, "搜索关键词,可多次指定")
	rootCmd.Flags().StringVarP(&keywordFile, "keyword-file", "f", "", "关键词文件,每行一个")
	rootCmd.Flags().StringVarP(&question, "question", "q", "", "问题,同时作为文档标题 (默认使用第一个关键词)")
	rootCmd.Flags().IntVarP(&pageCount, "pages", "n", models.DefaultPageCount, fmt.Sprintf("每个关键词的搜索结果数量 (1-%d)", models.MaxPageCount))
	rootCmd.Flags().StringVarP(&engineName, "engine", "e", string(models.EngineGoogle), "搜索引擎 (google|bing|baidu|sogou|duckduckgo)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "输出目录 (默认 ~/Downloads)")
	rootCmd.Flags().BoolVar(&withLinks, "with-links", false, "在文档中附加页面外链和按钮目标")
	rootCmd.Flags().BoolVar(&tlsFingerprint, "tls-fingerprint", false, "使用Chrome的TLS指纹")
	rootCmd.Flags().BoolVar(&insecure, "insecure", false, "跳过TLS证书验证")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "以JSON格式输出会话结果")

	rootCmd.Flags().BoolVar(&perKeyword, "per-keyword", false, "每个关键词单独运行一个会话并生成独立文档")
	rootCmd.Flags().DurationVar(&batchDelay, "batch-delay", time.Second, "逐关键词模式下两个关键词之间的等待")
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "逐关键词模式下遇到错误继续处理")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(enginesCmd)
}

func main() {
	err := rootCmd.Execute()
	_ = utils.CloseLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
