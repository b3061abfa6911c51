// Package cli 实现 translator 命令行
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-docx-translator/internal/config"
	"github.com/nerdneilsfield/go-docx-translator/internal/logger"
)

// rootOptions 全局标志
type rootOptions struct {
	configFile string
	debug      bool
	verbose    bool
	provider   string
	model      string
	batchSize  int
}

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "translator",
		Short: "保留格式的 DOCX 文档翻译工具",
		Long: `translator 使用大语言模型翻译 Word (.docx) 文档，保留段落样式、列表、表格与合并单元格。

段落按批次发送，模型回复按编号对齐；无法对齐的段落逐段重试，仍失败的段落保留原文并以黄色高亮标出。

支持的提供商:
  - openai: OpenAI 官方接口
  - compatible: OpenAI 兼容接口 (DeepSeek、Ollama、vLLM 等，需要 base_url)
  - echo: 原样返回，用于演练`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "配置文件路径 (默认 $HOME/.docx-translator.yaml)")
	flags.BoolVar(&opts.debug, "debug", false, "启用调试日志")
	flags.BoolVar(&opts.verbose, "verbose", false, "使用便于阅读的控制台日志")
	flags.StringVar(&opts.provider, "provider", "", "翻译提供商 (openai, compatible, echo)")
	flags.StringVar(&opts.model, "model", "", "模型名称")
	flags.IntVar(&opts.batchSize, "batch-size", 0, fmt.Sprintf("每批段落数 (1-%d)", config.MaxBatchSize))

	rootCmd.AddCommand(
		newTranslateCommand(opts),
		newServeCommand(opts),
		newJobsCommand(),
	)
	return rootCmd
}

// loadConfig 读取配置文件并应用命令行覆盖
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = o.provider
	}
	if flags.Changed("model") {
		cfg.Model = o.model
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = o.batchSize
	}
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}
	if flags.Changed("verbose") {
		cfg.Verbose = o.verbose
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	return logger.NewLoggerWithVerbose(cfg.Debug, cfg.Verbose)
}
