package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-docx-translator/internal/cli"
	"github.com/nerdneilsfield/go-docx-translator/internal/logger"
)

// Version information
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	rootCmd := cli.NewRootCommand(Version, Commit, BuildDate)
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	// 命令执行后标志已解析，--debug 同样作用于这里的错误日志
	debug, _ := rootCmd.PersistentFlags().GetBool("debug")
	log := logger.NewLogger(debug)
	log.Error("执行命令失败", zap.Error(err))
	_ = log.Sync()
	os.Exit(1)
}
