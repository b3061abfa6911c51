package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nerdneilsfield/go-docx-translator/internal/server"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 翻译服务",
		Long: `启动 HTTP 翻译服务。

接口:
  POST   /api/jobs              上传 docx (multipart 字段 file 与 target_language)
  GET    /api/jobs              任务列表
  GET    /api/jobs/{id}         任务状态
  GET    /api/jobs/{id}/result  下载结果 (下载后任务被释放)
  DELETE /api/jobs/{id}         取消任务
  GET    /health                健康检查`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.ListenAddr = addr
			}
			log := newLogger(cfg)
			defer func() {
				_ = log.Sync()
			}()

			tracker, err := newTracker(cfg, log)
			if err != nil {
				return err
			}
			srv := server.New(tracker, server.Config{
				Addr:            cfg.ListenAddr,
				MaxUploadBytes:  cfg.MaxUploadBytes,
				DefaultLanguage: cfg.TargetLang,
				Logger:          log,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("translation service configured",
				zap.String("provider", cfg.Provider),
				zap.String("model", cfg.Model),
				zap.Int("maxConcurrentJobs", cfg.MaxConcurrentJobs),
				zap.Duration("jobRetention", cfg.JobRetention))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Start(gctx)
			})
			if interval := reapInterval(cfg.JobRetention); interval > 0 {
				g.Go(func() error {
					tracker.RunReaper(gctx, interval)
					return nil
				})
			}
			err = g.Wait()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if serr := tracker.Shutdown(shutdownCtx); serr != nil {
				log.Warn("jobs did not stop in time", zap.Error(serr))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "监听地址 (默认使用配置 listen_addr)")
	return cmd
}

// reapInterval 清理过期任务的周期，保留时间为 0 时不清理
func reapInterval(retention time.Duration) time.Duration {
	if retention <= 0 {
		return 0
	}
	return min(retention/2, time.Minute)
}
