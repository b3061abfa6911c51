package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-docx-translator/internal/jobs"
	"github.com/nerdneilsfield/go-docx-translator/internal/translator"
)

const pollInterval = 200 * time.Millisecond

type translateOptions struct {
	targetLang string
	noProgress bool
}

func newTranslateCommand(root *rootOptions) *cobra.Command {
	opts := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate <input.docx> [output.docx]",
		Short: "翻译一个 docx 文档",
		Long: `翻译一个 docx 文档。未指定输出路径时写入输入文件所在目录的 translated_<name>。

示例:
  translator translate report.docx --to German
  translator translate report.docx report.es.docx --to es --provider compatible`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer func() {
				_ = log.Sync()
			}()

			input := args[0]
			output := filepath.Join(filepath.Dir(input), translator.ResultName(input))
			if len(args) == 2 {
				output = args[1]
			}
			lang := opts.targetLang
			if lang == "" {
				lang = cfg.TargetLang
			}

			tracker, err := newTracker(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = tracker.Shutdown(ctx)
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runTranslate(ctx, tracker, translateRequest{
				input:      input,
				output:     output,
				targetLang: lang,
				progress:   !opts.noProgress,
			}, cmd.OutOrStdout(), log)
		},
	}

	cmd.Flags().StringVarP(&opts.targetLang, "to", "t", "", "目标语言 (名称或 BCP-47 代码，如 Spanish、es、zh-Hans)")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "不显示进度条")
	return cmd
}

type translateRequest struct {
	input      string
	output     string
	targetLang string
	progress   bool
}

// runTranslate 通过任务跟踪器翻译单个文件并写出结果
func runTranslate(ctx context.Context, tracker *jobs.Tracker, req translateRequest, out io.Writer, log *zap.Logger) error {
	data, err := os.ReadFile(req.input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	start := time.Now()
	id, err := tracker.Submit(ctx, jobs.Request{
		FileName:       filepath.Base(req.input),
		Data:           data,
		TargetLanguage: req.targetLang,
	})
	if err != nil {
		return err
	}
	log.Debug("translation job started", zap.String("jobID", id), zap.String("input", req.input))

	var bar *progressBar
	if req.progress {
		bar = newProgressBar(out, filepath.Base(req.input))
	}
	snap, err := waitForJob(ctx, tracker, id, func(s jobs.Snapshot) {
		if bar != nil {
			bar.update(s)
		}
	})
	if bar != nil {
		bar.stop(snap)
	}
	if err != nil {
		return err
	}
	if snap.Status == jobs.StatusError {
		return fmt.Errorf("translation failed: %s", snap.Error)
	}

	result, _, err := tracker.Result(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(req.output, result, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	printSummary(out, snap, req.output, time.Since(start))
	return nil
}

// waitForJob 轮询任务直到结束，每次轮询调用 onPoll
func waitForJob(ctx context.Context, tracker *jobs.Tracker, id string, onPoll func(jobs.Snapshot)) (jobs.Snapshot, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		snap, err := tracker.Poll(id)
		if err != nil {
			return jobs.Snapshot{}, err
		}
		onPoll(snap)
		if snap.Status.Terminal() {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			if cerr := tracker.Cancel(id); cerr != nil && !errors.Is(cerr, jobs.ErrJobFinished) {
				return snap, cerr
			}
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

// progressBar 用 go-pretty 渲染任务进度
type progressBar struct {
	writer  progress.Writer
	tracker *progress.Tracker
}

func newProgressBar(out io.Writer, name string) *progressBar {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(40)
	pw.SetMessageLength(36)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Colors = progress.StyleColorsExample
	pw.Style().Options.PercentFormat = "%4.1f%%"
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Value = false

	t := &progress.Tracker{Message: name, Total: 100, Units: progress.UnitsDefault}
	pw.AppendTracker(t)
	go pw.Render()
	// Stop 只对已开始的渲染生效
	for !pw.IsRenderInProgress() {
		time.Sleep(time.Millisecond)
	}

	return &progressBar{writer: pw, tracker: t}
}

func (b *progressBar) update(s jobs.Snapshot) {
	b.tracker.SetValue(int64(s.Progress))
	if s.Message != "" {
		b.tracker.UpdateMessage(s.Message)
	}
}

func (b *progressBar) stop(s jobs.Snapshot) {
	switch s.Status {
	case jobs.StatusCompleted:
		b.tracker.MarkAsDone()
	default:
		b.tracker.MarkAsErrored()
	}
	// 等待最后一帧渲染完成
	time.Sleep(150 * time.Millisecond)
	b.writer.Stop()
	for b.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}

// printSummary 打印翻译结果摘要
func printSummary(out io.Writer, s jobs.Snapshot, output string, elapsed time.Duration) {
	title := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	title.Fprintln(out, "Translation summary")
	fmt.Fprintf(out, "  %-12s %s\n", "Language:", s.TargetLanguage)
	fmt.Fprintf(out, "  %-12s %d\n", "Paragraphs:", s.Stats.Total)
	ok.Fprintf(out, "  %-12s %d\n", "Translated:", s.Stats.Translated)
	if s.Stats.Failed > 0 {
		warn.Fprintf(out, "  %-12s %d (kept in source language, highlighted)\n", "Failed:", s.Stats.Failed)
	}
	fmt.Fprintf(out, "  %-12s %s\n", "Duration:", elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "  %-12s %s\n", "Output:", output)
}
