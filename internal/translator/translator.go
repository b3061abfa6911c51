package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-docx-translator/internal/config"
	"github.com/nerdneilsfield/go-docx-translator/internal/document"
	"github.com/nerdneilsfield/go-docx-translator/internal/logger"
	"github.com/nerdneilsfield/go-docx-translator/internal/provider"
)

// Options 翻译器配置
type Options struct {
	TargetLanguage    string
	BatchSize         int
	BatchContextSize  int
	SingleContextSize int
	ContextEntryRunes int
	BatchMaxTokens    int
	SingleMaxTokens   int
	MaxRetries        int
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration
	RequestTimeout    time.Duration
	Glossary          *config.Glossary
	Verbose           bool
	// Limits 解析上传文档时的解压上限
	Limits document.Limits
}

// OptionsFromConfig 从全局配置生成翻译器配置
func OptionsFromConfig(cfg *config.Config, glossary *config.Glossary) Options {
	return Options{
		TargetLanguage:    cfg.TargetLang,
		BatchSize:         cfg.BatchSize,
		BatchContextSize:  cfg.BatchContextSize,
		SingleContextSize: cfg.SingleContextSize,
		ContextEntryRunes: cfg.ContextEntryRunes,
		BatchMaxTokens:    cfg.BatchMaxTokens,
		SingleMaxTokens:   cfg.SingleMaxTokens,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		MaxRetryDelay:     cfg.MaxRetryDelay,
		RequestTimeout:    cfg.RequestTimeout,
		Glossary:          glossary,
		Verbose:           cfg.Verbose,
		Limits: document.Limits{
			MaxPartBytes:  cfg.MaxPartBytes,
			MaxTotalBytes: cfg.MaxExtractedBytes,
		},
	}
}

// Progress 每个批次结束后发送
type Progress struct {
	Batch      int
	Batches    int
	Done       int
	Total      int
	Translated int
	Failed     int
}

// Summary 一次翻译的统计
type Summary struct {
	Total      int
	Translated int
	Failed     int
	Batches    int
	ByTier     map[Tier]int
}

// Translator 批量翻译单元，维护上下文窗口并逐级回退
type Translator struct {
	invoker provider.Invoker
	opts    Options
	logger  *zap.Logger
}

// New 创建翻译器
func New(invoker provider.Invoker, opts Options, log *zap.Logger) *Translator {
	return &Translator{
		invoker: invoker,
		opts:    opts,
		logger:  logger.OrNop(log),
	}
}

// Translate 按批次翻译所有单元，每个单元恰好得到一次结果（译文或失败）。
// 只有全部单元失败时才返回错误；ctx 取消时立即返回。
func (t *Translator) Translate(ctx context.Context, units []*document.Unit, targetLanguage string, progress chan<- Progress) (Summary, error) {
	lang := NormalizeLanguage(targetLanguage)
	if strings.TrimSpace(targetLanguage) == "" && t.opts.TargetLanguage != "" {
		lang = NormalizeLanguage(t.opts.TargetLanguage)
	}

	sum := Summary{Total: len(units), ByTier: make(map[Tier]int)}

	pending := make([]*document.Unit, 0, len(units))
	for _, u := range units {
		if strings.TrimSpace(u.Source) == "" {
			if u.Accept(u.Source) {
				sum.Translated++
			}
			continue
		}
		pending = append(pending, u)
	}

	window := NewWindow(t.opts.SingleContextSize, t.opts.ContextEntryRunes)
	batches := Schedule(pending, t.opts.BatchSize)
	sum.Batches = len(batches)

	t.logger.Info("starting translation",
		zap.String("targetLanguage", lang),
		zap.Int("units", len(units)),
		zap.Int("batches", len(batches)),
		zap.String("provider", t.invoker.Name()))

	var lastErr error
	done := len(units) - len(pending)
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		outcome, err := t.translateBatch(ctx, b, lang, window)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			t.logger.Warn("batch request failed, translating units individually",
				zap.Int("batch", b.Index),
				zap.Int("batchSize", b.Len()),
				zap.Error(err))
			outcome = newOutcome(b.Len())
		} else if missing := outcome.Unresolved(); len(missing) > 0 {
			t.logger.Info("batch reply partially aligned",
				zap.Int("batch", b.Index),
				zap.Int("unresolved", len(missing)))
		}

		for i, u := range b.Units {
			if text := outcome.Texts[i]; text != "" {
				if u.Accept(text) {
					window.Add(u.Source, text)
					sum.Translated++
					sum.ByTier[outcome.Tiers[i]]++
				}
				continue
			}

			text, err := t.translateSingle(ctx, u, lang, window)
			if err != nil {
				if ctx.Err() != nil {
					return sum, ctx.Err()
				}
				u.Fail(&AlignmentError{UnitID: u.ID, Err: err})
				sum.Failed++
				lastErr = err
				t.logger.Warn("unit left untranslated",
					zap.Int("unitID", u.ID),
					zap.String("location", u.Location.String()),
					zap.String("source", preview(u.Source)),
					zap.Error(err))
				continue
			}
			if u.Accept(text) {
				window.Add(u.Source, text)
				sum.Translated++
				sum.ByTier[TierSingle]++
			}
		}

		done += b.Len()
		t.report(ctx, progress, Progress{
			Batch:      b.Index + 1,
			Batches:    len(batches),
			Done:       done,
			Total:      len(units),
			Translated: sum.Translated,
			Failed:     sum.Failed,
		})
	}

	t.logger.Info("translation finished",
		zap.Int("translated", sum.Translated),
		zap.Int("failed", sum.Failed),
		zap.Int("tierMarkers", sum.ByTier[TierMarkers]),
		zap.Int("tierLines", sum.ByTier[TierLines]),
		zap.Int("tierSingle", sum.ByTier[TierSingle]))

	if sum.Total > 0 && sum.Translated == 0 {
		return sum, fmt.Errorf("%w: %v", ErrAllUnitsFailed, lastErr)
	}
	return sum, nil
}

// translateBatch 第一、二级：一次请求翻译整个批次
func (t *Translator) translateBatch(ctx context.Context, b Batch, lang string, window *Window) (Outcome, error) {
	prompt := batchPrompt(lang, b, t.opts.BatchMaxTokens)
	block := contextBlock(window.Recent(t.opts.BatchContextSize), t.opts.Glossary, prompt.Payload)

	reply, err := t.call(ctx, prompt, block)
	if err != nil {
		return Outcome{}, err
	}
	if t.opts.Verbose {
		t.logger.Debug("batch reply",
			zap.Int("batch", b.Index),
			zap.String("reply", preview(reply)))
	}
	return Align(b, reply), nil
}

// translateSingle 第三级：单独翻译一个单元，回复原样采用
func (t *Translator) translateSingle(ctx context.Context, u *document.Unit, lang string, window *Window) (string, error) {
	prompt := singlePrompt(lang, u.Source, t.opts.SingleMaxTokens)
	block := contextBlock(window.Recent(t.opts.SingleContextSize), t.opts.Glossary, u.Source)

	reply, err := t.call(ctx, prompt, block)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(reply)
	if text == "" {
		return "", ErrEmptyTranslation
	}
	return text, nil
}

// call 发送请求，临时错误按指数退避重试
func (t *Translator) call(ctx context.Context, prompt provider.Prompt, block string) (string, error) {
	attempts := uint(1)
	if t.opts.MaxRetries > 0 {
		attempts += uint(t.opts.MaxRetries)
	}
	maxDelay := t.opts.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	return retry.DoWithData(
		func() (string, error) {
			callCtx, cancel := t.callContext(ctx)
			defer cancel()
			return t.invoker.Invoke(callCtx, prompt, block)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(t.opts.RetryDelay),
		retry.MaxDelay(maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(provider.IsTransient),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			t.logger.Warn("retrying translation request",
				zap.String("mode", prompt.Mode.String()),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
}

func (t *Translator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.opts.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.opts.RequestTimeout)
}

func (t *Translator) report(ctx context.Context, ch chan<- Progress, p Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	case <-ctx.Done():
	}
}

// preview 按显示宽度截断，用于日志
func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(s, 80, "...")
}
