package translator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-docx-translator/internal/document"
	"github.com/nerdneilsfield/go-docx-translator/internal/jobs"
	"github.com/nerdneilsfield/go-docx-translator/internal/logger"
)

// ResultPrefix 输出文件名前缀
const ResultPrefix = "translated_"

// 进度区间：解析 0-10，翻译 10-90，重建 90-100
const (
	progressExtracted = 10
	progressTranslate = 80
	progressRebuilt   = 95
)

// DocumentProcessor 把文档翻译流程接入任务跟踪器
type DocumentProcessor struct {
	translator *Translator
	logger     *zap.Logger
}

// NewDocumentProcessor 创建任务处理器
func NewDocumentProcessor(t *Translator, log *zap.Logger) *DocumentProcessor {
	return &DocumentProcessor{translator: t, logger: logger.OrNop(log)}
}

// Process implements jobs.Processor.
func (p *DocumentProcessor) Process(ctx context.Context, req jobs.Request, updates chan<- jobs.Update) (jobs.Output, error) {
	updates <- jobs.Update{Progress: 1, Message: "extracting document"}

	doc, units, err := document.LoadLimited(req.Data, p.translator.opts.Limits)
	if err != nil {
		return jobs.Output{}, err
	}
	total := len(units)
	updates <- jobs.Update{
		Progress: progressExtracted,
		Message:  fmt.Sprintf("extracted %d paragraphs", total),
		Stats:    &jobs.Stats{Total: total},
	}

	progress := make(chan Progress)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for pr := range progress {
			pct := progressExtracted
			if pr.Total > 0 {
				pct += progressTranslate * pr.Done / pr.Total
			}
			updates <- jobs.Update{
				Progress: pct,
				Message:  fmt.Sprintf("translated batch %d/%d", pr.Batch, pr.Batches),
				Stats:    &jobs.Stats{Total: pr.Total, Translated: pr.Translated, Failed: pr.Failed},
			}
		}
	}()

	sum, err := p.translator.Translate(ctx, units, req.TargetLanguage, progress)
	close(progress)
	wg.Wait()
	if err != nil {
		if errors.Is(err, ErrAllUnitsFailed) {
			p.logger.Warn("no paragraph could be translated", zap.Int("units", total))
		}
		return jobs.Output{}, err
	}

	updates <- jobs.Update{Progress: progressExtracted + progressTranslate, Message: "rebuilding document"}
	out, err := document.Rebuild(doc, units)
	if err != nil {
		return jobs.Output{}, err
	}
	data, err := document.Marshal(out)
	if err != nil {
		return jobs.Output{}, err
	}
	updates <- jobs.Update{Progress: progressRebuilt, Message: "document rebuilt"}

	stats := jobs.Stats{Total: sum.Total, Translated: sum.Translated, Failed: sum.Failed}
	return jobs.Output{
		Data:     data,
		FileName: ResultName(req.FileName),
		Message:  completionMessage(stats),
		Stats:    stats,
	}, nil
}

// ResultName 返回翻译结果的文件名
func ResultName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "document.docx"
	}
	return ResultPrefix + base
}

func completionMessage(s jobs.Stats) string {
	if s.Failed == 0 {
		return fmt.Sprintf("translated %d paragraphs", s.Translated)
	}
	return fmt.Sprintf("translated %d of %d paragraphs, %d failed (highlighted)", s.Translated, s.Total, s.Failed)
}
