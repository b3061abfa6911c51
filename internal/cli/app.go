package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-docx-translator/internal/config"
	"github.com/nerdneilsfield/go-docx-translator/internal/jobs"
	"github.com/nerdneilsfield/go-docx-translator/internal/provider"
	"github.com/nerdneilsfield/go-docx-translator/internal/translator"
)

// newInvoker 根据配置创建 Invoker，配置了 requests_per_minute 时加上限流
func newInvoker(cfg *config.Config, log *zap.Logger) (provider.Invoker, error) {
	var inv provider.Invoker
	switch cfg.Provider {
	case config.ProviderOpenAI:
		inv = provider.NewOpenAI(provider.OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.RequestTimeout,
		}, log)
	case config.ProviderCompatible:
		inv = provider.NewCompatible(provider.CompatibleConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.RequestTimeout,
		}, log)
	case config.ProviderEcho:
		inv = provider.Echo{}
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	return provider.WithRateLimit(inv, cfg.RequestsPerMinute), nil
}

// newTracker 组装 Invoker、翻译器、结果存储与任务跟踪器
func newTracker(cfg *config.Config, log *zap.Logger) (*jobs.Tracker, error) {
	inv, err := newInvoker(cfg, log)
	if err != nil {
		return nil, err
	}

	var glossary *config.Glossary
	if cfg.GlossaryPath != "" {
		glossary, err = config.LoadGlossary(cfg.GlossaryPath)
		if err != nil {
			return nil, err
		}
		log.Info("glossary loaded",
			zap.String("path", cfg.GlossaryPath),
			zap.Int("entries", len(glossary.Translations)))
	}

	var store jobs.ResultStore = jobs.NewMemoryStore()
	if cfg.ResultDir != "" {
		dir, err := jobs.NewDirStore(cfg.ResultDir)
		if err != nil {
			return nil, err
		}
		store = dir
	}

	tr := translator.New(inv, translator.OptionsFromConfig(cfg, glossary), log)
	proc := translator.NewDocumentProcessor(tr, log)
	return jobs.NewTracker(proc, store, jobs.Options{
		MaxConcurrent: cfg.MaxConcurrentJobs,
		Retention:     cfg.JobRetention,
	}, log), nil
}
