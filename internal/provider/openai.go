package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-docx-translator/internal/logger"
)

// OpenAIConfig OpenAI 官方接口配置
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAI 使用官方 openai-go SDK 的 Invoker
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
	logger      *zap.Logger
}

// NewOpenAI 创建 OpenAI Invoker
func NewOpenAI(cfg OpenAIConfig, log *zap.Logger) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger.OrNop(log),
	}
}

// Name returns the provider name.
func (p *OpenAI) Name() string {
	return "openai"
}

// Invoke 发送一次 chat completion 请求
func (p *OpenAI) Invoke(ctx context.Context, prompt Prompt, contextBlock string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt.Render(contextBlock)),
		},
		Model: openai.ChatModel(p.model),
	}
	if prompt.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(prompt.MaxTokens))
	}
	if p.temperature > 0 {
		params.Temperature = openai.Float(p.temperature)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", StatusError(p.Name(), apiErr.StatusCode, err)
		}
		return "", Classify(p.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return "", NewTransient(p.Name(), ErrEmptyResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", NewTransient(p.Name(), ErrEmptyResponse)
	}

	p.logger.Debug("chat completion finished",
		zap.String("model", p.model),
		zap.String("mode", prompt.Mode.String()),
		zap.Int64("promptTokens", resp.Usage.PromptTokens),
		zap.Int64("completionTokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)))

	return content, nil
}
