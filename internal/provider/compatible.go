package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-docx-translator/internal/logger"
)

// CompatibleConfig OpenAI 兼容接口配置（DeepSeek、Ollama、vLLM 等）
type CompatibleConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Compatible 使用 go-openai 客户端访问 OpenAI 兼容服务
type Compatible struct {
	client      *goopenai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewCompatible 创建兼容接口 Invoker
func NewCompatible(cfg CompatibleConfig, log *zap.Logger) *Compatible {
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Compatible{
		client:      goopenai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		logger:      logger.OrNop(log),
	}
}

// Name returns the provider name.
func (p *Compatible) Name() string {
	return "compatible"
}

// Invoke 发送一次 chat completion 请求
func (p *Compatible) Invoke(ctx context.Context, prompt Prompt, contextBlock string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: p.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt.Render(contextBlock)},
		},
		MaxTokens:   prompt.MaxTokens,
		Temperature: p.temperature,
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
			return "", StatusError(p.Name(), apiErr.HTTPStatusCode, err)
		}
		var reqErr *goopenai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
			return "", StatusError(p.Name(), reqErr.HTTPStatusCode, err)
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
		zap.Int("promptTokens", resp.Usage.PromptTokens),
		zap.Int("completionTokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)))

	return content, nil
}
