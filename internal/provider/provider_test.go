package provider_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-docx-translator/internal/provider"
	"github.com/nerdneilsfield/go-docx-translator/internal/test"
)

func batchPrompt() provider.Prompt {
	return provider.Prompt{
		Mode:        provider.ModeBatch,
		Instruction: "Translate the following paragraphs to Spanish.",
		Heading:     "Paragraphs to translate:",
		Payload:     "[1] Hello\n\n[2] World",
		MaxTokens:   256,
	}
}

func TestPromptRender(t *testing.T) {
	p := batchPrompt()
	assert.Equal(t,
		"Translate the following paragraphs to Spanish.\n\nParagraphs to translate:\n[1] Hello\n\n[2] World",
		p.Render(""))
	assert.Equal(t,
		"Translate the following paragraphs to Spanish.\n\nPreviously translated segments (for consistency):\nOriginal: a\nTranslation: b\n\nParagraphs to translate:\n[1] Hello\n\n[2] World",
		p.Render("Previously translated segments (for consistency):\nOriginal: a\nTranslation: b"))
}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		code int
		want provider.Kind
	}{
		{http.StatusInternalServerError, provider.Transient},
		{http.StatusBadGateway, provider.Transient},
		{http.StatusServiceUnavailable, provider.Transient},
		{http.StatusTooManyRequests, provider.Transient},
		{http.StatusRequestTimeout, provider.Transient},
		{http.StatusConflict, provider.Transient},
		{http.StatusBadRequest, provider.Fatal},
		{http.StatusUnauthorized, provider.Fatal},
		{http.StatusForbidden, provider.Fatal},
		{http.StatusNotFound, provider.Fatal},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("HTTP %d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, provider.KindForStatus(tt.code))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want provider.Kind
	}{
		{"canceled", context.Canceled, provider.Fatal},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), provider.Transient},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), provider.Transient},
		{"unexpected eof", io.ErrUnexpectedEOF, provider.Transient},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("boom")}, provider.Transient},
		{"message", errors.New("read tcp: connection reset by peer"), provider.Transient},
		{"invalid request", errors.New("invalid model"), provider.Fatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := provider.Classify("test", tt.err)
			assert.Equal(t, tt.want, pe.Kind)
			assert.ErrorIs(t, pe, tt.err)
			assert.Equal(t, tt.want == provider.Transient, provider.IsTransient(pe))
		})
	}

	t.Run("keeps existing provider error", func(t *testing.T) {
		inner := provider.StatusError("x", http.StatusTooManyRequests, errors.New("slow down"))
		pe := provider.Classify("outer", fmt.Errorf("wrapped: %w", inner))
		assert.Same(t, inner, pe)
	})

	t.Run("non provider errors are not transient", func(t *testing.T) {
		assert.False(t, provider.IsTransient(errors.New("plain")))
		assert.False(t, provider.IsTransient(nil))
	})
}

func TestErrorMessage(t *testing.T) {
	err := provider.StatusError("openai", http.StatusServiceUnavailable, errors.New("overloaded"))
	assert.Equal(t, "openai: transient error (HTTP 503): overloaded", err.Error())
	assert.Equal(t, "echo: fatal error: bad", provider.NewFatal("echo", errors.New("bad")).Error())
}

func TestEcho(t *testing.T) {
	var inv provider.Invoker = provider.Echo{}
	out, err := inv.Invoke(context.Background(), batchPrompt(), "ignored")
	require.NoError(t, err)
	assert.Equal(t, "[1] Hello\n\n[2] World", out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = inv.Invoke(ctx, batchPrompt(), "")
	require.Error(t, err)
	assert.False(t, provider.IsTransient(err))
}

func newOpenAI(t *testing.T, server *test.MockOpenAIServer) provider.Invoker {
	t.Helper()
	return provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1/",
		Model:   "gpt-test",
		Timeout: 5 * time.Second,
	}, nil)
}

func newCompatible(t *testing.T, server *test.MockOpenAIServer) provider.Invoker {
	t.Helper()
	return provider.NewCompatible(provider.CompatibleConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1/",
		Model:   "local-model",
		Timeout: 5 * time.Second,
	}, nil)
}

func TestChatInvokers(t *testing.T) {
	factories := map[string]func(*testing.T, *test.MockOpenAIServer) provider.Invoker{
		"openai":     newOpenAI,
		"compatible": newCompatible,
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			t.Run("success", func(t *testing.T) {
				server := test.NewMockOpenAIServer(t)
				server.SetDefaultResponse("  [1] Hola\n[2] Mundo \n")
				inv := factory(t, server)
				assert.Equal(t, name, inv.Name())

				out, err := inv.Invoke(context.Background(), batchPrompt(), "Glossary (use these translations):\nWorld => Mundo")
				require.NoError(t, err)
				assert.Equal(t, "[1] Hola\n[2] Mundo", out)

				reqs := server.Requests()
				require.Len(t, reqs, 1)
				assert.Contains(t, reqs[0].Prompt, "Glossary (use these translations):\nWorld => Mundo")
				assert.Contains(t, reqs[0].Prompt, "Paragraphs to translate:\n[1] Hello")
				assert.Equal(t, 256, reqs[0].MaxTokens)
				assert.Equal(t, "/v1/chat/completions", reqs[0].Path)
			})

			t.Run("server error is transient", func(t *testing.T) {
				server := test.NewMockOpenAIServer(t)
				server.Enqueue(test.MockResponse{Status: http.StatusServiceUnavailable})
				_, err := factory(t, server).Invoke(context.Background(), batchPrompt(), "")

				var pe *provider.Error
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, provider.Transient, pe.Kind)
				assert.Equal(t, http.StatusServiceUnavailable, pe.StatusCode)
				assert.Len(t, server.Requests(), 1, "invokers never retry")
			})

			t.Run("client error is fatal", func(t *testing.T) {
				server := test.NewMockOpenAIServer(t)
				server.Enqueue(test.MockResponse{Status: http.StatusUnauthorized})
				_, err := factory(t, server).Invoke(context.Background(), batchPrompt(), "")

				var pe *provider.Error
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, provider.Fatal, pe.Kind)
				assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
			})

			t.Run("empty reply is transient", func(t *testing.T) {
				server := test.NewMockOpenAIServer(t)
				server.SetDefaultResponse("   ")
				_, err := factory(t, server).Invoke(context.Background(), batchPrompt(), "")
				assert.True(t, provider.IsTransient(err))
				assert.ErrorIs(t, err, provider.ErrEmptyResponse)
			})

			t.Run("deadline is transient", func(t *testing.T) {
				server := test.NewMockOpenAIServer(t)
				server.SetDelay(2 * time.Second)
				ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
				defer cancel()
				_, err := factory(t, server).Invoke(ctx, batchPrompt(), "")
				require.Error(t, err)
				assert.True(t, provider.IsTransient(err))
			})
		})
	}
}

func TestRateLimit(t *testing.T) {
	inner := provider.Echo{}
	assert.Equal(t, provider.Invoker(inner), provider.WithRateLimit(inner, 0))

	limited := provider.WithRateLimit(inner, 60)
	assert.Equal(t, "echo", limited.Name())

	// 第一个请求使用初始令牌
	_, err := limited.Invoke(context.Background(), batchPrompt(), "")
	require.NoError(t, err)

	// 下一个令牌约一秒后才可用，超过截止时间时立即返回
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = limited.Invoke(ctx, batchPrompt(), "")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
