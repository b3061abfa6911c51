package test

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/nerdneilsfield/go-docx-translator/internal/provider"
)

// TranslatedPrefix EchoMarkerInvoker 在每段译文前添加的前缀
const TranslatedPrefix = "TRANSLATED:"

// MockInvoker 是一个模拟的 Invoker
type MockInvoker struct {
	mock.Mock
}

// Invoke 执行一次模拟请求
func (m *MockInvoker) Invoke(ctx context.Context, prompt provider.Prompt, contextBlock string) (string, error) {
	args := m.Called(ctx, prompt, contextBlock)
	return args.String(0), args.Error(1)
}

// Name 返回模型名称
func (m *MockInvoker) Name() string {
	return "mock"
}

var entryPattern = regexp.MustCompile(`^\[(\d+)\] ?`)

// EchoMarkerInvoker 批量模式下对每个 "[N] text" 条目回复 "[N] TRANSLATED:text"，
// 单段模式回复 "TRANSLATED:" + 原文。
type EchoMarkerInvoker struct {
	mu    sync.Mutex
	calls []provider.Prompt
	// Contexts records the context block of every call.
	Contexts []string
}

// Name returns the provider name.
func (e *EchoMarkerInvoker) Name() string {
	return "echo-marker"
}

// Invoke answers in the numbered format.
func (e *EchoMarkerInvoker) Invoke(ctx context.Context, prompt provider.Prompt, contextBlock string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", provider.Classify(e.Name(), err)
	}
	e.mu.Lock()
	e.calls = append(e.calls, prompt)
	e.Contexts = append(e.Contexts, contextBlock)
	e.mu.Unlock()

	if prompt.Mode == provider.ModeSingle {
		return TranslatedPrefix + prompt.Payload, nil
	}
	return MarkerReply(prompt.Payload, func(_ int, text string) string {
		return TranslatedPrefix + text
	}), nil
}

// Calls returns the prompts received so far.
func (e *EchoMarkerInvoker) Calls() []provider.Prompt {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]provider.Prompt, len(e.calls))
	copy(out, e.calls)
	return out
}

// CountMode counts calls made in the given mode.
func (e *EchoMarkerInvoker) CountMode(mode provider.Mode) int {
	n := 0
	for _, p := range e.Calls() {
		if p.Mode == mode {
			n++
		}
	}
	return n
}

// MarkerReply 把批量载荷中的每个条目交给 fn，并按 "[N] 结果" 格式拼接回复
func MarkerReply(payload string, fn func(index int, text string) string) string {
	var lines []string
	for _, entry := range strings.Split(payload, "\n\n") {
		m := entryPattern.FindStringSubmatch(entry)
		if m == nil {
			continue
		}
		var idx int
		fmt.Sscanf(m[1], "%d", &idx)
		text := strings.ReplaceAll(entry[len(m[0]):], "\n", " ")
		lines = append(lines, fmt.Sprintf("[%d] %s", idx, fn(idx, text)))
	}
	return strings.Join(lines, "\n")
}

// StubInvoker 由函数实现的 Invoker
type StubInvoker struct {
	Fn func(ctx context.Context, prompt provider.Prompt, contextBlock string) (string, error)
}

// Name returns the provider name.
func (s StubInvoker) Name() string {
	return "stub"
}

// Invoke delegates to Fn.
func (s StubInvoker) Invoke(ctx context.Context, prompt provider.Prompt, contextBlock string) (string, error) {
	return s.Fn(ctx, prompt, contextBlock)
}
