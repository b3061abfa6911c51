// Package provider 封装翻译模型调用。Invoker 只负责一次请求，重试由调用方决定。
package provider

import (
	"context"
	"strings"
)

// Mode 请求模式
type Mode int

const (
	ModeBatch Mode = iota
	ModeSingle
)

func (m Mode) String() string {
	if m == ModeSingle {
		return "single"
	}
	return "batch"
}

// Prompt 一次翻译请求
type Prompt struct {
	Mode        Mode
	Instruction string
	Heading     string
	Payload     string
	MaxTokens   int
}

// Render assembles the final request text with the context block placed
// between the instruction and the payload.
func (p Prompt) Render(contextBlock string) string {
	var b strings.Builder
	b.WriteString(p.Instruction)
	if contextBlock != "" {
		b.WriteString("\n\n")
		b.WriteString(contextBlock)
	}
	b.WriteString("\n\n")
	if p.Heading != "" {
		b.WriteString(p.Heading)
		b.WriteString("\n")
	}
	b.WriteString(p.Payload)
	return b.String()
}

// Invoker 翻译能力的边界接口
type Invoker interface {
	// Invoke sends one request and returns the model's raw reply. Failures are
	// reported as *Error.
	Invoke(ctx context.Context, prompt Prompt, contextBlock string) (string, error)
	Name() string
}
