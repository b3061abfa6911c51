package provider

import "context"

// Echo 原样返回待翻译内容，用于 dry-run 和流程验证
type Echo struct{}

// Name returns the provider name.
func (Echo) Name() string {
	return "echo"
}

// Invoke returns the payload unchanged.
func (Echo) Invoke(ctx context.Context, prompt Prompt, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Classify("echo", err)
	}
	return prompt.Payload, nil
}
