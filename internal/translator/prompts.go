package translator

import (
	"fmt"

	"github.com/nerdneilsfield/go-docx-translator/internal/provider"
)

const (
	batchInstruction = "Translate the following paragraphs to %s.\n" +
		"Maintain the same tone, style, and any technical terms appropriately.\n" +
		"Return ONLY the translations in the same numbered format, preserving the paragraph numbers."
	batchHeading = "Paragraphs to translate:"

	singleInstruction = "Translate the following text to %s.\n" +
		"Maintain the same tone, style, and any technical terms appropriately.\n" +
		"Only provide the translation, no explanations."
	singleHeading = "Text to translate:"
)

func batchPrompt(lang string, b Batch, maxTokens int) provider.Prompt {
	return provider.Prompt{
		Mode:        provider.ModeBatch,
		Instruction: fmt.Sprintf(batchInstruction, lang),
		Heading:     batchHeading,
		Payload:     b.Payload(),
		MaxTokens:   maxTokens,
	}
}

func singlePrompt(lang, text string, maxTokens int) provider.Prompt {
	return provider.Prompt{
		Mode:        provider.ModeSingle,
		Instruction: fmt.Sprintf(singleInstruction, lang),
		Heading:     singleHeading,
		Payload:     text,
		MaxTokens:   maxTokens,
	}
}
