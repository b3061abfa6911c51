package document

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocumentPart 包中没有主文档部件
	ErrNoDocumentPart = errors.New("package has no main document part")
	// ErrNoBody 主文档没有 body 元素
	ErrNoBody = errors.New("document has no body")
	// ErrPartTooLarge 部件解压后超过单部件上限
	ErrPartTooLarge = errors.New("part exceeds the decompressed size limit")
	// ErrPackageTooLarge 所有部件解压后总大小超过上限
	ErrPackageTooLarge = errors.New("package exceeds the decompressed size limit")
)

// ExtractionError 源文档无法解析
type ExtractionError struct {
	Part string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Part == "" {
		return fmt.Sprintf("extract document: %v", e.Err)
	}
	return fmt.Sprintf("extract document part %s: %v", e.Part, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ReconstructionError 输出文档无法生成
type ReconstructionError struct {
	Reason string
	Err    error
}

func (e *ReconstructionError) Error() string {
	if e.Err == nil {
		return "rebuild document: " + e.Reason
	}
	return fmt.Sprintf("rebuild document: %s: %v", e.Reason, e.Err)
}

func (e *ReconstructionError) Unwrap() error {
	return e.Err
}
