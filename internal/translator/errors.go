package translator

import (
	"errors"
	"fmt"
)

var (
	// ErrAllUnitsFailed 所有翻译单元都失败
	ErrAllUnitsFailed = errors.New("all translation units failed")
	// ErrEmptyTranslation 模型返回空译文
	ErrEmptyTranslation = errors.New("empty translation")
)

// AlignmentError 所有解析级别都无法为该单元得到译文
type AlignmentError struct {
	UnitID int
	Err    error
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("unit %d: no usable translation: %v", e.UnitID, e.Err)
}

func (e *AlignmentError) Unwrap() error {
	return e.Err
}
