package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Kind 错误类型：可重试或致命
type Kind int

const (
	Transient Kind = iota + 1
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ErrEmptyResponse 模型返回了空内容
var ErrEmptyResponse = errors.New("empty response from model")

// Error 翻译服务调用失败
type Error struct {
	Kind       Kind
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s error (HTTP %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransient wraps err as a retryable provider error.
func NewTransient(provider string, err error) *Error {
	return &Error{Kind: Transient, Provider: provider, Err: err}
}

// NewFatal wraps err as a non-retryable provider error.
func NewFatal(provider string, err error) *Error {
	return &Error{Kind: Fatal, Provider: provider, Err: err}
}

// IsTransient reports whether err is a provider error worth retrying.
func IsTransient(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == Transient
}

// KindForStatus 根据 HTTP 状态码分类
func KindForStatus(code int) Kind {
	switch {
	case code >= 500:
		return Transient
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code == http.StatusTooEarly:
		return Transient
	default:
		return Fatal
	}
}

// StatusError builds a provider error from an HTTP status.
func StatusError(provider string, code int, err error) *Error {
	return &Error{Kind: KindForStatus(code), Provider: provider, StatusCode: code, Err: err}
}

// Classify wraps an error that carried no HTTP status.
func Classify(provider string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.Canceled) {
		return NewFatal(provider, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || isNetworkError(err) {
		return NewTransient(provider, err)
	}
	return NewFatal(provider, err)
}

// isNetworkError 判断是否为网络错误
func isNetworkError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"no such host",
		"broken pipe",
		"eof",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
