// Package jobs 管理后台翻译任务：排队、并发控制、进度与结果。
package jobs

import (
	"context"
	"time"
)

// Status 任务状态
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransition reports whether s may move to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusQueued:
		return next == StatusRunning || next == StatusError
	case StatusRunning:
		return next == StatusCompleted || next == StatusError
	default:
		return false
	}
}

// Request 提交的翻译任务
type Request struct {
	FileName       string
	Data           []byte
	TargetLanguage string
}

// Stats 段落统计
type Stats struct {
	Total      int `json:"total"`
	Translated int `json:"translated"`
	Failed     int `json:"failed"`
}

// Update 处理器发送的进度事件。终态只能由 Tracker 设置。
type Update struct {
	Progress int
	Message  string
	Stats    *Stats

	status     Status
	resultRef  string
	resultName string
	err        string
}

// Output 处理器的最终产物
type Output struct {
	Data     []byte
	FileName string
	Message  string
	Stats    Stats
}

// Processor 执行一个任务。updates 由 Tracker 持续消费，Process 返回前不得关闭它。
type Processor interface {
	Process(ctx context.Context, req Request, updates chan<- Update) (Output, error)
}

// Snapshot 任务状态的只读副本
type Snapshot struct {
	ID             string    `json:"job_id"`
	Status         Status    `json:"status"`
	Progress       int       `json:"progress"`
	Message        string    `json:"message"`
	FileName       string    `json:"file_name"`
	TargetLanguage string    `json:"target_language"`
	ResultName     string    `json:"result_name,omitempty"`
	Error          string    `json:"error,omitempty"`
	Stats          Stats     `json:"stats"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type record struct {
	snap      Snapshot
	resultRef string
	cancel    context.CancelFunc
}
