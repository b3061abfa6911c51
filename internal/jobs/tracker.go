package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/nerdneilsfield/go-docx-translator/internal/logger"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrJobNotReady  = errors.New("job result not ready")
	ErrJobFinished  = errors.New("job already finished")
	ErrEmptyUpload  = errors.New("empty document")
	ErrShuttingDown = errors.New("tracker is shutting down")
)

// CanceledMessage 被取消任务的错误信息
const CanceledMessage = "canceled"

// Options 任务跟踪器配置
type Options struct {
	MaxConcurrent int
	Retention     time.Duration
}

// Tracker 任务跟踪器：每个任务一个 goroutine，状态集中保存在一个 map 中
type Tracker struct {
	jobs map[string]*record
	mu   sync.RWMutex

	proc      Processor
	store     ResultStore
	slots     *semaphore.Weighted
	retention time.Duration
	logger    *zap.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	now     func() time.Time
}

// NewTracker 创建任务跟踪器
func NewTracker(proc Processor, store ResultStore, opts Options, log *zap.Logger) *Tracker {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if store == nil {
		store = NewMemoryStore()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Tracker{
		jobs:      make(map[string]*record),
		proc:      proc,
		store:     store,
		slots:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		retention: opts.Retention,
		logger:    logger.OrNop(log),
		baseCtx:   ctx,
		stop:      stop,
		now:       time.Now,
	}
}

// Submit 登记任务并在后台开始处理，不等待翻译
func (t *Tracker) Submit(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(req.Data) == 0 {
		return "", ErrEmptyUpload
	}
	if t.baseCtx.Err() != nil {
		return "", ErrShuttingDown
	}

	id := uuid.NewString()
	jobCtx, cancel := context.WithCancel(t.baseCtx)
	now := t.now()
	rec := &record{
		snap: Snapshot{
			ID:             id,
			Status:         StatusQueued,
			Message:        "queued",
			FileName:       req.FileName,
			TargetLanguage: req.TargetLanguage,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		cancel: cancel,
	}

	t.mu.Lock()
	t.jobs[id] = rec
	t.mu.Unlock()

	t.logger.Info("job submitted",
		zap.String("jobID", id),
		zap.String("fileName", req.FileName),
		zap.String("targetLanguage", req.TargetLanguage),
		zap.Int("bytes", len(req.Data)))

	t.wg.Add(1)
	go t.run(jobCtx, id, req)
	return id, nil
}

// run 是任务的工作 goroutine；所有状态变更经由 updates 交给唯一的 applier
func (t *Tracker) run(ctx context.Context, id string, req Request) {
	defer t.wg.Done()

	updates := make(chan Update, 16)
	applied := make(chan struct{})
	go func() {
		defer close(applied)
		for u := range updates {
			t.apply(id, u)
		}
	}()
	defer func() {
		close(updates)
		<-applied
		t.mu.RLock()
		if rec, ok := t.jobs[id]; ok {
			rec.cancel()
		}
		t.mu.RUnlock()
	}()

	if err := t.slots.Acquire(ctx, 1); err != nil {
		updates <- t.failure(ctx, err)
		return
	}
	defer t.slots.Release(1)

	updates <- Update{status: StatusRunning, Message: "running"}
	start := t.now()

	out, err := t.process(ctx, req, updates)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		t.logger.Warn("job failed", zap.String("jobID", id), zap.Error(err))
		updates <- t.failure(ctx, err)
		return
	}

	ref, err := t.store.Put(id, out.FileName, out.Data)
	if err != nil {
		t.logger.Error("failed to store result", zap.String("jobID", id), zap.Error(err))
		updates <- t.failure(ctx, fmt.Errorf("store result: %w", err))
		return
	}

	stats := out.Stats
	updates <- Update{
		Progress:   100,
		Message:    out.Message,
		Stats:      &stats,
		status:     StatusCompleted,
		resultRef:  ref,
		resultName: out.FileName,
	}
	t.logger.Info("job completed",
		zap.String("jobID", id),
		zap.Int("translated", stats.Translated),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", t.now().Sub(start)))
}

func (t *Tracker) process(ctx context.Context, req Request, updates chan<- Update) (out Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return t.proc.Process(ctx, req, updates)
}

func (t *Tracker) failure(ctx context.Context, err error) Update {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return Update{status: StatusError, Message: CanceledMessage, err: CanceledMessage}
	}
	return Update{status: StatusError, Message: "translation failed", err: err.Error()}
}

// apply 是任务记录的唯一写入者
func (t *Tracker) apply(id string, u Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.jobs[id]
	if !ok {
		return
	}
	s := &rec.snap
	if s.Status.Terminal() {
		return
	}
	if u.status != "" {
		if !s.Status.CanTransition(u.status) {
			t.logger.Warn("ignoring invalid job transition",
				zap.String("jobID", id),
				zap.String("from", string(s.Status)),
				zap.String("to", string(u.status)))
			return
		}
		s.Status = u.status
	}
	if u.Progress > s.Progress {
		s.Progress = min(u.Progress, 100)
	}
	if u.Message != "" {
		s.Message = u.Message
	}
	if u.Stats != nil {
		s.Stats = *u.Stats
	}
	if u.resultRef != "" {
		rec.resultRef = u.resultRef
		s.ResultName = u.resultName
	}
	if u.err != "" {
		s.Error = u.err
	}
	s.UpdatedAt = t.now()
}

// Poll 返回任务快照
func (t *Tracker) Poll(id string) (Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.jobs[id]
	if !ok {
		return Snapshot{}, ErrJobNotFound
	}
	return rec.snap, nil
}

// List 返回所有任务快照，按创建时间排序
func (t *Tracker) List() []Snapshot {
	t.mu.RLock()
	out := make([]Snapshot, 0, len(t.jobs))
	for _, rec := range t.jobs {
		out = append(out, rec.snap)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Result 取出已完成任务的结果，取出后任务被释放
func (t *Tracker) Result(id string) ([]byte, string, error) {
	t.mu.RLock()
	rec, ok := t.jobs[id]
	if !ok {
		t.mu.RUnlock()
		return nil, "", ErrJobNotFound
	}
	status, ref, name := rec.snap.Status, rec.resultRef, rec.snap.ResultName
	t.mu.RUnlock()

	if status != StatusCompleted {
		return nil, "", ErrJobNotReady
	}
	data, err := t.store.Get(ref)
	if err != nil {
		return nil, "", fmt.Errorf("load result: %w", err)
	}
	t.release(id)
	return data, name, nil
}

func (t *Tracker) release(id string) {
	t.mu.Lock()
	rec, ok := t.jobs[id]
	if ok {
		delete(t.jobs, id)
	}
	t.mu.Unlock()

	if ok && rec.resultRef != "" {
		if err := t.store.Delete(rec.resultRef); err != nil {
			t.logger.Warn("failed to delete result", zap.String("jobID", id), zap.Error(err))
		}
	}
}

// Cancel 取消排队或运行中的任务
func (t *Tracker) Cancel(id string) error {
	t.mu.RLock()
	rec, ok := t.jobs[id]
	var status Status
	if ok {
		status = rec.snap.Status
	}
	t.mu.RUnlock()

	if !ok {
		return ErrJobNotFound
	}
	if status.Terminal() {
		return ErrJobFinished
	}
	rec.cancel()
	t.logger.Info("job canceled", zap.String("jobID", id))
	return nil
}

// Reap 删除超过保留时间的已结束任务，返回删除数量
func (t *Tracker) Reap() int {
	if t.retention <= 0 {
		return 0
	}
	cutoff := t.now().Add(-t.retention)

	var expired []string
	t.mu.RLock()
	for id, rec := range t.jobs {
		if rec.snap.Status.Terminal() && rec.snap.UpdatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	t.mu.RUnlock()

	for _, id := range expired {
		t.release(id)
	}
	if len(expired) > 0 {
		t.logger.Debug("reaped expired jobs", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// RunReaper 周期性清理过期任务，直到 ctx 结束
func (t *Tracker) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Reap()
		}
	}
}

// Shutdown 取消所有任务并等待工作 goroutine 退出
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.stop()
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
