// Package server 提供文档翻译任务的 HTTP 接口
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-docx-translator/internal/jobs"
	"github.com/nerdneilsfield/go-docx-translator/internal/logger"
)

// JobService 服务端依赖的任务接口，由 *jobs.Tracker 实现
type JobService interface {
	Submit(ctx context.Context, req jobs.Request) (string, error)
	Poll(id string) (jobs.Snapshot, error)
	List() []jobs.Snapshot
	Result(id string) ([]byte, string, error)
	Cancel(id string) error
}

var _ JobService = (*jobs.Tracker)(nil)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address (default :5000)
	Addr string
	// MaxUploadBytes limits the size of an uploaded document (default 16 MiB)
	MaxUploadBytes int64
	// DefaultLanguage is used when an upload names no target language
	DefaultLanguage string
	// ShutdownTimeout bounds graceful shutdown (default 10s)
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// Server 翻译任务 HTTP 服务
type Server struct {
	httpServer *http.Server
	jobs       JobService
	cfg        Config
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
}

// New creates a new Server backed by the given job service.
func New(svc JobService, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 16 << 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		jobs:   svc,
		cfg:    cfg,
		logger: logger.OrNop(cfg.Logger),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the root handler, including request logging.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start 启动 HTTP 服务，阻塞直到 ctx 结束或监听出错，随后优雅关闭
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests 记录每个请求的方法、路径、状态码与耗时
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
