package jobs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrResultNotFound 结果不存在
var ErrResultNotFound = errors.New("result not found")

// ResultStore 任务结果存储
type ResultStore interface {
	Put(jobID, name string, data []byte) (string, error)
	Get(ref string) ([]byte, error)
	Delete(ref string) error
}

// MemoryStore 内存存储
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string][]byte
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string][]byte)}
}

// Put stores a copy of data under the job id.
func (s *MemoryStore) Put(jobID, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[jobID] = append([]byte(nil), data...)
	return jobID, nil
}

// Get returns the stored bytes.
func (s *MemoryStore) Get(ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.results[ref]
	if !ok {
		return nil, ErrResultNotFound
	}
	return data, nil
}

// Delete removes the result. Missing refs are ignored.
func (s *MemoryStore) Delete(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, ref)
	return nil
}

// DirStore 文件存储后端，结果保存为 <jobID>_<name>
type DirStore struct {
	basePath string
}

// NewDirStore 创建文件存储后端
func NewDirStore(basePath string) (*DirStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create result dir: %w", err)
	}
	return &DirStore{basePath: basePath}, nil
}

// Put writes data to the result directory.
func (s *DirStore) Put(jobID, name string, data []byte) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		base = "result.docx"
	}
	ref := jobID + "_" + base
	if err := os.WriteFile(filepath.Join(s.basePath, ref), data, 0o644); err != nil {
		return "", err
	}
	return ref, nil
}

// Get reads a stored result.
func (s *DirStore) Get(ref string) ([]byte, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrResultNotFound
	}
	return data, err
}

// Delete removes a stored result. Missing files are ignored.
func (s *DirStore) Delete(ref string) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *DirStore) path(ref string) (string, error) {
	if ref == "" || strings.ContainsAny(ref, `/\`) || ref == ".." {
		return "", fmt.Errorf("invalid result ref %q", ref)
	}
	return filepath.Join(s.basePath, ref), nil
}
