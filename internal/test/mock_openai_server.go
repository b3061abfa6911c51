package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// MockResponse 一次预设的响应
type MockResponse struct {
	Status  int
	Content string
}

// MockOpenAIServer 是一个模拟的 OpenAI chat completions 服务器
type MockOpenAIServer struct {
	Server          *httptest.Server
	URL             string
	DefaultResponse string

	mu       sync.Mutex
	delay    time.Duration
	queue    []MockResponse
	requests []MockRequest
}

// MockRequest 记录请求信息
type MockRequest struct {
	Path      string
	Model     string
	Prompt    string
	MaxTokens int
}

// NewMockOpenAIServer 创建一个新的模拟 OpenAI 服务器
func NewMockOpenAIServer(t *testing.T) *MockOpenAIServer {
	mock := &MockOpenAIServer{DefaultResponse: "这是翻译后的文本"}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}

		var requestBody struct {
			Model               string `json:"model"`
			MaxTokens           int    `json:"max_tokens"`
			MaxCompletionTokens int    `json:"max_completion_tokens"`
			Messages            []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
			writeAPIError(w, http.StatusBadRequest, "无法解析请求体", "invalid_request_error")
			return
		}

		var userMessage string
		for _, msg := range requestBody.Messages {
			if msg.Role == "user" {
				userMessage = msg.Content
				break
			}
		}

		mock.mu.Lock()
		maxTokens := requestBody.MaxCompletionTokens
		if maxTokens == 0 {
			maxTokens = requestBody.MaxTokens
		}
		mock.requests = append(mock.requests, MockRequest{
			Path:      r.URL.Path,
			Model:     requestBody.Model,
			Prompt:    userMessage,
			MaxTokens: maxTokens,
		})
		resp := MockResponse{Status: http.StatusOK, Content: mock.DefaultResponse}
		if len(mock.queue) > 0 {
			resp = mock.queue[0]
			mock.queue = mock.queue[1:]
		}
		delay := mock.delay
		mock.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if resp.Status != http.StatusOK {
			writeAPIError(w, resp.Status, "模拟服务器错误", "server_error")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   requestBody.Model,
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role":    "assistant",
						"content": resp.Content,
					},
					"finish_reason": "stop",
					"index":         0,
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     100,
				"completion_tokens": 50,
				"total_tokens":      150,
			},
		})
	}))

	mock.Server = server
	mock.URL = server.URL
	t.Cleanup(server.Close)
	return mock
}

func writeAPIError(w http.ResponseWriter, status int, message, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": kind},
	})
}

// Enqueue 追加按顺序返回的响应，用完后返回 DefaultResponse
func (m *MockOpenAIServer) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

// SetDefaultResponse 设置默认响应
func (m *MockOpenAIServer) SetDefaultResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DefaultResponse = response
}

// SetDelay 设置响应延迟
func (m *MockOpenAIServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Requests returns the requests received so far.
func (m *MockOpenAIServer) Requests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
