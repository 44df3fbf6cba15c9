package gemini

import (
	"context"
	"sync"
)

// MockClient for testing.
type MockClient struct {
	Response              *ResponseData
	Error                 error
	LastSystemInstruction string

	mu       sync.Mutex
	requests []RequestData
}

func (m *MockClient) Translate(ctx context.Context, request RequestData) (*ResponseData, error) {
	m.mu.Lock()
	m.requests = append(m.requests, request)
	m.mu.Unlock()
	return m.Response, m.Error
}

func (m *MockClient) SetSystemInstruction(prompt string) {
	m.LastSystemInstruction = prompt
}

// Requests returns a copy of all requests seen so far.
func (m *MockClient) Requests() []RequestData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RequestData(nil), m.requests...)
}
