package ai

import (
	"context"
	"fmt"
	"sync"
)

// MockCompletion is a canned-response CompletionService for tests. Responses
// are returned in FIFO order; every prompt pair is recorded for assertions.
type MockCompletion struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	Prompts   []string
}

// NewMockCompletion creates a mock that replays the given responses.
func NewMockCompletion(responses ...string) *MockCompletion {
	return &MockCompletion{responses: responses}
}

// QueueError appends an error response to the queue.
func (m *MockCompletion) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, "")
	m.errs = append(m.errs, err)
}

// QueueResponse appends a successful response to the queue.
func (m *MockCompletion) QueueResponse(resp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	m.errs = append(m.errs, nil)
}

func (m *MockCompletion) Complete(_ context.Context, system, user string, _ float32) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, system+"\n"+user)
	if len(m.responses) == 0 {
		return "", fmt.Errorf("mock completion: no responses queued")
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	var err error
	if len(m.errs) > 0 {
		err = m.errs[0]
		m.errs = m.errs[1:]
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

// CallCount returns how many completions were requested.
func (m *MockCompletion) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
