package llm

import (
	"context"
	"sync"
)

// Mock returns scripted responses in order and records the prompts it saw.
// Once the script runs out it repeats the last response, or echoes a fixed
// answer when there is no script.
type Mock struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

// NewMock returns a Mock that answers with responses in order.
func NewMock(responses ...string) *Mock {
	return &Mock{responses: responses}
}

// FailWith makes every call return err.
func (m *Mock) FailWith(err error) *Mock {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	return m
}

// Complete records prompt and returns the next scripted response.
func (m *Mock) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch len(m.responses) {
	case 0:
		return "LONG: mock trade idea", nil
	case 1:
		return m.responses[0], nil
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r, nil
}

// Prompts returns the prompts received so far.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// ModelName returns "mock".
func (m *Mock) ModelName() string { return "mock" }
