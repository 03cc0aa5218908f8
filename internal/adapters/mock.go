package adapters

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoResponse is returned by MockAdapter once its scripted responses are exhausted.
var ErrNoResponse = errors.New("mock oracle: no scripted response")

// MockResponse is one scripted oracle answer.
type MockResponse struct {
	Text  string
	Err   error
	Delay time.Duration
}

// MockAdapter is a deterministic, offline oracle that replays scripted responses in order.
type MockAdapter struct {
	mu        sync.Mutex
	responses []MockResponse
	prompts   []string
}

// NewMockAdapter returns a mock that answers with the given responses in order.
func NewMockAdapter(responses ...MockResponse) *MockAdapter {
	return &MockAdapter{responses: responses}
}

func (a *MockAdapter) Name() string {
	return "mock"
}

func (a *MockAdapter) Invoke(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	a.prompts = append(a.prompts, prompt)
	if len(a.responses) == 0 {
		a.mu.Unlock()
		return "", ErrNoResponse
	}
	next := a.responses[0]
	a.responses = a.responses[1:]
	a.mu.Unlock()

	if next.Delay > 0 {
		timer := time.NewTimer(next.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if next.Err != nil {
		return "", next.Err
	}
	if next.Text == "" {
		return "", ErrEmptyResponse
	}
	return next.Text, nil
}

// Prompts returns the prompts received so far.
func (a *MockAdapter) Prompts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.prompts...)
}
