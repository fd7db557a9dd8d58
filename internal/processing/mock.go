package processing

import (
	"context"
	"sync"
	"time"

	"github.com/RenatoCabral2022/binaural-studio/internal/model"
)

// MockClient returns canned responses for testing.
type MockClient struct {
	Delay     time.Duration
	Original  string // default "QQ=="
	Processed string // default "Qg=="
	Err       error

	// Gate, when set, blocks each call until a value is received or ctx ends.
	Gate chan struct{}

	mu       sync.Mutex
	requests []Request
}

func (m *MockClient) Process(ctx context.Context, req Request) (*model.ProcessResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	select {
	case <-time.After(m.Delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if m.Err != nil {
		return nil, m.Err
	}

	original := m.Original
	if original == "" {
		original = "QQ=="
	}
	processed := m.Processed
	if processed == "" {
		processed = "Qg=="
	}
	return &model.ProcessResponse{Original: original, Processed: processed}, nil
}

// Requests returns a copy of every request received so far.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
