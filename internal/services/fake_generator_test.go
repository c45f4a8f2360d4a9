package services

import (
	"context"
	"sync"
)

type fakeGenerator struct {
	mu         sync.Mutex
	reply      string
	err        error
	configured bool
	calls      int
	requests   []GenerateRequest
}

func newFakeGenerator(reply string) *fakeGenerator {
	return &fakeGenerator{reply: reply, configured: true}
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) Configured() bool {
	return f.configured
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
