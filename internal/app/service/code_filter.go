package service

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// codeFilter is a bloom filter over known pixel codes, sized for the
// expected pixel population. Until it is warmed from the store it answers
// "maybe" for everything, so a cold filter never rejects a valid code.
type codeFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	ready  bool
}

func newCodeFilter() *codeFilter {
	return &codeFilter{filter: bloom.NewWithEstimates(100_000, 0.001)}
}

func (f *codeFilter) Warm(codes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, code := range codes {
		f.filter.AddString(code)
	}
	f.ready = true
}

func (f *codeFilter) Add(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(code)
}

func (f *codeFilter) MightContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.ready {
		return true
	}
	return f.filter.TestString(code)
}
