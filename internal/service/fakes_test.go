package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/boddenberg/categorizer-go/internal/domain"
)

// --- Fakes ---

type fakeRules struct {
	match domain.RuleMatch
	calls atomic.Int32
}

func (f *fakeRules) Match(_ string) domain.RuleMatch {
	f.calls.Add(1)
	return f.match
}

type fakeCache struct {
	mu       sync.Mutex
	data     map[string]domain.CategorizeOutput
	getErr   error
	setErr   error
	noStore  bool
	setCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]domain.CategorizeOutput)}
}

func (f *fakeCache) Get(_ context.Context, key string) (domain.CategorizeOutput, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.CategorizeOutput{}, false, f.getErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value domain.CategorizeOutput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	if !f.noStore {
		f.data[key] = value
	}
	return nil
}

func (f *fakeCache) sets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls
}

type fakeMemory struct {
	memory *domain.LearnedMemory
	err    error
}

func (f *fakeMemory) Consult(_ context.Context, _ domain.MemoryQuery) (*domain.LearnedMemory, error) {
	return f.memory, f.err
}

func (f *fakeMemory) Record(_ context.Context, _ domain.MemoryQuery, _ string) (int, error) {
	return 0, errors.New("not supported")
}

type fakeClassifier struct {
	available bool
	result    *domain.ClassifierResult
	err       error
	// failFirst makes only the first call fail with err.
	failFirst bool
	// release, when set, blocks every call until closed.
	release chan struct{}
	calls   atomic.Int32
}

func (f *fakeClassifier) Available() bool { return f.available }

func (f *fakeClassifier) Classify(_ context.Context, _ domain.ClassifierRequest) (*domain.ClassifierResult, error) {
	n := f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil && (!f.failFirst || n == 1) {
		return nil, f.err
	}
	return f.result, nil
}
