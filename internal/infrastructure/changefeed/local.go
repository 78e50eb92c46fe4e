package changefeed

import (
	"context"
	"sync"

	domainRepo "github.com/sangkips/tillpoint/internal/domain/repository"
)

// LocalFeed delivers change events to subscribers in the same process.
type LocalFeed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func()
}

// NewLocalFeed creates an in-process feed.
func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[string]map[int]func())}
}

var _ domainRepo.ChangeFeed = (*LocalFeed)(nil)

// Publish implements ChangeFeed. Subscribers run on their own goroutines.
func (f *LocalFeed) Publish(_ context.Context, collection string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fn := range f.subs[collection] {
		go fn()
	}
	return nil
}

// Subscribe implements ChangeFeed.
func (f *LocalFeed) Subscribe(ctx context.Context, collection string, fn func()) error {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	if f.subs[collection] == nil {
		f.subs[collection] = make(map[int]func())
	}
	f.subs[collection][id] = fn
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs[collection], id)
		f.mu.Unlock()
	}()
	return nil
}
