package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// DedupEntry is one in-flight or finished computation for a key.
type DedupEntry[T any] struct {
	done  chan struct{}
	value T
	ok    bool
}

// Wait blocks until the leader completes or abandons the entry.
// ok is false when the leader gave up and the caller should compute itself.
func (e *DedupEntry[T]) Wait(ctx context.Context) (value T, ok bool, err error) {
	select {
	case <-e.done:
		return e.value, e.ok, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// DedupRepository collapses bursts of identical requests. Finished results
// stay for the configured TTL; check-and-insert is serialized by mu.
type DedupRepository[T any] struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewDedupRepository[T any](ttl time.Duration) *DedupRepository[T] {
	return &DedupRepository[T]{
		cache: cache.New(ttl, ttl*2),
	}
}

// Acquire returns the entry for key. When leader is true the caller inserted
// it and must finish with Complete or Abandon.
func (r *DedupRepository[T]) Acquire(key string) (entry *DedupEntry[T], leader bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(key); found {
		return x.(*DedupEntry[T]), false
	}
	entry = &DedupEntry[T]{done: make(chan struct{})}
	r.cache.Set(key, entry, cache.DefaultExpiration)
	return entry, true
}

// Complete publishes the value to waiters and keeps it until the TTL expires.
func (r *DedupRepository[T]) Complete(entry *DedupEntry[T], value T) {
	entry.value = value
	entry.ok = true
	close(entry.done)
}

// Abandon releases waiters without a value and forgets the key.
func (r *DedupRepository[T]) Abandon(key string, entry *DedupEntry[T]) {
	r.mu.Lock()
	if x, found := r.cache.Get(key); found && x.(*DedupEntry[T]) == entry {
		r.cache.Delete(key)
	}
	r.mu.Unlock()
	close(entry.done)
}

func (r *DedupRepository[T]) Len() int {
	return r.cache.ItemCount()
}

func (r *DedupRepository[T]) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Flush()
}
