package leasecache

import (
	"context"
	"sync"
	"time"
)

// FakeCache is an in-memory Cache used in tests, following the
// map-plus-mutex shape the teacher's mock repositories use instead of a
// mocking framework.
type FakeCache struct {
	mu      sync.Mutex
	leases  map[string]time.Time // key -> expiry
	results map[string]fakeEntry
}

type fakeEntry struct {
	value  []byte
	expiry time.Time
}

// NewFakeCache creates an empty FakeCache.
func NewFakeCache() *FakeCache {
	return &FakeCache{
		leases:  make(map[string]time.Time),
		results: make(map[string]fakeEntry),
	}
}

func (f *FakeCache) TryAcquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if expiry, ok := f.leases[key]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	f.leases[key] = time.Now().Add(ttl)
	return true, nil
}

func (f *FakeCache) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.leases, key)
	return nil
}

func (f *FakeCache) PutResult(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[key] = fakeEntry{value: append([]byte(nil), value...), expiry: time.Now().Add(ttl)}
	return nil
}

func (f *FakeCache) GetResult(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.results[key]
	if !ok || time.Now().After(entry.expiry) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (f *FakeCache) Ping(context.Context) error { return nil }
func (f *FakeCache) Close() error               { return nil }
