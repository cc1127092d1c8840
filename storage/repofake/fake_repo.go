package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/storage"
)

var _ storage.Repo = (*FakeRepo)(nil)

type entry struct {
	value     string
	expiresAt time.Time
}

// FakeRepo is an in-memory storage.Repo. It is also used for the "memory" store backend.
type FakeRepo struct {
	entries map[string]entry
	nowFunc func() time.Time
	lock    sync.RWMutex
}

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{
		entries: make(map[string]entry),
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the clock used for expiry checks.
func (r *FakeRepo) SetNowFunc(now func() time.Time) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.nowFunc = now
}

func (r *FakeRepo) Get(_ context.Context, key string) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	e, ok := r.entries[key]
	if !ok || r.expired(e) {
		return "", storage.ErrNotFound
	}
	return e.value, nil
}

func (r *FakeRepo) Put(_ context.Context, entries map[string]string, ttl time.Duration) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = r.nowFunc().Add(ttl)
	}
	for k, v := range entries {
		r.entries[k] = entry{value: v, expiresAt: expiresAt}
	}
	return nil
}

func (r *FakeRepo) Delete(_ context.Context, keys ...string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, k := range keys {
		delete(r.entries, k)
	}
	return nil
}

// Len returns the number of live slots.
func (r *FakeRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	n := 0
	for _, e := range r.entries {
		if !r.expired(e) {
			n++
		}
	}
	return n
}

func (r *FakeRepo) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !r.nowFunc().Before(e.expiresAt)
}
