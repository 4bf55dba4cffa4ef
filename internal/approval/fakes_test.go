package approval

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	pkgerrors "runtimeops/pkg/errors"
)

type memoryRepository struct {
	mu       sync.Mutex
	requests map[string]*Request
	creates  int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{requests: map[string]*Request{}}
}

func (m *memoryRepository) Create(_ context.Context, req *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.requests {
		if existing.Status == StatusPending && existing.Key() == req.Key() {
			return pkgerrors.ErrConflict
		}
	}
	clone := *req
	m.requests[req.ID] = &clone
	m.creates++
	return nil
}

func (m *memoryRepository) FindOpen(_ context.Context, key Key, status Status, now time.Time) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var newest *Request
	for _, req := range m.requests {
		if req.Key() != key || req.Status != status || !req.ExpiresAt.After(now) {
			continue
		}
		if newest == nil || req.CreatedAt.After(newest.CreatedAt) {
			newest = req
		}
	}
	if newest == nil {
		return nil, pkgerrors.ErrNotFound
	}
	clone := *newest
	return &clone, nil
}

func (m *memoryRepository) Get(_ context.Context, id string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (m *memoryRepository) Resolve(_ context.Context, id string, status Status, by, note string, at time.Time) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	if req.Status != StatusPending {
		return nil, pkgerrors.ErrConflict
	}
	req.Status = status
	req.ResolvedBy = by
	req.ResolutionNote = note
	req.ResolvedAt = &at
	req.UpdatedAt = at
	clone := *req
	return &clone, nil
}

func (m *memoryRepository) MarkConsumed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.Status != StatusApproved {
		return pkgerrors.ErrConflict
	}
	req.Status = StatusConsumed
	req.UpdatedAt = at
	return nil
}

func (m *memoryRepository) ListPending(_ context.Context, limit int, now time.Time) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Request{}
	for _, req := range m.requests {
		if req.Status == StatusPending && req.ExpiresAt.After(now) {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepository) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, req := range m.requests {
		if req.Status == StatusPending && !req.ExpiresAt.After(now) {
			req.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

type memoryIndex struct {
	mu       sync.Mutex
	entries  map[string]string
	failWith error
	lookups  int
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{entries: map[string]string{}}
}

func (m *memoryIndex) Reserve(_ context.Context, key Key, id string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	if _, ok := m.entries[key.String()]; ok {
		return false, nil
	}
	m.entries[key.String()] = id
	return true, nil
}

func (m *memoryIndex) Lookup(_ context.Context, key Key) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.failWith != nil {
		return "", m.failWith
	}
	return m.entries[key.String()], nil
}

func (m *memoryIndex) Release(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.entries, key.String())
	return nil
}

var errRedisDown = errors.New("dial tcp: connection refused")
