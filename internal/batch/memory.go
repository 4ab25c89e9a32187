package batch

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps batches in process memory. Batches are orchestration
// state, not durable artifacts: the clips themselves live in the cache, so
// losing this map on restart loses only in-flight bookkeeping. Every read and
// write exchanges clones, never the stored pointer, because the scheduler
// mutates batches concurrently with API reads.
type MemoryRepository struct {
	mu      sync.RWMutex
	batches map[string]*Batch
}

// NewMemoryRepository creates an empty in-memory batch repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		batches: make(map[string]*Batch),
	}
}

// Save stores a clone of b, replacing any batch with the same ID.
func (r *MemoryRepository) Save(_ context.Context, b *Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = b.Clone()
	return nil
}

// FindByID returns a clone of the batch with the given ID, or
// ErrBatchNotFound.
func (r *MemoryRepository) FindByID(_ context.Context, batchID string) (*Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[batchID]
	if !ok {
		return nil, ErrBatchNotFound
	}
	return b.Clone(), nil
}

// List returns clones of all batches, newest first. Ties on creation time
// break on ID so the order is stable across calls.
func (r *MemoryRepository) List(_ context.Context) ([]*Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Batch, 0, len(r.batches))
	for _, b := range r.batches {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes the batch with the given ID, or returns ErrBatchNotFound.
func (r *MemoryRepository) Delete(_ context.Context, batchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.batches[batchID]; !ok {
		return ErrBatchNotFound
	}
	delete(r.batches, batchID)
	return nil
}
