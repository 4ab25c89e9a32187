package batch

import (
	"context"
	"errors"
)

// ErrBatchNotFound is returned when a batch cannot be found by ID.
var ErrBatchNotFound = errors.New("batch not found")

// Repository defines the interface for batch persistence.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// Save persists a batch to the storage.
	// If the batch already exists, it should be updated.
	Save(ctx context.Context, b *Batch) error

	// FindByID retrieves a batch by its unique identifier.
	// Returns ErrBatchNotFound if the batch does not exist.
	FindByID(ctx context.Context, id string) (*Batch, error)

	// List returns all batches.
	List(ctx context.Context) ([]*Batch, error)

	// Delete removes a batch from storage.
	// Returns ErrBatchNotFound if the batch does not exist.
	Delete(ctx context.Context, id string) error
}
