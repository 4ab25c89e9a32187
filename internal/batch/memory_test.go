package batch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepository_SaveAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	b := New()
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	found, err := repo.FindByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found.ID != b.ID || found.Status != StatusPending {
		t.Errorf("found = %+v", found)
	}
}

func TestMemoryRepository_FindUnknownID(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.FindByID(context.Background(), "nope")
	if !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("error = %v, want ErrBatchNotFound", err)
	}
}

func TestMemoryRepository_ReturnsClones(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	b := New()
	if err := repo.Save(ctx, b); err != nil {
		t.Fatal(err)
	}

	// Mutating a fetched copy must not leak back into storage.
	first, _ := repo.FindByID(ctx, b.ID)
	first.Status = StatusFailed
	first.Error = "mutated"

	second, _ := repo.FindByID(ctx, b.ID)
	if second.Status != StatusPending || second.Error != "" {
		t.Errorf("stored batch was mutated: %+v", second)
	}
}

func TestMemoryRepository_ListNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Now()
	var ids []string
	for i := 0; i < 3; i++ {
		b := New()
		// Explicit timestamps keep the order deterministic even when all
		// three batches are created within one clock tick.
		b.CreatedAt = base.Add(time.Duration(i) * time.Second)
		ids = append(ids, b.ID)
		if err := repo.Save(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d batches, want 3", len(all))
	}
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if all[i].ID != want {
			t.Errorf("List()[%d].ID = %q, want %q (newest first)", i, all[i].ID, want)
		}
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	b := New()
	_ = repo.Save(ctx, b)

	if err := repo.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.FindByID(ctx, b.ID); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("FindByID after delete error = %v, want ErrBatchNotFound", err)
	}
	if err := repo.Delete(ctx, b.ID); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("second Delete error = %v, want ErrBatchNotFound", err)
	}
}
