package weight

import (
	"context"
	"sync"
	"time"

	"github.com/2beens/fittracker/internal/memstore"
	"github.com/2beens/fittracker/internal/pagination"

	"github.com/google/uuid"
)

// TestRepo is an in-memory weight repo, used in tests and local runs.
type TestRepo struct {
	arena *memstore.Arena[Entry]
	// writeMu keeps the (owner, date) uniqueness check and the write together
	writeMu sync.Mutex
	now     func() time.Time
}

func NewTestRepo() *TestRepo {
	return &TestRepo{
		arena: memstore.NewArena[Entry](),
		now:   time.Now,
	}
}

func (r *TestRepo) Upsert(_ context.Context, entry Entry) (*Entry, bool, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	now := r.now()
	existing, found := r.arena.Find(entry.OwnerID, func(e Entry) bool {
		return e.Date.Equal(entry.Date)
	})
	if found {
		existing.Weight = entry.Weight
		existing.Notes = entry.Notes
		existing.UpdatedAt = now
		r.arena.Put(existing.OwnerID, existing.ID, existing)
		return &existing, false, nil
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	r.arena.Put(entry.OwnerID, entry.ID, entry)
	return &entry, true, nil
}

func (r *TestRepo) Get(_ context.Context, ownerID, id uuid.UUID) (*Entry, error) {
	e, ok := r.arena.Get(ownerID, id)
	if !ok {
		return nil, ErrWeightEntryNotFound
	}
	return &e, nil
}

func (r *TestRepo) Update(_ context.Context, entry *Entry) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if _, taken := r.arena.Find(entry.OwnerID, func(e Entry) bool {
		return e.ID != entry.ID && e.Date.Equal(entry.Date)
	}); taken {
		return ErrDateTaken
	}

	entry.UpdatedAt = r.now()
	if !r.arena.Replace(entry.OwnerID, entry.ID, *entry) {
		return ErrWeightEntryNotFound
	}
	return nil
}

func (r *TestRepo) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	if !r.arena.Delete(ownerID, id) {
		return ErrWeightEntryNotFound
	}
	return nil
}

func (r *TestRepo) List(_ context.Context, ownerID uuid.UUID, params pagination.Params) ([]Entry, int, error) {
	var filtered []Entry
	for _, e := range r.arena.Owned(ownerID) {
		if params.InRange(e.Date) {
			filtered = append(filtered, e)
		}
	}
	SortByDateDesc(filtered)
	return pagination.Slice(filtered, params), len(filtered), nil
}

func (r *TestRepo) ListAll(_ context.Context, ownerID uuid.UUID) ([]Entry, error) {
	all := r.arena.Owned(ownerID)
	SortByDateDesc(all)
	return all, nil
}
