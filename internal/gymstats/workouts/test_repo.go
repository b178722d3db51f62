package workouts

import (
	"context"
	"time"

	"github.com/2beens/fittracker/internal/memstore"
	"github.com/2beens/fittracker/internal/pagination"

	"github.com/google/uuid"
)

// TestRepo is an in-memory workouts repo, used in tests and local runs.
type TestRepo struct {
	arena *memstore.Arena[Workout]
	now   func() time.Time
}

func NewTestRepo() *TestRepo {
	return &TestRepo{
		arena: memstore.NewArena[Workout](),
		now:   time.Now,
	}
}

func (r *TestRepo) Add(_ context.Context, workout Workout) (*Workout, error) {
	if workout.ID == uuid.Nil {
		workout.ID = uuid.New()
	}
	if workout.CreatedAt.IsZero() {
		workout.CreatedAt = r.now()
	}
	workout.UpdatedAt = workout.CreatedAt
	r.arena.Put(workout.OwnerID, workout.ID, workout)
	return &workout, nil
}

func (r *TestRepo) Get(_ context.Context, ownerID, id uuid.UUID) (*Workout, error) {
	w, ok := r.arena.Get(ownerID, id)
	if !ok {
		return nil, ErrWorkoutNotFound
	}
	return &w, nil
}

func (r *TestRepo) Update(_ context.Context, workout *Workout) error {
	workout.UpdatedAt = r.now()
	if !r.arena.Replace(workout.OwnerID, workout.ID, *workout) {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *TestRepo) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	if !r.arena.Delete(ownerID, id) {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *TestRepo) List(_ context.Context, ownerID uuid.UUID, params pagination.Params) ([]Workout, int, error) {
	var filtered []Workout
	for _, w := range r.arena.Owned(ownerID) {
		if params.InRange(w.Date) {
			filtered = append(filtered, w)
		}
	}
	SortByDateDesc(filtered)
	return pagination.Slice(filtered, params), len(filtered), nil
}

func (r *TestRepo) ListAll(_ context.Context, ownerID uuid.UUID) ([]Workout, error) {
	all := r.arena.Owned(ownerID)
	SortByDateDesc(all)
	return all, nil
}
