package auth

import (
	"context"
	"sync"
	"time"

	"github.com/2beens/fittracker/internal/memstore"

	"github.com/google/uuid"
)

// UsersTestRepo keeps users in memory. Users are not owned by anyone, so
// they all live in the uuid.Nil partition of the arena.
type UsersTestRepo struct {
	writeMu sync.Mutex
	arena   *memstore.Arena[User]
	now     func() time.Time
}

func NewUsersTestRepo() *UsersTestRepo {
	return &UsersTestRepo{
		arena: memstore.NewArena[User](),
		now:   time.Now,
	}
}

func (r *UsersTestRepo) Add(_ context.Context, user User) (*User, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	user.Email = NormalizeEmail(user.Email)
	if _, taken := r.findByEmail(user.Email); taken {
		return nil, ErrEmailTaken
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now()
	}
	user.UpdatedAt = user.CreatedAt
	r.arena.Put(uuid.Nil, user.ID, user)
	return &user, nil
}

func (r *UsersTestRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := r.arena.Get(uuid.Nil, id)
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *UsersTestRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	u, ok := r.findByEmail(NormalizeEmail(email))
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *UsersTestRepo) findByEmail(email string) (User, bool) {
	return r.arena.Find(uuid.Nil, func(u User) bool {
		return u.Email == email
	})
}

func (r *UsersTestRepo) UpdateName(_ context.Context, id uuid.UUID, name string) (*User, error) {
	updated, ok, err := r.arena.Update(uuid.Nil, id, func(u User) (User, error) {
		u.Name = name
		u.UpdatedAt = r.now()
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	return &updated, nil
}

func (r *UsersTestRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, passwordHash string) error {
	_, ok, err := r.arena.Update(uuid.Nil, id, func(u User) (User, error) {
		u.PasswordHash = passwordHash
		u.UpdatedAt = r.now()
		return u, nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
