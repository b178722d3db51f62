//go:build integration_test || all_tests

package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/2beens/fittracker/internal/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUsersRepoSetup(t *testing.T) (*UsersRepo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postres host: %s", host)

	params := db.NewDBPoolParams{
		DBHost:     host,
		DBPort:     "5432",
		DBName:     "fittracker",
		DBUser:     "postgres",
		DBPassword: os.Getenv("POSTGRES_PASSWORD"),
	}
	require.NoError(t, db.RunMigrations(params.URL()))

	dbPool, err := db.NewDBPool(timeoutCtx, params)
	require.NoError(t, err)

	return NewUsersRepo(dbPool), func() {
		dbPool.Close()
	}
}

func TestUsersRepo_BasicCRUD(t *testing.T) {
	repo, shutdown := testUsersRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	email := gofakeit.Email()
	user := User{
		Name:         gofakeit.Name(),
		Email:        "  " + email + " ",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}

	added, err := repo.Add(ctx, user)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, added.ID)
	assert.Equal(t, NormalizeEmail(email), added.Email)

	_, err = repo.Add(ctx, User{Name: "Other", Email: email, PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	byEmail, err := repo.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, added.ID, byEmail.ID)
	assert.Equal(t, user.Name, byEmail.Name)

	renamed, err := repo.UpdateName(ctx, added.ID, "Renamed User")
	require.NoError(t, err)
	assert.Equal(t, "Renamed User", renamed.Name)
	assert.True(t, !renamed.UpdatedAt.Before(renamed.CreatedAt))

	require.NoError(t, repo.UpdatePasswordHash(ctx, added.ID, "new-hash"))
	byID, err := repo.GetByID(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", byID.PasswordHash)
	assert.Equal(t, "Renamed User", byID.Name)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, uuid.New(), "x"), ErrUserNotFound)

	_, err = repo.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, added.ID)
	require.NoError(t, err)
}
