package users

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Prachi-Sharma23/creators-platform/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newUser(name, email string, created time.Time) *models.User {
	return &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$04$hash-for-" + name,
		CreatedAt:    created.UTC().Truncate(time.Millisecond),
	}
}

func ptr(s string) *string { return &s }

// runRepositoryContract exercises the behaviour every Repository backend must
// share. newRepo must return an empty store.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)
		u := newUser("ann", "ann@example.com", base)

		created, err := repo.Create(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, u.ID, created.ID)

		byEmail, err := repo.FindByEmail(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
		assert.Equal(t, u.PasswordHash, byEmail.PasswordHash)
		assert.True(t, u.CreatedAt.Equal(byEmail.CreatedAt), "created_at %v != %v", u.CreatedAt, byEmail.CreatedAt)

		byID, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "ann", byID.Name)
		assert.Equal(t, "ann@example.com", byID.Email)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.FindByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Create(ctx, newUser("ann", "ann@example.com", base))
		require.NoError(t, err)

		_, err = repo.Create(ctx, newUser("other", "ann@example.com", base))
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("concurrent duplicate email", func(t *testing.T) {
		repo := newRepo(t)
		const workers = 8

		var ok, dup atomic.Int32
		var g errgroup.Group
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				_, err := repo.Create(ctx, newUser("racer", "race@example.com", base))
				switch {
				case err == nil:
					ok.Add(1)
				case assert.ErrorIs(t, err, ErrDuplicateEmail):
					dup.Add(1)
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.EqualValues(t, 1, ok.Load())
		assert.EqualValues(t, workers-1, dup.Load())
	})

	t.Run("list is ordered by creation", func(t *testing.T) {
		repo := newRepo(t)

		empty, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		second := newUser("bob", "bob@example.com", base.Add(time.Minute))
		first := newUser("ann", "ann@example.com", base)
		_, err = repo.Create(ctx, second)
		require.NoError(t, err)
		_, err = repo.Create(ctx, first)
		require.NoError(t, err)

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, second.ID, list[1].ID)
	})

	t.Run("update", func(t *testing.T) {
		repo := newRepo(t)
		ann := newUser("ann", "ann@example.com", base)
		bob := newUser("bob", "bob@example.com", base)
		_, err := repo.Create(ctx, ann)
		require.NoError(t, err)
		_, err = repo.Create(ctx, bob)
		require.NoError(t, err)

		got, err := repo.Update(ctx, ann.ID, Update{Name: ptr("Ann B"), Email: ptr("annb@example.com")})
		require.NoError(t, err)
		assert.Equal(t, "Ann B", got.Name)
		assert.Equal(t, "annb@example.com", got.Email)
		assert.Equal(t, ann.PasswordHash, got.PasswordHash)

		got, err = repo.Update(ctx, ann.ID, Update{PasswordHash: ptr("new-hash")})
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.PasswordHash)

		got, err = repo.Update(ctx, ann.ID, Update{})
		require.NoError(t, err)
		assert.Equal(t, "Ann B", got.Name)

		_, err = repo.Update(ctx, ann.ID, Update{Email: ptr("bob@example.com")})
		assert.ErrorIs(t, err, ErrDuplicateEmail)

		_, err = repo.Update(ctx, uuid.NewString(), Update{Name: ptr("x")})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		ann := newUser("ann", "ann@example.com", base)
		_, err := repo.Create(ctx, ann)
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, ann.ID))
		_, err = repo.FindByID(ctx, ann.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, ann.ID), ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(ctx))
	})
}
