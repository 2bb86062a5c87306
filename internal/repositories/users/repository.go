// Package users persists user records. Email uniqueness is enforced by the
// backing database (a UNIQUE constraint or a unique index), never by a
// read-then-write check, so concurrent inserts of the same email resolve to
// exactly one success and ErrDuplicateEmail for the rest.
package users

import (
	"context"
	"errors"

	"github.com/Prachi-Sharma23/creators-platform/internal/models"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Update lists the fields to change; nil fields are left untouched.
type Update struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Name == nil && u.Email == nil && u.PasswordHash == nil
}

// Repository is the credential store. Returned users include PasswordHash;
// callers decide what leaves the process.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id string, upd Update) (*models.User, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
