package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Prachi-Sharma23/creators-platform/internal/auth"
	"github.com/Prachi-Sharma23/creators-platform/internal/metrics"
	"github.com/Prachi-Sharma23/creators-platform/internal/models"
	"github.com/Prachi-Sharma23/creators-platform/internal/repositories/users"
	"github.com/google/uuid"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, name, email, password string) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (LoginResult, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, name, email *string) (models.User, error)
	UpdatePassword(ctx context.Context, id, currentPassword, newPassword string) error
	DeleteUser(ctx context.Context, id string) error
}

// LoginResult is a freshly issued token and the user it belongs to.
type LoginResult struct {
	Token string
	User  models.User
}

// UserService provides business logic for user management. Every user it
// returns is sanitized.
type UserService struct {
	repo    users.Repository
	hasher  *auth.Hasher
	tokens  *auth.TokenCodec
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewUserService creates a new UserService. m may be nil.
func NewUserService(repo users.Repository, hasher *auth.Hasher, tokens *auth.TokenCodec, m *metrics.Metrics) *UserService {
	return &UserService{
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		metrics: m,
		now:     time.Now,
	}
}

// Register validates the input, hashes the password and stores a new user.
func (s *UserService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	fields := fieldErrors{}
	fields.name(name)
	fields.email(email)
	fields.password("password", password)
	if err := fields.err(); err != nil {
		s.metrics.RecordRegistration(metrics.ResultInvalid)
		return models.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.metrics.RecordRegistration(metrics.ResultError)
		return models.User{}, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			s.metrics.RecordRegistration(metrics.ResultDuplicate)
			return models.User{}, ErrDuplicateEmail
		}
		s.metrics.RecordRegistration(metrics.ResultError)
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.metrics.RecordRegistration(metrics.ResultSuccess)
	return created.Sanitized(), nil
}

// Authenticate verifies a user's credentials. An unknown email and a wrong
// password both return ErrInvalidCredentials after the same bcrypt work.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	email = NormalizeEmail(email)

	fields := fieldErrors{}
	if email == "" {
		fields["email"] = "Email is required"
	}
	if password == "" {
		fields["password"] = "Password is required"
	}
	if err := fields.err(); err != nil {
		return models.User{}, err
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.hasher.CompareDummy(password)
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	return user.Sanitized(), nil
}

// Login authenticates the user and issues a token bound to their id.
func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			s.metrics.RecordLogin(metrics.ResultInvalid)
		case errors.Is(err, ErrInvalidCredentials):
			s.metrics.RecordLogin(metrics.ResultInvalidCredentials)
		default:
			s.metrics.RecordLogin(metrics.ResultError)
		}
		return LoginResult{}, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.metrics.RecordLogin(metrics.ResultError)
		return LoginResult{}, err
	}

	s.metrics.RecordLogin(metrics.ResultSuccess)
	return LoginResult{Token: token, User: user}, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return models.User{}, mapStoreError(err)
	}
	return user.Sanitized(), nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i := range list {
		list[i] = list[i].Sanitized()
	}
	return list, nil
}

// UpdateUser changes the name and/or email. Nil fields are left untouched.
func (s *UserService) UpdateUser(ctx context.Context, id string, name, email *string) (models.User, error) {
	var upd users.Update
	fields := fieldErrors{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		fields.name(trimmed)
		upd.Name = &trimmed
	}
	if email != nil {
		normalized := NormalizeEmail(*email)
		fields.email(normalized)
		upd.Email = &normalized
	}
	if err := fields.err(); err != nil {
		return models.User{}, err
	}

	user, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return models.User{}, mapStoreError(err)
	}
	return user.Sanitized(), nil
}

// UpdatePassword verifies the current password, then hashes and sets a new password for a user.
func (s *UserService) UpdatePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	fields := fieldErrors{}
	if currentPassword == "" {
		fields["currentPassword"] = "Current password is required"
	}
	fields.password("newPassword", newPassword)
	if err := fields.err(); err != nil {
		return err
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return &ValidationError{Fields: map[string]string{"currentPassword": "Current password is incorrect"}}
		}
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.repo.Update(ctx, id, users.Update{PasswordHash: &hash}); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// DeleteUser removes a user from the database.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return mapStoreError(s.repo.Delete(ctx, id))
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, users.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, users.ErrDuplicateEmail):
		return ErrDuplicateEmail
	default:
		return fmt.Errorf("store: %w", err)
	}
}
