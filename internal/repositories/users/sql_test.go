package users

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Prachi-Sharma23/creators-platform/internal/database"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) Repository {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
	return NewSQLRepository(db, database.SQLite)
}

func TestSQLiteRepository(t *testing.T) {
	runRepositoryContract(t, newSQLiteRepo)
}

func newPostgresMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLRepository(db, database.Postgres), mock
}

func TestPostgres_CreateUsesDollarPlaceholders(t *testing.T) {
	repo, mock := newPostgresMock(t)
	u := newUser("ann", "ann@example.com", time.Now())

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*name,\s*email,\s*password_hash,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)$`
	mock.ExpectExec(q).
		WithArgs(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateUniqueViolation(t *testing.T) {
	repo, mock := newPostgresMock(t)
	u := newUser("ann", "ann@example.com", time.Now())

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestPostgres_CreateDBError(t *testing.T) {
	repo, mock := newPostgresMock(t)

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), newUser("ann", "ann@example.com", time.Now()))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestPostgres_FindByEmail(t *testing.T) {
	repo, mock := newPostgresMock(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	q := `(?s)^SELECT\s+id,\s*name,\s*email,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`
	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
		AddRow("u-1", "Ann", "ann@example.com", "hash", created)
	mock.ExpectQuery(q).WithArgs("ann@example.com").WillReturnRows(rows)

	got, err := repo.FindByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestPostgres_FindByIDNotFound(t *testing.T) {
	repo, mock := newPostgresMock(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_UpdateBuildsSetClause(t *testing.T) {
	repo, mock := newPostgresMock(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`^UPDATE users SET name = \$1, email = \$2 WHERE id = \$3$`).
		WithArgs("Ann B", "annb@example.com", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
			AddRow("u-1", "Ann B", "annb@example.com", "hash", created))

	name, email := "Ann B", "annb@example.com"
	got, err := repo.Update(context.Background(), "u-1", Update{Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "annb@example.com", got.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateNoRows(t *testing.T) {
	repo, mock := newPostgresMock(t)

	mock.ExpectExec(`^UPDATE users SET name = \$1 WHERE id = \$2$`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	name := "x"
	_, err := repo.Update(context.Background(), "ghost", Update{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_UpdateUniqueViolation(t *testing.T) {
	repo, mock := newPostgresMock(t)

	mock.ExpectExec(`^UPDATE users SET email = \$1 WHERE id = \$2$`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	email := "taken@example.com"
	_, err := repo.Update(context.Background(), "u-1", Update{Email: &email})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestPostgres_DeleteNoRows(t *testing.T) {
	repo, mock := newPostgresMock(t)

	mock.ExpectExec(`^DELETE FROM users WHERE id = \$1$`).WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "ghost"), ErrNotFound)
}

func TestPostgres_ListDBError(t *testing.T) {
	repo, mock := newPostgresMock(t)

	mock.ExpectQuery(`FROM users ORDER BY created_at, id`).WillReturnError(errors.New("boom"))

	_, err := repo.List(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed")))
	assert.False(t, isUniqueViolation(nil))
}
