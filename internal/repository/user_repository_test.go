package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chikaturin/test-hololab-be/internal/utils"
)

const selectUserByEmail = "SELECT id,email,password_hash,staff_id,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1"

func TestUserCreateNormalizesEmailAndHashes(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	var gotHash string
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (email, password_hash, staff_id) VALUES (?,?,?)")).
		WithArgs("a@b.c", hashCapture{&gotHash}, sql.NullInt64{}).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.Create(context.Background(), "  A@B.C ", "secret-pass", nil, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.True(t, utils.VerifyPassword(gotHash, "secret-pass"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// hashCapture matches any string argument and records it, so the test can
// assert on the bcrypt hash without knowing its exact bytes.
type hashCapture struct{ dst *string }

func (h hashCapture) Match(v driver.Value) bool {
	s, ok := v.(string)
	if ok {
		*h.dst = s
	}
	return ok
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (email, password_hash, staff_id) VALUES (?,?,?)")).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'a@b.c' for key 'users.email'"))

	_, err := repo.Create(context.Background(), "a@b.c", "secret-pass", nil, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectUserByEmail)).
		WithArgs("ghost@b.c").
		WillReturnError(sql.ErrNoRows)

	// Driver-level no-rows never crosses the repository boundary.
	_, err := repo.GetByEmail(context.Background(), "Ghost@B.C")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,email,password_hash,staff_id,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1")).
		WithArgs(uint64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserSetActiveNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active=? WHERE id=?")).
		WithArgs(false, uint64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), 404, false)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserListOmitsPasswordHash(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,email,staff_id,is_active,created_at,updated_at FROM users ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "staff_id", "is_active", "created_at", "updated_at"}).
			AddRow(1, "a@b.c", nil, true, now, now).
			AddRow(2, "d@e.f", 3, false, now, now))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Empty(t, users[0].PasswordHash)
	assert.True(t, users[1].StaffID.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
