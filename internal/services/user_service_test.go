package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"reliefapp/internal/config"
	contextutils "reliefapp/internal/utils"
)

func newMockUserService(t *testing.T) (*UserService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	service := NewUserServiceWithLogger(db, &config.Config{}, testLogger())
	cleanup := func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	}
	return service, mock, cleanup
}

func userRow(t *testing.T, id int, username, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "username", "display_name", "email", "password_hash", "organization_id", "last_active", "created_at", "updated_at",
	}).AddRow(id, username, "Field Coordinator", "coord@example.org", string(hash), 1, now, now, now)
}

func TestCreateUserWithPassword(t *testing.T) {
	service, mock, cleanup := newMockUserService(t)
	defer cleanup()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("amina", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(5, time.Now(), time.Now()))

	user, err := service.CreateUserWithPassword(context.Background(), 1, "amina", "s3cret", "Amina Diallo", "amina@example.org")
	require.NoError(t, err)
	assert.Equal(t, 5, user.ID)
	assert.Equal(t, "amina", user.Username)
	assert.True(t, user.PasswordHash.Valid)
	assert.NotEqual(t, "s3cret", user.PasswordHash.String)
}

func TestCreateUserWithPassword_InvalidEmail(t *testing.T) {
	service, _, cleanup := newMockUserService(t)
	defer cleanup()

	_, err := service.CreateUserWithPassword(context.Background(), 1, "amina", "s3cret", "", "not-an-email")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidFormat))
}

func TestCreateUserWithPassword_MissingFields(t *testing.T) {
	service, _, cleanup := newMockUserService(t)
	defer cleanup()

	_, err := service.CreateUserWithPassword(context.Background(), 1, "", "s3cret", "", "")
	assert.True(t, contextutils.IsError(err, contextutils.ErrMissingRequired))

	_, err = service.CreateUserWithPassword(context.Background(), 1, "amina", "", "", "")
	assert.True(t, contextutils.IsError(err, contextutils.ErrMissingRequired))
}

func TestAuthenticateUser(t *testing.T) {
	service, mock, cleanup := newMockUserService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
		WithArgs("amina").
		WillReturnRows(userRow(t, 5, "amina", "s3cret"))

	user, err := service.AuthenticateUser(context.Background(), "amina", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, 5, user.ID)
}

func TestAuthenticateUser_WrongPassword(t *testing.T) {
	service, mock, cleanup := newMockUserService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
		WithArgs("amina").
		WillReturnRows(userRow(t, 5, "amina", "s3cret"))

	_, err := service.AuthenticateUser(context.Background(), "amina", "wrong")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidCredentials))
}

func TestAuthenticateUser_UnknownUserSameError(t *testing.T) {
	service, mock, cleanup := newMockUserService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "display_name", "email", "password_hash", "organization_id", "last_active", "created_at", "updated_at",
		}))

	_, err := service.AuthenticateUser(context.Background(), "ghost", "anything")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidCredentials))
}

func TestUpdateUserPassword_NotFound(t *testing.T) {
	service, mock, cleanup := newMockUserService(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE users SET password_hash = \$1`).
		WithArgs(sqlmock.AnyArg(), 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := service.UpdateUserPassword(context.Background(), 99, "newpass")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrRecordNotFound))
}

func TestAssignRoleByName_UnknownRole(t *testing.T) {
	service, mock, cleanup := newMockUserService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id FROM roles WHERE name = \$1`).
		WithArgs("superuser").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := service.AssignRoleByName(context.Background(), 5, "superuser")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrRecordNotFound))
}

func TestHasRole(t *testing.T) {
	service, mock, cleanup := newMockUserService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(5, "admin").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	has, err := service.HasRole(context.Background(), 5, "admin")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestEnsureAdminUserExists_PasswordDriftUpdated(t *testing.T) {
	service, mock, cleanup := newMockUserService(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
		WithArgs("admin").
		WillReturnRows(userRow(t, 1, "admin", "oldpass"))
	mock.ExpectExec(`UPDATE users SET password_hash = \$1`).
		WithArgs(sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id FROM roles WHERE name = \$1`).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO user_roles`).
		WithArgs(1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := service.EnsureAdminUserExists(context.Background(), "admin", "newpass")
	require.NoError(t, err)
}
