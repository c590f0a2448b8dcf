package repository

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rutas/api/internal/database/dbtest"
	"rutas/api/internal/models"
)

func newRepo(t *testing.T) *UserRepository {
	t.Helper()
	return NewUserRepository(dbtest.Open(t))
}

func createUser(t *testing.T, r *UserRepository, email string) models.User {
	t.Helper()
	u, err := r.Create(context.Background(), NewUser{
		Email:        email,
		PasswordHash: "hash",
		Username:     "user-" + email,
	})
	require.NoError(t, err)
	return u
}

func TestCreate_Defaults(t *testing.T) {
	r := newRepo(t)

	u := createUser(t, r, "a@x.com")
	assert.NotZero(t, u.ID)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.False(t, u.EmailVerified)
	assert.False(t, u.Suspended)
	assert.False(t, u.MustChangePassword)
	assert.False(t, u.DeletedAt.Valid)
	assert.WithinDuration(t, time.Now(), u.CreatedAt, time.Minute)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	first := createUser(t, r, "a@x.com")

	_, err := r.Create(ctx, NewUser{Email: "a@x.com", PasswordHash: "other", Username: "bob"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	users, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, first.ID, users[0].ID)
	assert.Equal(t, "hash", users[0].PasswordHash)
}

func TestFindByEmail_And_GetByID(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := createUser(t, r, "a@x.com")

	got, err := r.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)

	_, err = r.FindByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = r.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestList_OrderedByID(t *testing.T) {
	r := newRepo(t)
	createUser(t, r, "b@x.com")
	createUser(t, r, "a@x.com")

	users, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Less(t, users[0].ID, users[1].ID)
	assert.Equal(t, "b@x.com", users[0].Email)
}

func TestUpdate_AppliesOnlyGivenFields(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := createUser(t, r, "a@x.com")

	name := "renamed"
	role := models.RoleAdmin
	n, err := r.Update(ctx, u.ID, UserPatch{Username: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Username)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, "hash", got.PasswordHash)
}

func TestUpdate_Errors(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	createUser(t, r, "a@x.com")
	b := createUser(t, r, "b@x.com")

	_, err := r.Update(ctx, b.ID, UserPatch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)

	taken := "a@x.com"
	_, err = r.Update(ctx, b.ID, UserPatch{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailTaken)

	name := "ghost"
	n, err := r.Update(ctx, 999, UserPatch{Username: &name})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSetSuspended_And_Delete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := createUser(t, r, "a@x.com")

	n, err := r.SetSuspended(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Suspended)

	n, err = r.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = r.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = r.SetSuspended(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestList_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT .* FROM users ORDER BY id$`).
		WillReturnError(errors.New("db down"))

	_, err = NewUserRepository(db).List(context.Background())
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`list users: .*db down`), err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetToken_RowsAffectedError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`^UPDATE users SET reset_password_token = \$2, reset_password_expires = \$3 WHERE id = \$1$`).
		WithArgs(int64(5), "tok", int64(1000)).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no rows info")))

	_, err = NewUserRepository(db).SetToken(context.Background(), 5, models.PurposePasswordReset, "tok", 1000)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_ConcurrentSingleUse(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := createUser(t, r, "a@x.com")

	now := time.Now().UnixMilli()
	_, err := r.SetToken(ctx, u.ID, models.PurposePasswordReset, "tok", now+60_000)
	require.NoError(t, err)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		consumed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.ConsumeReset(ctx, u.ID, "tok", now, "new-hash")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrTokenConsumed):
				consumed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, workers-1, consumed)
}
