package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rutas/api/internal/models"
)

const (
	nowMs    = int64(1_700_000_000_000)
	futureMs = nowMs + 60_000
	pastMs   = nowMs - 1
)

func TestSetToken_OverwritesPrevious(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := createUser(t, r, "a@x.com")

	_, err := r.SetToken(ctx, u.ID, models.PurposeEmailVerification, "first", futureMs)
	require.NoError(t, err)
	n, err := r.SetToken(ctx, u.ID, models.PurposeEmailVerification, "second", futureMs)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = r.FindByToken(ctx, models.PurposeEmailVerification, "first", nowMs)
	assert.ErrorIs(t, err, ErrUserNotFound)

	got, err := r.FindByToken(ctx, models.PurposeEmailVerification, "second", nowMs)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "second", got.EmailVerificationToken.String)
	assert.Equal(t, futureMs, got.EmailVerificationExpires.Int64)
}

func TestSetToken_UnknownUserAndPurpose(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	n, err := r.SetToken(ctx, 999, models.PurposePasswordReset, "tok", futureMs)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = r.SetToken(ctx, 1, models.TokenPurpose("bogus"), "tok", futureMs)
	assert.ErrorIs(t, err, ErrUnknownPurpose)

	_, err = r.FindByToken(ctx, models.TokenPurpose("bogus"), "tok", nowMs)
	assert.ErrorIs(t, err, ErrUnknownPurpose)
}

func TestFindByToken_PurposesAreIsolated(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := createUser(t, r, "a@x.com")

	_, err := r.SetToken(ctx, u.ID, models.PurposePasswordReset, "tok", futureMs)
	require.NoError(t, err)

	_, err = r.FindByToken(ctx, models.PurposeAccountDeletion, "tok", nowMs)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = r.FindByToken(ctx, models.PurposeEmailVerification, "tok", nowMs)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFindByToken_Expired(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := createUser(t, r, "a@x.com")

	_, err := r.SetToken(ctx, u.ID, models.PurposePasswordReset, "tok", nowMs)
	require.NoError(t, err)

	// valid strictly before expiry
	_, err = r.FindByToken(ctx, models.PurposePasswordReset, "tok", nowMs-1)
	assert.NoError(t, err)
	_, err = r.FindByToken(ctx, models.PurposePasswordReset, "tok", nowMs)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestConsumeVerification(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := createUser(t, r, "a@x.com")

	_, err := r.SetToken(ctx, u.ID, models.PurposeEmailVerification, "tok", futureMs)
	require.NoError(t, err)

	require.NoError(t, r.ConsumeVerification(ctx, u.ID, "tok", nowMs))

	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	assert.False(t, got.EmailVerificationToken.Valid)
	assert.False(t, got.EmailVerificationExpires.Valid)

	assert.ErrorIs(t, r.ConsumeVerification(ctx, u.ID, "tok", nowMs), ErrTokenConsumed)
}

func TestConsumeReset(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := createUser(t, r, "a@x.com")

	_, err := r.SetToken(ctx, u.ID, models.PurposePasswordReset, "tok", futureMs)
	require.NoError(t, err)

	assert.ErrorIs(t, r.ConsumeReset(ctx, u.ID, "wrong", nowMs, "new-hash"), ErrTokenConsumed)
	assert.ErrorIs(t, r.ConsumeReset(ctx, u.ID, "tok", futureMs, "new-hash"), ErrTokenConsumed)

	require.NoError(t, r.ConsumeReset(ctx, u.ID, "tok", nowMs, "new-hash"))

	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.False(t, got.ResetPasswordToken.Valid)
}

func TestConsumeDeletion(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := createUser(t, r, "a@x.com")

	_, err := r.SetToken(ctx, u.ID, models.PurposeAccountDeletion, "tok", futureMs)
	require.NoError(t, err)

	assert.ErrorIs(t, r.ConsumeDeletion(ctx, u.ID, "tok", futureMs+1), ErrTokenConsumed)
	_, err = r.GetByID(ctx, u.ID)
	require.NoError(t, err)

	require.NoError(t, r.ConsumeDeletion(ctx, u.ID, "tok", nowMs))
	_, err = r.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestClearExpiredTokens(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	a := createUser(t, r, "a@x.com")
	b := createUser(t, r, "b@x.com")

	_, err := r.SetToken(ctx, a.ID, models.PurposeEmailVerification, "old", pastMs)
	require.NoError(t, err)
	_, err = r.SetToken(ctx, a.ID, models.PurposePasswordReset, "live", futureMs)
	require.NoError(t, err)
	_, err = r.SetToken(ctx, b.ID, models.PurposeAccountDeletion, "old2", pastMs)
	require.NoError(t, err)

	n, err := r.ClearExpiredTokens(ctx, nowMs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := r.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.EmailVerificationToken.Valid)
	assert.True(t, got.ResetPasswordToken.Valid)

	got, err = r.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.AccountDeletionToken.Valid)

	n, err = r.ClearExpiredTokens(ctx, nowMs)
	require.NoError(t, err)
	assert.Zero(t, n)
}
