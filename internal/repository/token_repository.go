package repository

import (
	"context"
	"fmt"

	"rutas/api/internal/models"
)

type tokenQueries struct {
	set  string
	find string
}

// Column names are fixed per purpose; nothing here is built from input.
var tokenSlots = map[models.TokenPurpose]tokenQueries{
	models.PurposeEmailVerification: {
		set: `UPDATE users SET email_verification_token = $2, email_verification_expires = $3 WHERE id = $1`,
		find: `SELECT ` + userColumns + ` FROM users
			WHERE email_verification_token = $1 AND email_verification_expires > $2`,
	},
	models.PurposePasswordReset: {
		set: `UPDATE users SET reset_password_token = $2, reset_password_expires = $3 WHERE id = $1`,
		find: `SELECT ` + userColumns + ` FROM users
			WHERE reset_password_token = $1 AND reset_password_expires > $2`,
	},
	models.PurposeAccountDeletion: {
		set: `UPDATE users SET account_deletion_token = $2, account_deletion_expires = $3 WHERE id = $1`,
		find: `SELECT ` + userColumns + ` FROM users
			WHERE account_deletion_token = $1 AND account_deletion_expires > $2`,
	},
}

// SetToken stores a token for purpose, overwriting any outstanding one.
func (r *UserRepository) SetToken(ctx context.Context, id int64, purpose models.TokenPurpose, token string, expiresAtMs int64) (int64, error) {
	q, ok := tokenSlots[purpose]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPurpose, purpose)
	}
	res, err := r.db.ExecContext(ctx, q.set, id, token, expiresAtMs)
	if err != nil {
		return 0, fmt.Errorf("set %s token: %w", purpose, err)
	}
	return res.RowsAffected()
}

// FindByToken returns the owner of an unexpired token.
func (r *UserRepository) FindByToken(ctx context.Context, purpose models.TokenPurpose, token string, nowMs int64) (models.User, error) {
	q, ok := tokenSlots[purpose]
	if !ok {
		return models.User{}, fmt.Errorf("%w: %s", ErrUnknownPurpose, purpose)
	}
	return r.scanOne(r.db.QueryRowContext(ctx, q.find, token, nowMs))
}

// The Consume* methods apply the effect a token authorizes and clear the
// token in a single statement. The WHERE clause re-checks the token and its
// expiry, so when two requests race on one token only one changes a row.

func (r *UserRepository) ConsumeVerification(ctx context.Context, id int64, token string, nowMs int64) error {
	const query = `
		UPDATE users SET
			email_verified = TRUE,
			email_verification_token = NULL,
			email_verification_expires = NULL
		WHERE id = $1 AND email_verification_token = $2 AND email_verification_expires > $3
	`
	return r.execConsume(ctx, "verification", query, id, token, nowMs)
}

func (r *UserRepository) ConsumeReset(ctx context.Context, id int64, token string, nowMs int64, passwordHash string) error {
	const query = `
		UPDATE users SET
			password_hash = $4,
			reset_password_token = NULL,
			reset_password_expires = NULL
		WHERE id = $1 AND reset_password_token = $2 AND reset_password_expires > $3
	`
	return r.execConsume(ctx, "reset", query, id, token, nowMs, passwordHash)
}

// ConsumeDeletion hard-deletes the user owning the deletion token.
func (r *UserRepository) ConsumeDeletion(ctx context.Context, id int64, token string, nowMs int64) error {
	const query = `
		DELETE FROM users
		WHERE id = $1 AND account_deletion_token = $2 AND account_deletion_expires > $3
	`
	return r.execConsume(ctx, "deletion", query, id, token, nowMs)
}

func (r *UserRepository) execConsume(ctx context.Context, kind string, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("consume %s token: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume %s token: %w", kind, err)
	}
	if n == 0 {
		return ErrTokenConsumed
	}
	return nil
}

// ClearExpiredTokens nulls every token/expiry pair whose expiry has passed.
func (r *UserRepository) ClearExpiredTokens(ctx context.Context, nowMs int64) (int64, error) {
	queries := []string{
		`UPDATE users SET email_verification_token = NULL, email_verification_expires = NULL
			WHERE email_verification_expires IS NOT NULL AND email_verification_expires <= $1`,
		`UPDATE users SET reset_password_token = NULL, reset_password_expires = NULL
			WHERE reset_password_expires IS NOT NULL AND reset_password_expires <= $1`,
		`UPDATE users SET account_deletion_token = NULL, account_deletion_expires = NULL
			WHERE account_deletion_expires IS NOT NULL AND account_deletion_expires <= $1`,
	}

	var total int64
	for _, query := range queries {
		res, err := r.db.ExecContext(ctx, query, nowMs)
		if err != nil {
			return total, fmt.Errorf("clear expired tokens: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
