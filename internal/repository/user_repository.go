package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rutas/api/internal/database"
	"rutas/api/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrEmptyPatch     = errors.New("no fields to update")
	ErrTokenConsumed  = errors.New("token no longer valid")
	ErrUnknownPurpose = errors.New("unknown token purpose")
)

const userColumns = `
	id, email, password_hash, username, role, points, suspended, email_verified, must_change_password,
	email_verification_token, email_verification_expires,
	reset_password_token, reset_password_expires,
	account_deletion_token, account_deletion_expires,
	created_at, deleted_at
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type NewUser struct {
	Email         string
	PasswordHash  string
	Username      string
	Role          models.Role
	EmailVerified bool
}

// UserPatch lists the mutable profile fields. Nil fields are left untouched.
// Role and PasswordHash are admin-only; the caller enforces that.
type UserPatch struct {
	Email        *string
	Username     *string
	Role         *models.Role
	PasswordHash *string
}

func (p UserPatch) Empty() bool {
	return p.Email == nil && p.Username == nil && p.Role == nil && p.PasswordHash == nil
}

func (r *UserRepository) Create(ctx context.Context, input NewUser) (models.User, error) {
	const query = `
		INSERT INTO users (email, password_hash, username, role, email_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		input.Email,
		input.PasswordHash,
		input.Username,
		string(role),
		input.EmailVerified,
		time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return models.User{}, mapWriteError(err)
	}

	return r.GetByID(ctx, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update applies the non-nil fields of patch and returns the number of rows
// changed. Zero means the user does not exist.
func (r *UserRepository) Update(ctx context.Context, id int64, patch UserPatch) (int64, error) {
	if patch.Empty() {
		return 0, ErrEmptyPatch
	}

	const query = `
		UPDATE users SET
			email = COALESCE($2, email),
			username = COALESCE($3, username),
			role = COALESCE($4, role),
			password_hash = COALESCE($5, password_hash)
		WHERE id = $1
	`

	var role *string
	if patch.Role != nil {
		s := string(*patch.Role)
		role = &s
	}

	res, err := r.db.ExecContext(ctx, query, id, patch.Email, patch.Username, role, patch.PasswordHash)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return res.RowsAffected()
}

func (r *UserRepository) SetSuspended(ctx context.Context, id int64, suspended bool) (int64, error) {
	const query = `UPDATE users SET suspended = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, suspended)
	if err != nil {
		return 0, fmt.Errorf("set suspended: %w", err)
	}
	return res.RowsAffected()
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (int64, error) {
	const query = `DELETE FROM users WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete user: %w", err)
	}
	return res.RowsAffected()
}

func (r *UserRepository) scanOne(row *sql.Row) (models.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var (
		user models.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Username,
		&role,
		&user.Points,
		&user.Suspended,
		&user.EmailVerified,
		&user.MustChangePassword,
		&user.EmailVerificationToken,
		&user.EmailVerificationExpires,
		&user.ResetPasswordToken,
		&user.ResetPasswordExpires,
		&user.AccountDeletionToken,
		&user.AccountDeletionExpires,
		&user.CreatedAt,
		&user.DeletedAt,
	); err != nil {
		return models.User{}, err
	}
	user.Role = models.Role(role)
	return user, nil
}

func mapWriteError(err error) error {
	if errors.Is(database.MapError(err), database.ErrUniqueViolation) {
		return ErrEmailTaken
	}
	return err
}
