package models

import (
	"database/sql"
	"time"
)

type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// ParseRole accepts only the closed set of known roles.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Allowed reports whether r satisfies an allowed-role set. An empty set
// means any authenticated role.
func (r Role) Allowed(roles ...Role) bool {
	if r == "" {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// TokenPurpose selects one of the three single-use token slots on a user.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeAccountDeletion   TokenPurpose = "account_deletion"
)

type User struct {
	ID                       int64
	Email                    string
	PasswordHash             string
	Username                 string
	Role                     Role
	Points                   int64
	Suspended                bool
	EmailVerified            bool
	MustChangePassword       bool
	EmailVerificationToken   sql.NullString
	EmailVerificationExpires sql.NullInt64
	ResetPasswordToken       sql.NullString
	ResetPasswordExpires     sql.NullInt64
	AccountDeletionToken     sql.NullString
	AccountDeletionExpires   sql.NullInt64
	CreatedAt                time.Time
	DeletedAt                sql.NullTime
}

// PublicUser is the projection returned by login and /me.
type PublicUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// UserSummary is the projection used by the user management endpoints.
type UserSummary struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Role          Role      `json:"role"`
	Points        int64     `json:"points"`
	Suspended     bool      `json:"suspended"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
	}
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		Role:          u.Role,
		Points:        u.Points,
		Suspended:     u.Suspended,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}
