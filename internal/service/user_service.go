package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rutas/api/internal/config"
	"rutas/api/internal/mail"
	"rutas/api/internal/models"
	"rutas/api/internal/repository"
	"rutas/api/internal/security"
)

// Actor is the identity resolved from a session token.
type Actor struct {
	ID   int64
	Role models.Role
}

func (a Actor) CanAccess(userID int64) bool {
	return a.Role.IsAdmin() || a.ID == userID
}

// UserService backs the user management endpoints. Route-level role checks
// happen in middleware; ownership checks happen here.
type UserService struct {
	users    *repository.UserRepository
	tokens   *TokenIssuer
	hasher   security.PasswordHasher
	notifier mail.Notifier
	log      zerolog.Logger
}

func NewUserService(
	users *repository.UserRepository,
	tokens *TokenIssuer,
	notifier mail.Notifier,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		tokens:   tokens,
		hasher:   security.NewPasswordHasher(cfg.Security.BcryptCost),
		notifier: notifier,
		log:      log,
	}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) Get(ctx context.Context, actor Actor, id int64) (models.User, error) {
	user, err := s.getByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if !actor.CanAccess(user.ID) {
		return models.User{}, ErrForbidden
	}
	return user, nil
}

type CreateUserInput struct {
	Email    string
	Password string
	Username string
	Role     string
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (models.User, error) {
	if input.Email == "" || input.Password == "" || input.Username == "" || input.Role == "" {
		return models.User{}, ErrMissingFields
	}
	role, ok := models.ParseRole(input.Role)
	if !ok {
		return models.User{}, ErrInvalidRole
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.Create(ctx, repository.NewUser{
		Email:        input.Email,
		PasswordHash: passwordHash,
		Username:     input.Username,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdateUserInput carries the raw request fields; empty strings mean "not
// provided".
type UpdateUserInput struct {
	Email    string
	Username string
	Role     string
	Password string
}

// Update lets an admin change any field and a user change only their own
// email and username. Admin-only fields sent by a non-admin are ignored.
func (s *UserService) Update(ctx context.Context, actor Actor, id int64, input UpdateUserInput) error {
	if !actor.CanAccess(id) {
		return ErrForbidden
	}

	var patch repository.UserPatch
	if input.Email != "" {
		patch.Email = &input.Email
	}
	if input.Username != "" {
		patch.Username = &input.Username
	}
	if actor.Role.IsAdmin() {
		if input.Role != "" {
			role, ok := models.ParseRole(input.Role)
			if !ok {
				return ErrInvalidRole
			}
			patch.Role = &role
		}
		if input.Password != "" {
			passwordHash, err := s.hasher.Hash(input.Password)
			if err != nil {
				return err
			}
			patch.PasswordHash = &passwordHash
		}
	}

	if patch.Empty() {
		return ErrNoFields
	}

	n, err := s.users.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return ErrNoChanges
	}

	if patch.Role != nil {
		s.log.Info().
			Int64("user_id", id).
			Int64("actor_id", actor.ID).
			Str("role", string(*patch.Role)).
			Msg("role changed")
	}
	return nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	n, err := s.users.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SendResult tells an admin whether mail actually went out.
type SendResult struct {
	Skipped bool
}

func (s *UserService) ResendVerification(ctx context.Context, id int64, baseURL string) (SendResult, error) {
	user, err := s.getByID(ctx, id)
	if err != nil {
		return SendResult{}, err
	}

	token, err := issueAndStore(ctx, s.users, s.tokens, user.ID, models.PurposeEmailVerification)
	if err != nil {
		return SendResult{}, err
	}

	links := mail.Links{BaseURL: baseURL}
	return s.sendPropagating(ctx, mail.AdminVerificationEmail(user.Email, links.VerifyEmail(token.Value)))
}

func (s *UserService) SendReset(ctx context.Context, id int64, baseURL string) (SendResult, error) {
	user, err := s.getByID(ctx, id)
	if err != nil {
		return SendResult{}, err
	}

	token, err := issueAndStore(ctx, s.users, s.tokens, user.ID, models.PurposePasswordReset)
	if err != nil {
		return SendResult{}, err
	}

	links := mail.Links{BaseURL: baseURL}
	return s.sendPropagating(ctx, mail.AdminPasswordResetEmail(user.Email, links.ResetPassword(token.Value)))
}

// SetSuspended sets the flag to the given value; repeating a call is a no-op.
func (s *UserService) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	n, err := s.users.SetSuspended(ctx, id, suspended)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserService) getByID(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// sendPropagating is used by admin-triggered sends, where a transport
// failure is reported back instead of swallowed.
func (s *UserService) sendPropagating(ctx context.Context, msg mail.Message) (SendResult, error) {
	err := s.notifier.Send(ctx, msg)
	switch {
	case err == nil:
		return SendResult{}, nil
	case errors.Is(err, mail.ErrDisabled):
		s.log.Info().Str("subject", msg.Subject).Msg("mail transport not configured, send skipped")
		return SendResult{Skipped: true}, nil
	default:
		return SendResult{}, fmt.Errorf("%w: %v", ErrMailFailed, err)
	}
}
