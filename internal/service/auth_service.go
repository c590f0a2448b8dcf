package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"rutas/api/internal/config"
	"rutas/api/internal/mail"
	"rutas/api/internal/models"
	"rutas/api/internal/repository"
	"rutas/api/internal/security"
)

type AuthService struct {
	users    *repository.UserRepository
	tokens   *TokenIssuer
	hasher   security.PasswordHasher
	notifier mail.Notifier
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewAuthService(
	users *repository.UserRepository,
	tokens *TokenIssuer,
	notifier mail.Notifier,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		hasher:   security.NewPasswordHasher(cfg.Security.BcryptCost),
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Username string
	// BaseURL prefixes the verification link.
	BaseURL string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	if input.Email == "" || input.Password == "" || input.Username == "" {
		return models.User{}, ErrMissingFields
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.Create(ctx, repository.NewUser{
		Email:        input.Email,
		PasswordHash: passwordHash,
		Username:     input.Username,
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	token, err := issueAndStore(ctx, s.users, s.tokens, user.ID, models.PurposeEmailVerification)
	if err != nil {
		return models.User{}, err
	}

	links := mail.Links{BaseURL: input.BaseURL}
	s.notifyBestEffort(ctx, user.ID, mail.VerificationEmail(user.Email, links.VerifyEmail(token.Value)))

	return user, nil
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Token string
	User  models.User
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return LoginResult{}, ErrMissingFields
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("find user: %w", err)
	}

	if s.cfg.Security.RequireEmailVerification && !user.EmailVerified && !user.Role.IsAdmin() {
		return LoginResult{}, ErrEmailNotVerified
	}
	if user.Suspended {
		return LoginResult{}, ErrSuspended
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("stored password hash unreadable")
	}
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := security.GenerateSessionToken(
		s.cfg.Security.JWTSecret,
		user.ID,
		string(user.Role),
		s.cfg.Security.SessionTTL,
	)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Token: token, User: user}, nil
}

// Me resolves the caller of a verified session. The row may have been
// deleted after the session was issued.
func (s *AuthService) Me(ctx context.Context, userID int64) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ForgotPassword never reports whether the account exists, and a failed
// send is only logged.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, baseURL string) error {
	if email == "" {
		return ErrMissingFields
	}

	user, found, err := s.findOptional(ctx, email)
	if err != nil || !found {
		return err
	}

	token, err := issueAndStore(ctx, s.users, s.tokens, user.ID, models.PurposePasswordReset)
	if err != nil {
		return err
	}

	links := mail.Links{BaseURL: baseURL}
	s.notifyBestEffort(ctx, user.ID, mail.PasswordResetEmail(user.Email, links.ResetPassword(token.Value)))
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, password string) error {
	if password == "" {
		return ErrMissingFields
	}

	user, err := s.resolveToken(ctx, models.PurposePasswordReset, token)
	if err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	if err := s.users.ConsumeReset(ctx, user.ID, token, s.tokens.NowMs(), passwordHash); err != nil {
		return consumeError(err)
	}
	return nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.resolveToken(ctx, models.PurposeEmailVerification, token)
	if err != nil {
		return err
	}

	if err := s.users.ConsumeVerification(ctx, user.ID, token, s.tokens.NowMs()); err != nil {
		return consumeError(err)
	}
	return nil
}

// RequestDeletion mirrors ForgotPassword: same response whether or not the
// account exists. The link opens a confirmation form; nothing is deleted here.
func (s *AuthService) RequestDeletion(ctx context.Context, email string, baseURL string) error {
	if email == "" {
		return ErrMissingFields
	}

	user, found, err := s.findOptional(ctx, email)
	if err != nil || !found {
		return err
	}

	token, err := issueAndStore(ctx, s.users, s.tokens, user.ID, models.PurposeAccountDeletion)
	if err != nil {
		return err
	}

	links := mail.Links{BaseURL: baseURL}
	s.notifyBestEffort(ctx, user.ID, mail.AccountDeletionEmail(user.Email, links.ConfirmDelete(token.Value)))
	return nil
}

func (s *AuthService) ConfirmDeletion(ctx context.Context, token string, password string) error {
	if password == "" {
		return ErrMissingFields
	}

	user, err := s.resolveToken(ctx, models.PurposeAccountDeletion, token)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("stored password hash unreadable")
	}
	if !ok {
		return ErrBadPassword
	}

	if err := s.users.ConsumeDeletion(ctx, user.ID, token, s.tokens.NowMs()); err != nil {
		return consumeError(err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("account deleted by owner")
	return nil
}

// EnsureAdmin creates an administrator with the given credentials unless a
// user with that email already exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, email string, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return false, ErrMissingFields
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("find admin: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}

	_, err = s.users.Create(ctx, repository.NewUser{
		Email:         email,
		PasswordHash:  passwordHash,
		Username:      "admin",
		Role:          models.RoleAdmin,
		EmailVerified: true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func (s *AuthService) findOptional(ctx context.Context, email string) (models.User, bool, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, false, nil
		}
		return models.User{}, false, fmt.Errorf("find user: %w", err)
	}
	return user, true, nil
}

func (s *AuthService) resolveToken(ctx context.Context, purpose models.TokenPurpose, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrInvalidToken
	}
	user, err := s.users.FindByToken(ctx, purpose, token, s.tokens.NowMs())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, fmt.Errorf("find %s token: %w", purpose, err)
	}
	return user, nil
}

func (s *AuthService) notifyBestEffort(ctx context.Context, userID int64, msg mail.Message) {
	if err := s.notifier.Send(ctx, msg); err != nil {
		event := s.log.Error()
		if errors.Is(err, mail.ErrDisabled) {
			event = s.log.Debug()
		}
		event.Err(err).
			Int64("user_id", userID).
			Str("subject", msg.Subject).
			Msg("mail not sent")
	}
}

func issueAndStore(ctx context.Context, users *repository.UserRepository, tokens *TokenIssuer, userID int64, purpose models.TokenPurpose) (Token, error) {
	token, err := tokens.Issue(purpose)
	if err != nil {
		return Token{}, err
	}
	n, err := users.SetToken(ctx, userID, purpose, token.Value, token.ExpiresAtMs())
	if err != nil {
		return Token{}, err
	}
	if n == 0 {
		return Token{}, ErrNotFound
	}
	return token, nil
}

func consumeError(err error) error {
	if errors.Is(err, repository.ErrTokenConsumed) {
		return ErrInvalidToken
	}
	return err
}
