package service

import (
	"fmt"
	"time"

	"rutas/api/internal/config"
	"rutas/api/internal/models"
	"rutas/api/internal/security"
)

type Token struct {
	Value     string
	ExpiresAt time.Time
}

// ExpiresAtMs is the stored representation of the expiry.
func (t Token) ExpiresAtMs() int64 {
	return t.ExpiresAt.UnixMilli()
}

// TokenIssuer mints single-use lifecycle tokens and owns the clock used to
// judge their expiry.
type TokenIssuer struct {
	ttls map[models.TokenPurpose]time.Duration
	now  func() time.Time
}

func NewTokenIssuer(cfg config.TokenConfig) *TokenIssuer {
	return &TokenIssuer{
		ttls: map[models.TokenPurpose]time.Duration{
			models.PurposeEmailVerification: orDefault(cfg.VerificationTTL, 24*time.Hour),
			models.PurposePasswordReset:     orDefault(cfg.ResetTTL, time.Hour),
			models.PurposeAccountDeletion:   orDefault(cfg.DeletionTTL, 24*time.Hour),
		},
		now: time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

func (t *TokenIssuer) Now() time.Time {
	return t.now()
}

func (t *TokenIssuer) NowMs() int64 {
	return t.now().UnixMilli()
}

func (t *TokenIssuer) TTL(purpose models.TokenPurpose) time.Duration {
	return t.ttls[purpose]
}

func (t *TokenIssuer) Issue(purpose models.TokenPurpose) (Token, error) {
	ttl, ok := t.ttls[purpose]
	if !ok {
		return Token{}, fmt.Errorf("issue token: unknown purpose %q", purpose)
	}
	value, err := security.NewLifecycleToken()
	if err != nil {
		return Token{}, err
	}
	return Token{Value: value, ExpiresAt: t.now().Add(ttl)}, nil
}

func orDefault(d time.Duration, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
