package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"rutas/api/internal/config"
	"rutas/api/internal/database/dbtest"
	"rutas/api/internal/mail"
	"rutas/api/internal/models"
	"rutas/api/internal/repository"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg mail.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) messages() []mail.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mail.Message(nil), n.sent...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	users    *repository.UserRepository
	clock    *fakeClock
	notifier *recordingNotifier
	cfg      *config.AppConfig
	auth     *AuthService
	admin    *UserService
}

const baseURL = "http://localhost:3000"

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := repository.NewUserRepository(dbtest.Open(t))
	clock := &fakeClock{now: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
	tokens := NewTokenIssuer(config.TokenConfig{}).WithClock(clock.Now)
	notifier := &recordingNotifier{}
	cfg := &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:  "test-secret",
			SessionTTL: time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
	}
	log := zerolog.New(io.Discard)

	return &fixture{
		users:    users,
		clock:    clock,
		notifier: notifier,
		cfg:      cfg,
		auth:     NewAuthService(users, tokens, notifier, cfg, log),
		admin:    NewUserService(users, tokens, notifier, cfg, log),
	}
}

func (f *fixture) register(t *testing.T, email, password, username string) models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: password,
		Username: username,
		BaseURL:  baseURL,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) reload(t *testing.T, id int64) models.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}
