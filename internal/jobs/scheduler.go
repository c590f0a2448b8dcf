package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// TokenSweeper clears lifecycle tokens whose expiry has passed.
type TokenSweeper interface {
	ClearExpiredTokens(ctx context.Context, nowMs int64) (int64, error)
}

// Scheduler runs periodic housekeeping. Expired tokens are already rejected
// on use; the sweep only keeps stale values out of the table.
type Scheduler struct {
	cron    *cron.Cron
	tokens  TokenSweeper
	spec    string
	now     func() time.Time
	timeout time.Duration
	log     zerolog.Logger
}

// NewScheduler takes a six-field cron spec (seconds first). An empty spec
// disables the sweep.
func NewScheduler(tokens TokenSweeper, spec string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		tokens:  tokens,
		spec:    spec,
		now:     time.Now,
		timeout: 30 * time.Second,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if s.tokens == nil || s.spec == "" {
		s.log.Info().Msg("token sweep disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.sweepTokens); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running job to finish, up to five seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) sweepTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.SweepOnce(ctx); err != nil {
		s.log.Error().Err(err).Msg("token sweep failed")
	}
}

// SweepOnce runs a single sweep and returns the number of rows touched.
func (s *Scheduler) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.tokens.ClearExpiredTokens(ctx, s.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("cleared", n).Msg("expired tokens cleared")
	}
	return n, nil
}
