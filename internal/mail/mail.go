// Package mail delivers account lifecycle notifications. Handlers talk to
// the Notifier port; the transport behind it is chosen by configuration.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rutas/api/internal/config"
)

// ErrDisabled is returned by the no-op transport so callers can report a
// skipped send instead of a failed one.
var ErrDisabled = errors.New("mail transport not configured")

type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NewNotifier picks the transport named by cfg.Transport. queue must be
// non-nil when the transport is "queue".
func NewNotifier(cfg config.MailConfig, queue Notifier, log zerolog.Logger) (Notifier, error) {
	switch cfg.Transport {
	case config.MailTransportSMTP:
		if cfg.Host == "" {
			log.Warn().Msg("mail.host empty, outbound mail disabled")
			return Disabled{}, nil
		}
		return NewSMTPMailer(cfg), nil
	case config.MailTransportQueue:
		if queue == nil {
			return nil, errors.New("queue transport requires a queue producer")
		}
		return queue, nil
	case config.MailTransportNone, "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unsupported mail transport %q", cfg.Transport)
	}
}

type Disabled struct{}

func (Disabled) Send(context.Context, Message) error {
	return ErrDisabled
}
