package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"rutas/api/internal/mail"
)

// Processor delivers queued mail through an outbound transport.
type Processor struct {
	mailer mail.Notifier
	logger zerolog.Logger
}

func NewProcessor(mailer mail.Notifier, logger zerolog.Logger) *Processor {
	return &Processor{
		mailer: mailer,
		logger: logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	kind, _ := msg.Values["type"].(string)
	switch kind {
	case "mail":
		return p.handleMail(ctx, msg)
	default:
		// acknowledged so an unknown entry does not block the group
		p.logger.Warn().Str("type", kind).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleMail(ctx context.Context, msg redis.XMessage) error {
	id, message, err := mail.DecodeValues(msg.Values)
	if err != nil {
		p.logger.Error().Err(err).Str("message_id", msg.ID).Msg("malformed mail task dropped")
		return nil
	}

	if err := p.mailer.Send(ctx, message); err != nil {
		return fmt.Errorf("deliver mail %s: %w", id, err)
	}

	p.logger.Info().
		Str("mail_id", id).
		Str("subject", message.Subject).
		Msg("mail delivered")
	return nil
}
