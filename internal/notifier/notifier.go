package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kovalyov-valentin/job-digest/internal/digest"
)

var (
	ErrNoChannels   = errors.New("no delivery channels configured")
	ErrNoSMTPServer = errors.New("smtp server is not configured")
	ErrNoRecipients = errors.New("no recipient addresses configured")
	ErrNoSender     = errors.New("no sender address configured")
)

// Channel delivers a rendered digest somewhere.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg digest.Message) error
}

// Dispatcher sends a digest through a primary channel and then through any
// extra channels. Only a primary failure is returned; once the primary has
// delivered, the digest counts as sent and extra channel failures are logged.
// Nothing is retried.
type Dispatcher struct {
	primary Channel
	extra   []Channel
	logger  *slog.Logger
}

func NewDispatcher(logger *slog.Logger, primary Channel, extra ...Channel) *Dispatcher {
	return &Dispatcher{
		primary: primary,
		extra:   extra,
		logger:  logger,
	}
}

func (d *Dispatcher) Send(ctx context.Context, msg digest.Message) error {
	if d.primary == nil {
		return ErrNoChannels
	}

	if err := d.primary.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver via %s: %w", d.primary.Name(), err)
	}
	d.delivered(d.primary, msg)

	for _, ch := range d.extra {
		if err := ch.Send(ctx, msg); err != nil {
			d.logger.Warn("failed to deliver digest",
				slog.String("channel", ch.Name()),
				slog.Any("error", err))
			continue
		}
		d.delivered(ch, msg)
	}

	return nil
}

func (d *Dispatcher) delivered(ch Channel, msg digest.Message) {
	d.logger.Info("digest delivered",
		slog.String("channel", ch.Name()),
		slog.Int("matches", len(msg.Digest.Matches)))
}
