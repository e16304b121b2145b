package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/kovalyov-valentin/job-digest/internal/digest"
	"github.com/wneessen/go-mail"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	// Bounds dialing and the whole SMTP session
	Timeout time.Duration
}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailChannel submits the HTML digest over SMTP. STARTTLS is mandatory and
// happens before authentication.
type EmailChannel struct {
	cfg    EmailConfig
	client mailSender
}

func NewEmailChannel(cfg EmailConfig) (*EmailChannel, error) {
	if cfg.Host == "" {
		return nil, ErrNoSMTPServer
	}
	if len(cfg.To) == 0 {
		return nil, ErrNoRecipients
	}
	if cfg.From == "" {
		return nil, ErrNoSender
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &EmailChannel{cfg: cfg, client: client}, nil
}

func (c *EmailChannel) Name() string {
	return "email"
}

func (c *EmailChannel) Send(ctx context.Context, msg digest.Message) error {
	m, err := c.newMessage(msg)
	if err != nil {
		return err
	}

	if err := c.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("submit mail to %s:%d: %w", c.cfg.Host, c.cfg.Port, err)
	}

	return nil
}

func (c *EmailChannel) newMessage(msg digest.Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if err := m.From(c.cfg.From); err != nil {
		return nil, fmt.Errorf("set sender %q: %w", c.cfg.From, err)
	}
	if err := m.To(c.cfg.To...); err != nil {
		return nil, fmt.Errorf("set recipients: %w", err)
	}

	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	return m, nil
}
