package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/job-digest/internal/digest"
	"github.com/kovalyov-valentin/job-digest/internal/logging"
	"github.com/kovalyov-valentin/job-digest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type recordingChannel struct {
	name string
	err  error
	sent []digest.Message
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Send(_ context.Context, msg digest.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

type fakeMailer struct {
	err  error
	msgs []*mail.Msg
}

func (f *fakeMailer) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.msgs = append(f.msgs, messages...)
	return f.err
}

type fakeBot struct {
	err  error
	sent []tgbotapi.Chattable
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, b.err
}

func testMessage(n int) digest.Message {
	d := model.Digest{GeneratedAt: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)}
	for i := 0; i < n; i++ {
		d.Matches = append(d.Matches, model.JobMatch{
			Title:     fmt.Sprintf("Junior Analyst #%d", i),
			Link:      fmt.Sprintf("https://x/%d", i),
			Published: model.UnknownPublished,
			Source:    "Startup Jobs",
		})
	}

	msg, err := digest.Render(d)
	if err != nil {
		panic(err)
	}
	return msg
}

func TestDispatcher_Send(t *testing.T) {
	email := &recordingChannel{name: "email"}
	telegram := &recordingChannel{name: "telegram"}

	d := NewDispatcher(logging.Discard(), email, telegram)
	require.NoError(t, d.Send(context.Background(), testMessage(1)))

	assert.Len(t, email.sent, 1)
	assert.Len(t, telegram.sent, 1)
}

func TestDispatcher_FailureIsFatal(t *testing.T) {
	errAuth := errors.New("535 authentication failed")
	email := &recordingChannel{name: "email", err: errAuth}
	telegram := &recordingChannel{name: "telegram"}

	d := NewDispatcher(logging.Discard(), email, telegram)
	err := d.Send(context.Background(), testMessage(1))

	require.ErrorIs(t, err, errAuth)
	assert.Contains(t, err.Error(), "deliver via email")
	assert.Empty(t, telegram.sent)
}

func TestDispatcher_ExtraChannelFailureIsLogged(t *testing.T) {
	email := &recordingChannel{name: "email"}
	telegram := &recordingChannel{name: "telegram", err: errors.New("chat not found")}
	webhook := &recordingChannel{name: "webhook"}

	d := NewDispatcher(logging.Discard(), email, telegram, webhook)
	require.NoError(t, d.Send(context.Background(), testMessage(1)))

	assert.Len(t, email.sent, 1)
	assert.Empty(t, telegram.sent)
	assert.Len(t, webhook.sent, 1)
}

func TestDispatcher_NoChannels(t *testing.T) {
	err := NewDispatcher(logging.Discard(), nil).Send(context.Background(), testMessage(0))
	require.ErrorIs(t, err, ErrNoChannels)
}

func TestNewEmailChannel_Validation(t *testing.T) {
	base := EmailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "bot@example.com",
		To:   []string{"me@example.com"},
	}

	_, err := NewEmailChannel(base)
	require.NoError(t, err)

	noHost := base
	noHost.Host = ""
	_, err = NewEmailChannel(noHost)
	assert.ErrorIs(t, err, ErrNoSMTPServer)

	noTo := base
	noTo.To = nil
	_, err = NewEmailChannel(noTo)
	assert.ErrorIs(t, err, ErrNoRecipients)

	noFrom := base
	noFrom.From = ""
	_, err = NewEmailChannel(noFrom)
	assert.ErrorIs(t, err, ErrNoSender)
}

func TestEmailChannel_Send(t *testing.T) {
	mailer := &fakeMailer{}
	ch := &EmailChannel{
		cfg: EmailConfig{
			Host: "smtp.example.com",
			Port: 587,
			From: "bot@example.com",
			To:   []string{"a@example.com", "b@example.com"},
		},
		client: mailer,
	}

	require.NoError(t, ch.Send(context.Background(), testMessage(2)))
	require.Len(t, mailer.msgs, 1)

	m := mailer.msgs[0]
	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, rcpts)

	from, err := m.GetSender(false)
	require.NoError(t, err)
	assert.Equal(t, "bot@example.com", from)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
	assert.Contains(t, buf.String(), "Daily Job Matches")
}

func TestEmailChannel_SendFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("connection refused")}
	ch := &EmailChannel{
		cfg:    EmailConfig{Host: "smtp.example.com", Port: 587, From: "bot@example.com", To: []string{"a@example.com"}},
		client: mailer,
	}

	err := ch.Send(context.Background(), testMessage(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp.example.com:587")
}

func TestEmailChannel_InvalidSender(t *testing.T) {
	ch := &EmailChannel{
		cfg:    EmailConfig{Host: "smtp.example.com", Port: 587, From: "not an address", To: []string{"a@example.com"}},
		client: &fakeMailer{},
	}

	require.Error(t, ch.Send(context.Background(), testMessage(0)))
}

func TestTelegramChannel_Send(t *testing.T) {
	bot := &fakeBot{}
	ch := &TelegramChannel{bot: bot, chatID: -100123}

	require.NoError(t, ch.Send(context.Background(), testMessage(1)))
	require.Len(t, bot.sent, 1)

	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, msg.ParseMode)
	assert.Contains(t, msg.Text, "[View job](https://x/0)")
}

func TestTelegramChannel_SendFailure(t *testing.T) {
	bot := &fakeBot{err: errors.New("chat not found")}
	ch := &TelegramChannel{bot: bot, chatID: 1}

	err := ch.Send(context.Background(), testMessage(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramChannel_CancelledContext(t *testing.T) {
	bot := &fakeBot{}
	ch := &TelegramChannel{bot: bot, chatID: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, ch.Send(ctx, testMessage(1)), context.Canceled)
	assert.Empty(t, bot.sent)
}

func TestFormatTelegram(t *testing.T) {
	t.Run("empty digest", func(t *testing.T) {
		msg := testMessage(0)
		text := FormatTelegram(msg.Subject, msg.Digest)

		assert.True(t, strings.HasPrefix(text, "*Job Matches — 0 results — 2026\\-10\\-19*"))
		assert.Contains(t, text, "No new matches found in the selected feeds for your keywords\\.")
	})

	t.Run("long digest is capped", func(t *testing.T) {
		msg := testMessage(200)
		text := FormatTelegram(msg.Subject, msg.Digest)

		assert.LessOrEqual(t, utf8.RuneCountInString(text), maxTelegramRunes)
		assert.Contains(t, text, "more in the email digest\\.")
	})
}
