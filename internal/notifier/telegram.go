package notifier

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/job-digest/internal/digest"
	"github.com/kovalyov-valentin/job-digest/internal/markup"
	"github.com/kovalyov-valentin/job-digest/internal/model"
)

// Telegram rejects longer messages.
const maxTelegramRunes = 4096

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramChannel posts a compact version of the digest to a chat or channel.
type TelegramChannel struct {
	bot    botSender
	chatID int64
}

func NewTelegramChannel(bot *tgbotapi.BotAPI, chatID int64) *TelegramChannel {
	return &TelegramChannel{bot: bot, chatID: chatID}
}

func (c *TelegramChannel) Name() string {
	return "telegram"
}

func (c *TelegramChannel) Send(ctx context.Context, msg digest.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reply := tgbotapi.NewMessage(c.chatID, FormatTelegram(msg.Subject, msg.Digest))
	reply.ParseMode = tgbotapi.ModeMarkdownV2
	reply.DisableWebPagePreview = true

	if _, err := c.bot.Send(reply); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}

// FormatTelegram renders the digest as MarkdownV2. Entries that do not fit
// into one message are counted in a trailing line instead.
func FormatTelegram(subject string, d model.Digest) string {
	var b strings.Builder
	b.WriteString("*" + markup.EscapeForMarkdown(subject) + "*")

	if d.Intro != "" {
		b.WriteString("\n\n" + markup.EscapeForMarkdown(d.Intro))
	}

	if len(d.Matches) == 0 {
		b.WriteString("\n\n" + markup.EscapeForMarkdown(digest.NoMatchesNotice))
		return markup.Truncate(b.String(), maxTelegramRunes)
	}

	// Room for the "and N more" line
	const reserve = 64

	for i, m := range d.Matches {
		entry := formatEntry(m)
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(entry) > maxTelegramRunes-reserve {
			b.WriteString("\n\n" + markup.EscapeForMarkdown(fmt.Sprintf("…and %d more in the email digest.", len(d.Matches)-i)))
			break
		}
		b.WriteString(entry)
	}

	return markup.Truncate(b.String(), maxTelegramRunes)
}

func formatEntry(m model.JobMatch) string {
	const entryFormat = "\n\n*%s*\n_%s_\n%s"

	footer := markup.EscapeForMarkdown(m.Published)
	if m.Link != "" {
		footer = markup.Link("View job", m.Link) + " · " + footer
	}

	return fmt.Sprintf(entryFormat,
		markup.EscapeForMarkdown(m.Title),
		markup.EscapeForMarkdown(m.Source),
		footer,
	)
}
