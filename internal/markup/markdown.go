package markup

import (
	"strings"
	"unicode/utf8"
)

var replacer = strings.NewReplacer(
	"\\", "\\\\",
	"-", "\\-",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeForMarkdown escapes Telegram MarkdownV2 special characters.
func EscapeForMarkdown(src string) string {
	return replacer.Replace(src)
}

// linkReplacer escapes the characters MarkdownV2 reserves inside (...) of inline links.
var linkReplacer = strings.NewReplacer("\\", "\\\\", ")", "\\)")

// Link renders an inline MarkdownV2 link with an escaped label.
func Link(label, url string) string {
	return "[" + EscapeForMarkdown(label) + "](" + linkReplacer.Replace(url) + ")"
}

// Truncate cuts s to at most limit runes, never splitting an escape sequence.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)[:limit]
	// A trailing lone backslash would escape whatever follows it
	trailing := 0
	for i := len(runes) - 1; i >= 0 && runes[i] == '\\'; i-- {
		trailing++
	}
	if trailing%2 == 1 {
		runes = runes[:len(runes)-1]
	}

	return string(runes)
}
