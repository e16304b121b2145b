package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultPrompt is appended to the list of postings when no prompt is configured.
const DefaultPrompt = "\n\nWrite a short overview (at most three sentences) of these job postings for a job seeker. Mention notable companies and roles."

// OpenAISummarizer writes the digest introduction with the OpenAI chat API.
type OpenAISummarizer struct {
	client *openai.Client
	prompt string
	// Without an API key the summarizer returns an empty intro
	enabled bool
}

func NewOpenAISummarizer(apiKey, prompt string, logger *slog.Logger) *OpenAISummarizer {
	s := &OpenAISummarizer{
		client: openai.NewClient(apiKey),
		prompt: promptOrDefault(prompt),
	}

	logger.Info("openai summarizer configured", slog.Bool("enabled", apiKey != ""))

	if apiKey != "" {
		s.enabled = true
	}

	return s
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if !s.enabled {
		return "", nil
	}

	request := openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: text + s.prompt,
			},
		},
		MaxTokens:   256,
		Temperature: 0.7,
		TopP:        1,
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return completeSentences(resp.Choices[0].Message.Content), nil
}

// completeSentences drops a trailing sentence cut off by the token limit.
func completeSentences(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasSuffix(raw, ".") {
		return raw
	}

	idx := strings.LastIndex(raw, ".")
	if idx < 0 {
		return raw
	}

	return raw[:idx+1]
}

func promptOrDefault(prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		return DefaultPrompt
	}
	return prompt
}
