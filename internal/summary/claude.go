package summary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeSummarizer writes the digest introduction with the Anthropic messages API.
type ClaudeSummarizer struct {
	client  anthropic.Client
	prompt  string
	model   anthropic.Model
	enabled bool
}

func NewClaudeSummarizer(apiKey, prompt string, logger *slog.Logger, opts ...option.RequestOption) *ClaudeSummarizer {
	logger.Info("claude summarizer configured", slog.Bool("enabled", apiKey != ""))

	return &ClaudeSummarizer{
		client:  anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		prompt:  promptOrDefault(prompt),
		model:   anthropic.ModelClaudeSonnet4_5_20250929,
		enabled: apiKey != "",
	}
}

func (s *ClaudeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if !s.enabled {
		return "", nil
	}

	message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text + s.prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	if len(message.Content) == 0 {
		return "", ErrEmptyResponse
	}

	block, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", ErrEmptyResponse
	}

	return completeSentences(block.Text), nil
}
