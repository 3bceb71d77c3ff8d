// Package llmprovider adapts an OpenAI-compatible chat completion API to the
// chat.Provider boundary.
package llmprovider

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"tramway-server/internal/config"
	"tramway-server/internal/domain/chat"
	"tramway-server/internal/domain/timeline"
)

// Client implements the chat.Provider interface.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a go-openai backed client against cfg.LLMBaseURL.
func NewClient(cfg *config.Config) *Client {
	clientConfig := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientConfig.BaseURL = cfg.LLMBaseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(clientConfig),
		model: cfg.LLMModel,
	}
}

// StreamReply opens a streaming chat completion for the resolved history.
func (c *Client) StreamReply(ctx context.Context, history []chat.Message) (chat.Stream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    roleFor(m.Role),
			Content: m.Text,
		})
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat completion stream: %w", err)
	}
	return &openaiStream{stream: stream}, nil
}

var _ chat.Provider = (*Client)(nil)

func roleFor(role timeline.MessageRole) string {
	if role == timeline.RoleAssistant {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}

// openaiStream adapts the go-openai stream to chat.Stream, skipping chunks
// with no content delta.
type openaiStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			if err == io.EOF {
				return "", io.EOF
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}
