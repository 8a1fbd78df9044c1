package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parley/parley/internal/model"
	openai "github.com/sashabaranov/go-openai"
)

// systemPrompt is prepended to every completion request.
const systemPrompt = "You are a helpful assistant."

// Config holds completion client settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Client is a Completer backed by an OpenAI-compatible chat endpoint.
type Client struct {
	client       *openai.Client
	streamClient *openai.Client
	model        string
	maxTokens    int
	temperature  float32
}

// NewClient creates a completion client. An http.Client timeout would
// cut off a long-lived fragment stream, so the stream path gets its own
// unbounded client and relies on context cancellation instead.
func NewClient(cfg Config) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	streamConfig := clientConfig
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		client:       openai.NewClientWithConfig(clientConfig),
		streamClient: openai.NewClientWithConfig(streamConfig),
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
	}
}

// buildRequest converts a transcript into a chat completion request.
// The system prompt always leads, followed by the transcript in order.
func (c *Client) buildRequest(messages []*model.Message) openai.ChatCompletionRequest {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
}

// Complete requests the full reply in one piece.
func (c *Client) Complete(ctx context.Context, messages []*model.Message) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(messages))
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", ErrEmptyCompletion
	}

	return content, nil
}

// StreamCompletion requests the reply as a fragment stream.
func (c *Client) StreamCompletion(ctx context.Context, messages []*model.Message) (Stream, error) {
	req := c.buildRequest(messages)
	req.Stream = true

	stream, err := c.streamClient.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("completion stream failed: %w", err)
	}

	return &openaiStream{stream: stream}, nil
}

// openaiStream adapts the upstream SSE stream, skipping empty deltas.
type openaiStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("completion stream recv: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}
