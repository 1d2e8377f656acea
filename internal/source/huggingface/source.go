package huggingface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"tutorial_finder/internal/domain"
)

const SourceID = "huggingface"

// Config holds description backend configuration.
type Config struct {
	BaseURL     string
	Model       string
	Token       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Source calls a vision-capable chat completion endpoint through the
// OpenAI-compatible router.
type Source struct {
	client      *openai.Client
	model       string
	token       string
	maxTokens   int
	temperature float32
	logger      *slog.Logger
}

// New creates a new description backend client.
func New(cfg Config, logger *slog.Logger) *Source {
	clientConfig := openai.DefaultConfig(cfg.Token)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
	}

	return &Source{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		token:       cfg.Token,
		maxTokens:   cfg.MaxTokens,
		temperature: wireTemperature(cfg.Temperature),
		logger:      logger.With("source", SourceID),
	}
}

// Ready fails when no token is configured.
func (s *Source) Ready() error {
	if s.token == "" {
		return domain.ErrMissingCredential
	}
	return nil
}

// Describe sends the image and instruction as a single user message and
// returns the model's text. It never touches the network without a token.
func (s *Source) Describe(ctx context.Context, image domain.PortableImage, instruction string) (string, error) {
	if err := s.Ready(); err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: image.URI},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: instruction,
					},
				},
			},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}

	s.logger.Debug("requesting description",
		"model", s.model,
		"embedded_image", image.Embedded,
		"max_tokens", s.maxTokens,
	)

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", backendError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", domain.ErrBackend)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func backendError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: unexpected status: %d (%s)", domain.ErrBackend, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: unexpected status: %d", domain.ErrBackend, reqErr.HTTPStatusCode)
	}

	return fmt.Errorf("%w: chat completion: %w", domain.ErrBackend, err)
}

// wireTemperature maps an explicit zero to the smallest positive float32, since
// the request omits a zero temperature and the backend would apply its own
// default instead.
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
