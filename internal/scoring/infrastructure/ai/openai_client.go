package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sony/gobreaker/v2"
)

const scoreSystemPrompt = `You are a resume screening assistant. Compare the candidate material against the job context and respond with a single JSON object only, no prose and no markdown, in this shape:
{"score": <number 0-100>, "reasoning": "<2-4 sentence explanation>", "skills": ["<matched keyword>", ...]}`

// ErrModelUnavailable is returned when the backend is unreachable or the
// breaker is open.
var ErrModelUnavailable = errors.New("model backend unavailable")

// OpenAIClient talks to an OpenAI-compatible chat completion endpoint. With
// a local base URL it drives Ollama's compatibility API unchanged. It
// implements both the scoring and the assistant model surfaces.
type OpenAIClient struct {
	client  openai.Client
	model   string
	breaker *gobreaker.CircuitBreaker[string]
	logger  *slog.Logger
}

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewOpenAIClient creates a client with circuit breaker protection. Five
// consecutive failures open the breaker; it half-opens after 30 seconds.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	opts := make([]option.RequestOption, 0, 2)
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	settings := gobreaker.Settings{
		Name:    "openai-chat",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		logger:  logger,
	}
}

// ScoreResume asks the model for a JSON score object and returns the raw
// response text.
func (c *OpenAIClient) ScoreResume(ctx context.Context, jobContext, candidateContext string) (string, error) {
	prompt := fmt.Sprintf("Job Context:\n%s\n\nCandidate Material:\n%s", jobContext, candidateContext)
	return c.complete(ctx, scoreSystemPrompt, prompt)
}

// Complete answers a free-form prompt.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, "", prompt)
}

func (c *OpenAIClient) complete(ctx context.Context, system, prompt string) (string, error) {
	raw, err := c.breaker.Execute(func() (string, error) {
		messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
		if system != "" {
			messages = append(messages, openai.SystemMessage(system))
		}
		messages = append(messages, openai.UserMessage(prompt))

		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:       openai.ChatModel(c.model),
			Messages:    messages,
			Temperature: openai.Float(0.2),
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("chat completion returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: circuit open", ErrModelUnavailable)
		}
		return "", fmt.Errorf("%w: %s", ErrModelUnavailable, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty response", ErrModelUnavailable)
	}
	return raw, nil
}
