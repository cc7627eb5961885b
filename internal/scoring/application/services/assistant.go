package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talentforge/hirespark/internal/scoring/domain"
)

const (
	maxChatMessageChars = 4000

	// biasAdvisoryFallback is returned when the model backend is down. Bias
	// review degrades to a generic advisory rather than an error.
	biasAdvisoryFallback = "Automated bias review is temporarily unavailable. " +
		"Please manually check the text for gendered wording, age references, " +
		"and requirements not related to job performance."
)

// AssistantModel completes a free-form prompt. It is the non-scoring surface
// of the model backend.
type AssistantModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Assistant answers recruiter chat questions and reviews job text for biased
// wording.
type Assistant struct {
	model   AssistantModel
	logger  *slog.Logger
	timeout time.Duration
}

// NewAssistant wires the assistant surface. timeout bounds each model call.
func NewAssistant(model AssistantModel, logger *slog.Logger, timeout time.Duration) *Assistant {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Assistant{model: model, logger: logger, timeout: timeout}
}

// ChatReply answers one hiring-related question. Unlike scoring there is no
// deterministic fallback; a dead backend surfaces as
// domain.ErrAssistantUnavailable.
func (a *Assistant) ChatReply(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: empty message", domain.ErrAssistantUnavailable)
	}
	if len(message) > maxChatMessageChars {
		message = message[:maxChatMessageChars]
	}

	prompt := fmt.Sprintf(
		"You are a hiring assistant for a recruiting platform. Answer concisely and "+
			"practically. Question:\n%s", message)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.model.Complete(callCtx, prompt)
	if err != nil {
		a.logger.Warn("assistant chat call failed", slog.String("error", err.Error()))
		return "", domain.ErrAssistantUnavailable
	}
	reply = strings.TrimSpace(stripCodeFences(reply))
	if reply == "" {
		return "", domain.ErrAssistantUnavailable
	}
	return reply, nil
}

// BiasCheck reviews job-post text for biased or exclusionary wording. A
// failing backend degrades to a fixed manual-review advisory.
func (a *Assistant) BiasCheck(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return biasAdvisoryFallback
	}
	if len(text) > maxContextChars {
		text = text[:maxContextChars]
	}

	prompt := fmt.Sprintf(
		"Review the following job description for biased, exclusionary, or "+
			"discriminatory wording (gender, age, origin, disability, appearance). "+
			"List the problematic phrases and suggest neutral alternatives. If the "+
			"text is fine, say so briefly.\n\nText:\n%s", text)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	advisory, err := a.model.Complete(callCtx, prompt)
	if err != nil {
		a.logger.Warn("bias check call failed", slog.String("error", err.Error()))
		return biasAdvisoryFallback
	}
	advisory = strings.TrimSpace(stripCodeFences(advisory))
	if advisory == "" {
		return biasAdvisoryFallback
	}
	return advisory
}
