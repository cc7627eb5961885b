package domain

import "errors"

var (
	// ErrMissingFile is returned when a scoring request carries no resume bytes.
	ErrMissingFile = errors.New("resume file is required")

	// ErrMissingOwner is returned when the requesting identity is absent.
	ErrMissingOwner = errors.New("authenticated owner email is required")

	// ErrOwnerNotFound is returned when the owner identity cannot be resolved.
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrTaskNotFound is returned when a task does not exist or is not visible
	// to the requesting owner.
	ErrTaskNotFound = errors.New("score task not found")

	// ErrTaskQuotaExceeded is returned when an owner already has the maximum
	// number of tasks queued or processing.
	ErrTaskQuotaExceeded = errors.New("too many score tasks in flight")

	// ErrScoreLimitReached is returned by the subscription collaborator when
	// the owner has exhausted their scoring allowance.
	ErrScoreLimitReached = errors.New("resume score limit reached for current plan")

	// ErrUnreadableDocument is returned when every extraction strategy
	// produced no text.
	ErrUnreadableDocument = errors.New("document contains no machine-readable text")

	// ErrAssistantUnavailable is returned when the chat assistant cannot reach
	// the model backend. Scoring paths never surface this; they fall back.
	ErrAssistantUnavailable = errors.New("assistant service unavailable")

	// ErrTaskTerminal is returned on any attempt to transition a task that is
	// already COMPLETED or FAILED.
	ErrTaskTerminal = errors.New("score task is already terminal")

	// ErrInvalidTransition is returned when a status transition would skip a
	// state in QUEUED -> PROCESSING -> {COMPLETED|FAILED}.
	ErrInvalidTransition = errors.New("invalid score task status transition")
)
