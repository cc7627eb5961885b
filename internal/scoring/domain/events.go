package domain

import (
	sharedDomain "github.com/talentforge/hirespark/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateTypeScoreTask = "score_task"

// ScoreTaskCompleted is raised when a background task finishes successfully.
type ScoreTaskCompleted struct {
	sharedDomain.BaseEvent
	OwnerID uuid.UUID
	Score   float64
}

// NewScoreTaskCompleted creates a ScoreTaskCompleted event.
func NewScoreTaskCompleted(t *ScoreTask) *ScoreTaskCompleted {
	var score float64
	if r := t.Result(); r != nil {
		score = r.Score
	}
	return &ScoreTaskCompleted{
		BaseEvent: sharedDomain.NewBaseEvent(t.ID(), aggregateTypeScoreTask, "scoring.task.completed"),
		OwnerID:   t.OwnerID(),
		Score:     score,
	}
}

// ScoreTaskFailed is raised when a background task fails.
type ScoreTaskFailed struct {
	sharedDomain.BaseEvent
	OwnerID uuid.UUID
	Reason  string
}

// NewScoreTaskFailed creates a ScoreTaskFailed event.
func NewScoreTaskFailed(t *ScoreTask) *ScoreTaskFailed {
	return &ScoreTaskFailed{
		BaseEvent: sharedDomain.NewBaseEvent(t.ID(), aggregateTypeScoreTask, "scoring.task.failed"),
		OwnerID:   t.OwnerID(),
		Reason:    t.ErrorMessage(),
	}
}
