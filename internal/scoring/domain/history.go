package domain

import (
	"time"

	sharedDomain "github.com/talentforge/hirespark/internal/shared/domain"
	"github.com/google/uuid"
)

// ScoreHistoryEntry is an immutable audit record of one completed scoring
// attempt. Failed attempts are never historized.
type ScoreHistoryEntry struct {
	sharedDomain.BaseEntity
	ownerID    uuid.UUID
	taskID     *uuid.UUID
	result     ScoreResult
	fileName   string
	targetRole string
}

// NewScoreHistoryEntry records a completed scoring attempt. taskID is nil for
// synchronous attempts.
func NewScoreHistoryEntry(ownerID uuid.UUID, taskID *uuid.UUID, result ScoreResult, fileName, targetRole string) (*ScoreHistoryEntry, error) {
	if ownerID == uuid.Nil {
		return nil, ErrMissingOwner
	}
	var linked *uuid.UUID
	if taskID != nil {
		id := *taskID
		linked = &id
	}
	return &ScoreHistoryEntry{
		BaseEntity: sharedDomain.NewBaseEntity(),
		ownerID:    ownerID,
		taskID:     linked,
		result:     result,
		fileName:   truncate(fileName, maxFileNameLen),
		targetRole: truncate(targetRole, maxTargetRoleLen),
	}, nil
}

func (h *ScoreHistoryEntry) OwnerID() uuid.UUID  { return h.ownerID }
func (h *ScoreHistoryEntry) Result() ScoreResult { return h.result }
func (h *ScoreHistoryEntry) FileName() string    { return h.fileName }
func (h *ScoreHistoryEntry) TargetRole() string  { return h.targetRole }

// TaskID returns the originating task id, or nil for synchronous attempts.
func (h *ScoreHistoryEntry) TaskID() *uuid.UUID {
	if h.taskID == nil {
		return nil
	}
	id := *h.taskID
	return &id
}

// RehydrateScoreHistoryEntry recreates an entry from persisted state.
func RehydrateScoreHistoryEntry(
	id uuid.UUID,
	ownerID uuid.UUID,
	taskID *uuid.UUID,
	result ScoreResult,
	fileName, targetRole string,
	createdAt time.Time,
) *ScoreHistoryEntry {
	return &ScoreHistoryEntry{
		BaseEntity: sharedDomain.RehydrateBaseEntity(id, createdAt, createdAt),
		ownerID:    ownerID,
		taskID:     taskID,
		result:     result,
		fileName:   fileName,
		targetRole: targetRole,
	}
}
