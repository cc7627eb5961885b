package domain

import (
	"fmt"
	"strings"
	"time"

	sharedDomain "github.com/talentforge/hirespark/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	// MaxInFlightTasksPerOwner caps how many tasks an owner may have in
	// QUEUED or PROCESSING at once.
	MaxInFlightTasksPerOwner = 3

	maxFileNameLen    = 255
	maxContentTypeLen = 120
	maxTargetRoleLen  = 140
	maxErrorLen       = 2000
)

// TaskStatus is the lifecycle state of a score task.
type TaskStatus string

const (
	TaskQueued     TaskStatus = "QUEUED"
	TaskProcessing TaskStatus = "PROCESSING"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// ScoreResult is the outcome of one scoring attempt.
type ScoreResult struct {
	Score            float64
	Reason           string
	MatchingKeywords string
	ParsedCharacters int
	Source           string
	UsedProfile      bool
}

// ScoreTask is a durable, pollable unit of background scoring work.
// Transitions are monotonic: QUEUED -> PROCESSING -> {COMPLETED|FAILED}.
// The processing log is append-only and ordered by stage sequence.
type ScoreTask struct {
	sharedDomain.BaseAggregateRoot
	ownerID     uuid.UUID
	status      TaskStatus
	fileName    string
	contentType string
	targetRole  string
	result      *ScoreResult
	logs        []string
	errorMsg    string
	startedAt   *time.Time
	completedAt *time.Time
}

// NewScoreTask creates a queued task with an initial log entry. File metadata
// is optional and length-capped.
func NewScoreTask(ownerID uuid.UUID, fileName, contentType, targetRole string) (*ScoreTask, error) {
	if ownerID == uuid.Nil {
		return nil, ErrMissingOwner
	}

	t := &ScoreTask{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		ownerID:           ownerID,
		status:            TaskQueued,
		fileName:          truncate(fileName, maxFileNameLen),
		contentType:       truncate(contentType, maxContentTypeLen),
		targetRole:        truncate(targetRole, maxTargetRoleLen),
		logs:              make([]string, 0, 8),
	}
	t.AppendLog("QUEUED", "resume score task queued")
	return t, nil
}

// Getters
func (t *ScoreTask) OwnerID() uuid.UUID      { return t.ownerID }
func (t *ScoreTask) Status() TaskStatus      { return t.status }
func (t *ScoreTask) FileName() string        { return t.fileName }
func (t *ScoreTask) ContentType() string     { return t.contentType }
func (t *ScoreTask) TargetRole() string      { return t.targetRole }
func (t *ScoreTask) ErrorMessage() string    { return t.errorMsg }
func (t *ScoreTask) StartedAt() *time.Time   { return t.startedAt }
func (t *ScoreTask) CompletedAt() *time.Time { return t.completedAt }

// Result returns the populated result fields, or nil unless COMPLETED.
func (t *ScoreTask) Result() *ScoreResult {
	if t.result == nil {
		return nil
	}
	r := *t.result
	return &r
}

// Logs returns a copy of the ordered processing log.
func (t *ScoreTask) Logs() []string {
	out := make([]string, len(t.logs))
	copy(out, t.logs)
	return out
}

// AppendLog records a pipeline stage as `timestamp | STAGE | detail`.
func (t *ScoreTask) AppendLog(stage, detail string) {
	t.logs = append(t.logs, FormatStageLog(stage, detail))
	t.Touch()
}

// FormatStageLog renders one pipeline stage marker. Synchronous scoring uses
// the same line format without a backing task.
func FormatStageLog(stage, detail string) string {
	return fmt.Sprintf("%s | %s | %s", time.Now().UTC().Format(time.RFC3339), stage, detail)
}

// Start moves the task from QUEUED to PROCESSING.
func (t *ScoreTask) Start() error {
	if t.status.IsTerminal() {
		return ErrTaskTerminal
	}
	if t.status != TaskQueued {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	t.status = TaskProcessing
	t.startedAt = &now
	t.AppendLog("PROCESSING_STARTED", "background resume parsing started")
	return nil
}

// Complete moves the task from PROCESSING to COMPLETED and records the result.
// Any previous error message is cleared.
func (t *ScoreTask) Complete(result ScoreResult) error {
	if t.status.IsTerminal() {
		return ErrTaskTerminal
	}
	if t.status != TaskProcessing {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	r := result
	t.status = TaskCompleted
	t.result = &r
	t.errorMsg = ""
	t.completedAt = &now
	t.Touch()
	t.AddDomainEvent(NewScoreTaskCompleted(t))
	return nil
}

// Fail moves the task from PROCESSING to FAILED. The accumulated log is
// retained; the message is truncated.
func (t *ScoreTask) Fail(message string) error {
	if t.status.IsTerminal() {
		return ErrTaskTerminal
	}
	if t.status != TaskProcessing {
		return ErrInvalidTransition
	}
	if strings.TrimSpace(message) == "" {
		message = "resume score task failed"
	}
	now := time.Now().UTC()
	t.status = TaskFailed
	t.errorMsg = truncate(message, maxErrorLen)
	t.completedAt = &now
	t.AppendLog("FAILED", t.errorMsg)
	t.AddDomainEvent(NewScoreTaskFailed(t))
	return nil
}

// RehydrateScoreTask recreates a task from persisted state without events.
func RehydrateScoreTask(
	id uuid.UUID,
	ownerID uuid.UUID,
	status TaskStatus,
	fileName, contentType, targetRole string,
	result *ScoreResult,
	logs []string,
	errorMsg string,
	startedAt, completedAt *time.Time,
	createdAt, updatedAt time.Time,
) *ScoreTask {
	base := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &ScoreTask{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(base),
		ownerID:           ownerID,
		status:            status,
		fileName:          fileName,
		contentType:       contentType,
		targetRole:        targetRole,
		result:            result,
		logs:              logs,
		errorMsg:          errorMsg,
		startedAt:         startedAt,
		completedAt:       completedAt,
	}
}

// truncate trims a value and caps it at maxChars.
func truncate(value string, maxChars int) string {
	cleaned := strings.TrimSpace(value)
	if len(cleaned) <= maxChars {
		return cleaned
	}
	return cleaned[:maxChars]
}
