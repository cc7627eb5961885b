package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/talentforge/hirespark/internal/scoring/application/services"
	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/google/uuid"
)

// TaskQueue accepts jobs for background processing.
type TaskQueue interface {
	Enqueue(ctx context.Context, job services.TaskJob) error
}

// SubmitTaskCommand carries one background scoring request.
type SubmitTaskCommand struct {
	OwnerEmail     string
	FileName       string
	ContentType    string
	Data           []byte
	TargetRole     string
	JobDescription string
	Requirements   string
	CoverLetter    string
}

// SubmitTaskResult identifies the accepted task for later polling.
type SubmitTaskResult struct {
	TaskID    uuid.UUID
	Status    domain.TaskStatus
	CreatedAt time.Time
}

// SubmitTaskHandler validates a background scoring request, persists the
// queued task, and hands the payload to the worker pool.
type SubmitTaskHandler struct {
	tasks     domain.TaskRepository
	directory domain.OwnerDirectory
	queue     TaskQueue
	limiter   services.SubscriptionLimiter
	logger    *slog.Logger
}

// NewSubmitTaskHandler creates a SubmitTaskHandler.
func NewSubmitTaskHandler(
	tasks domain.TaskRepository,
	directory domain.OwnerDirectory,
	queue TaskQueue,
	limiter services.SubscriptionLimiter,
	logger *slog.Logger,
) *SubmitTaskHandler {
	return &SubmitTaskHandler{
		tasks:     tasks,
		directory: directory,
		queue:     queue,
		limiter:   limiter,
		logger:    logger,
	}
}

// Handle executes the SubmitTaskCommand. Both the subscription allowance
// and the in-flight cap are enforced at submit time against persisted task
// state, so over-quota or parallel submits beyond the cap are rejected
// before any work is queued.
func (h *SubmitTaskHandler) Handle(ctx context.Context, cmd SubmitTaskCommand) (*SubmitTaskResult, error) {
	if len(cmd.Data) == 0 {
		return nil, domain.ErrMissingFile
	}
	if strings.TrimSpace(cmd.OwnerEmail) == "" {
		return nil, domain.ErrMissingOwner
	}

	owner, err := h.directory.FindByEmail(ctx, cmd.OwnerEmail)
	if err != nil {
		return nil, err
	}

	if owner.IsQuotaGated() && h.limiter != nil {
		if err := h.limiter.CheckAllowance(ctx, owner); err != nil {
			return nil, err
		}
	}

	inFlight, err := h.tasks.CountInFlightByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	if inFlight >= domain.MaxInFlightTasksPerOwner {
		return nil, domain.ErrTaskQuotaExceeded
	}

	task, err := domain.NewScoreTask(owner.ID, cmd.FileName, cmd.ContentType, cmd.TargetRole)
	if err != nil {
		return nil, err
	}
	if err := h.tasks.Save(ctx, task); err != nil {
		return nil, err
	}

	// Snapshot the response fields before handing off. The worker mutates
	// the same task instance, so a read after Enqueue could see PROCESSING
	// or a terminal status instead of the accepted one.
	result := &SubmitTaskResult{
		TaskID:    task.ID(),
		Status:    task.Status(),
		CreatedAt: task.CreatedAt(),
	}

	job := services.TaskJob{
		TaskID:  task.ID(),
		OwnerID: owner.ID,
		Request: services.Request{
			TargetRole:     cmd.TargetRole,
			JobDescription: cmd.JobDescription,
			Requirements:   cmd.Requirements,
			CoverLetter:    cmd.CoverLetter,
		},
		FileName:    cmd.FileName,
		ContentType: cmd.ContentType,
		Data:        cmd.Data,
	}
	if err := h.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	h.logger.Info("score task accepted",
		slog.String("task_id", result.TaskID.String()),
		slog.String("owner_id", owner.ID.String()))

	return result, nil
}
