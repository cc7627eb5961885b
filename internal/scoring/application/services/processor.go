package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/talentforge/hirespark/internal/scoring/application/extract"
	"github.com/talentforge/hirespark/internal/scoring/domain"
	sharedDomain "github.com/talentforge/hirespark/internal/shared/domain"
)

// SubscriptionLimiter gates scoring attempts against the owner's plan
// allowance. CheckAllowance returns domain.ErrScoreLimitReached when the
// allowance is exhausted.
type SubscriptionLimiter interface {
	CheckAllowance(ctx context.Context, owner domain.Owner) error
	RecordScore(ctx context.Context, owner domain.Owner) error
}

// EventPublisher delivers domain events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event sharedDomain.DomainEvent) error
}

// TaskProcessor executes one queued score task: load, start, gate, extract,
// score, persist. All outcomes land on the task itself; the processor never
// returns errors to the pool.
type TaskProcessor struct {
	tasks        domain.TaskRepository
	history      domain.HistoryRepository
	directory    domain.OwnerDirectory
	extractor    *extract.Extractor
	orchestrator *Orchestrator
	limiter      SubscriptionLimiter
	publisher    EventPublisher
	logger       *slog.Logger
}

// NewTaskProcessor wires a background task processor.
func NewTaskProcessor(
	tasks domain.TaskRepository,
	history domain.HistoryRepository,
	directory domain.OwnerDirectory,
	extractor *extract.Extractor,
	orchestrator *Orchestrator,
	limiter SubscriptionLimiter,
	publisher EventPublisher,
	logger *slog.Logger,
) *TaskProcessor {
	return &TaskProcessor{
		tasks:        tasks,
		history:      history,
		directory:    directory,
		extractor:    extractor,
		orchestrator: orchestrator,
		limiter:      limiter,
		publisher:    publisher,
		logger:       logger,
	}
}

// Process runs one job to a terminal state. A task or owner that vanished
// between enqueue and pickup aborts silently; everything after Start lands
// as COMPLETED or FAILED on the persisted task.
func (p *TaskProcessor) Process(ctx context.Context, job TaskJob) {
	task, err := p.tasks.FindByID(ctx, job.TaskID)
	if err != nil || task == nil {
		p.logger.Warn("queued task no longer exists, skipping",
			slog.String("task_id", job.TaskID.String()))
		return
	}

	owner, err := p.directory.FindByID(ctx, job.OwnerID)
	if err != nil {
		p.logger.Warn("task owner no longer resolvable, skipping",
			slog.String("task_id", job.TaskID.String()),
			slog.String("owner_id", job.OwnerID.String()))
		return
	}

	if err := task.Start(); err != nil {
		p.logger.Warn("task not startable, skipping",
			slog.String("task_id", task.ID().String()),
			slog.String("status", string(task.Status())),
			slog.String("error", err.Error()))
		return
	}
	if err := p.tasks.Save(ctx, task); err != nil {
		p.logger.Error("persisting PROCESSING transition failed",
			slog.String("task_id", task.ID().String()),
			slog.String("error", err.Error()))
		return
	}

	// Allowance may have been consumed by synchronous scores since enqueue.
	if owner.IsQuotaGated() && p.limiter != nil {
		if err := p.limiter.CheckAllowance(ctx, owner); err != nil {
			p.failTask(ctx, task, err.Error())
			return
		}
	}

	resumeText, err := p.extractor.Extract(job.FileName, job.ContentType, job.Data)
	if err != nil {
		if !errors.Is(err, domain.ErrUnreadableDocument) {
			p.failTask(ctx, task, fmt.Sprintf("resume extraction failed: %s", err))
			return
		}
		resumeText = unreadableResumePlaceholder(job.FileName, job.ContentType, len(job.Data))
		task.AppendLog("EXTRACTION_FALLBACK", "no machine-readable text, scoring file metadata only")
	} else {
		task.AppendLog("TEXT_EXTRACTED", fmt.Sprintf("extracted %d characters", len(resumeText)))
	}

	result, err := p.orchestrator.Score(ctx, owner, job.Request, resumeText, task.AppendLog)
	if err != nil {
		p.failTask(ctx, task, fmt.Sprintf("scoring failed: %s", err))
		return
	}

	if err := task.Complete(result); err != nil {
		p.logger.Error("completing task failed",
			slog.String("task_id", task.ID().String()),
			slog.String("error", err.Error()))
		return
	}
	if err := p.tasks.Save(ctx, task); err != nil {
		p.logger.Error("persisting COMPLETED task failed",
			slog.String("task_id", task.ID().String()),
			slog.String("error", err.Error()))
		return
	}

	p.recordHistory(ctx, task, result)
	if owner.IsQuotaGated() && p.limiter != nil {
		if err := p.limiter.RecordScore(ctx, owner); err != nil {
			p.logger.Warn("recording score usage failed",
				slog.String("owner_id", owner.ID.String()),
				slog.String("error", err.Error()))
		}
	}
	p.publishEvents(ctx, task)

	p.logger.Info("score task completed",
		slog.String("task_id", task.ID().String()),
		slog.Float64("score", result.Score))
}

func (p *TaskProcessor) failTask(ctx context.Context, task *domain.ScoreTask, message string) {
	if err := task.Fail(message); err != nil {
		p.logger.Error("failing task rejected",
			slog.String("task_id", task.ID().String()),
			slog.String("error", err.Error()))
		return
	}
	if err := p.tasks.Save(ctx, task); err != nil {
		p.logger.Error("persisting FAILED task failed",
			slog.String("task_id", task.ID().String()),
			slog.String("error", err.Error()))
		return
	}
	p.publishEvents(ctx, task)
	p.logger.Warn("score task failed",
		slog.String("task_id", task.ID().String()),
		slog.String("reason", message))
}

// recordHistory is best-effort: a history write failure never rolls back a
// completed task.
func (p *TaskProcessor) recordHistory(ctx context.Context, task *domain.ScoreTask, result domain.ScoreResult) {
	taskID := task.ID()
	entry, err := domain.NewScoreHistoryEntry(task.OwnerID(), &taskID, result, task.FileName(), task.TargetRole())
	if err != nil {
		p.logger.Error("building history entry failed", slog.String("error", err.Error()))
		return
	}
	if err := p.history.Append(ctx, entry); err != nil {
		p.logger.Error("appending score history failed",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
	}
}

func (p *TaskProcessor) publishEvents(ctx context.Context, task *domain.ScoreTask) {
	if p.publisher == nil {
		return
	}
	for _, event := range task.DomainEvents() {
		if err := p.publisher.Publish(ctx, event); err != nil {
			p.logger.Warn("publishing domain event failed",
				slog.String("routing_key", event.RoutingKey()),
				slog.String("error", err.Error()))
		}
	}
	task.ClearDomainEvents()
}

// unreadableResumePlaceholder substitutes file metadata for resume text so a
// binary-only upload still produces a bounded score instead of a failure.
func unreadableResumePlaceholder(fileName, contentType string, size int) string {
	if fileName == "" {
		fileName = "uploaded document"
	}
	if contentType == "" {
		contentType = "unknown type"
	}
	return fmt.Sprintf("Uploaded document: %s (%s, %d bytes). The document text could not be extracted.", fileName, contentType, size)
}
