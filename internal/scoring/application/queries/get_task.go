package queries

import (
	"context"
	"strings"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/google/uuid"
)

// GetTaskQuery contains the parameters for fetching a single score task.
type GetTaskQuery struct {
	TaskID     uuid.UUID
	OwnerEmail string
}

// GetTaskHandler handles the GetTaskQuery.
type GetTaskHandler struct {
	tasks     domain.TaskRepository
	directory domain.OwnerDirectory
}

// NewGetTaskHandler creates a new GetTaskHandler.
func NewGetTaskHandler(tasks domain.TaskRepository, directory domain.OwnerDirectory) *GetTaskHandler {
	return &GetTaskHandler{tasks: tasks, directory: directory}
}

// Handle executes the GetTaskQuery. Non-admin owners only see their own
// tasks; another owner's task reads as not found.
func (h *GetTaskHandler) Handle(ctx context.Context, query GetTaskQuery) (*TaskDTO, error) {
	if strings.TrimSpace(query.OwnerEmail) == "" {
		return nil, domain.ErrMissingOwner
	}
	owner, err := h.directory.FindByEmail(ctx, query.OwnerEmail)
	if err != nil {
		return nil, err
	}

	var task *domain.ScoreTask
	if owner.IsAdmin() {
		task, err = h.tasks.FindByID(ctx, query.TaskID)
	} else {
		task, err = h.tasks.FindByIDAndOwner(ctx, query.TaskID, owner.ID)
	}
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	dto := taskToDTO(task)
	return &dto, nil
}
