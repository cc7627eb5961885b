package queries

import (
	"context"
	"strings"

	"github.com/talentforge/hirespark/internal/scoring/domain"
)

// maxTaskPage caps how many tasks a listing returns, newest first.
const maxTaskPage = 50

// ListTasksQuery contains the parameters for listing an owner's tasks.
type ListTasksQuery struct {
	OwnerEmail string
}

// ListTasksHandler handles the ListTasksQuery.
type ListTasksHandler struct {
	tasks     domain.TaskRepository
	directory domain.OwnerDirectory
}

// NewListTasksHandler creates a new ListTasksHandler.
func NewListTasksHandler(tasks domain.TaskRepository, directory domain.OwnerDirectory) *ListTasksHandler {
	return &ListTasksHandler{tasks: tasks, directory: directory}
}

// Handle executes the ListTasksQuery.
func (h *ListTasksHandler) Handle(ctx context.Context, query ListTasksQuery) ([]TaskDTO, error) {
	if strings.TrimSpace(query.OwnerEmail) == "" {
		return nil, domain.ErrMissingOwner
	}
	owner, err := h.directory.FindByEmail(ctx, query.OwnerEmail)
	if err != nil {
		return nil, err
	}

	tasks, err := h.tasks.ListByOwner(ctx, owner.ID, maxTaskPage)
	if err != nil {
		return nil, err
	}

	dtos := make([]TaskDTO, 0, len(tasks))
	for _, task := range tasks {
		dtos = append(dtos, taskToDTO(task))
	}
	return dtos, nil
}
