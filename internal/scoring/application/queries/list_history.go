package queries

import (
	"context"
	"strings"

	"github.com/talentforge/hirespark/internal/scoring/domain"
)

// maxHistoryPage caps how many history entries a listing returns, newest
// first.
const maxHistoryPage = 100

// ListHistoryQuery contains the parameters for listing an owner's score
// history.
type ListHistoryQuery struct {
	OwnerEmail string
}

// ListHistoryHandler handles the ListHistoryQuery.
type ListHistoryHandler struct {
	history   domain.HistoryRepository
	directory domain.OwnerDirectory
}

// NewListHistoryHandler creates a new ListHistoryHandler.
func NewListHistoryHandler(history domain.HistoryRepository, directory domain.OwnerDirectory) *ListHistoryHandler {
	return &ListHistoryHandler{history: history, directory: directory}
}

// Handle executes the ListHistoryQuery.
func (h *ListHistoryHandler) Handle(ctx context.Context, query ListHistoryQuery) ([]HistoryEntryDTO, error) {
	if strings.TrimSpace(query.OwnerEmail) == "" {
		return nil, domain.ErrMissingOwner
	}
	owner, err := h.directory.FindByEmail(ctx, query.OwnerEmail)
	if err != nil {
		return nil, err
	}

	entries, err := h.history.ListByOwner(ctx, owner.ID, maxHistoryPage)
	if err != nil {
		return nil, err
	}

	dtos := make([]HistoryEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, historyToDTO(entry))
	}
	return dtos, nil
}
