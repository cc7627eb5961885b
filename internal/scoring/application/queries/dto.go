package queries

import (
	"time"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/google/uuid"
)

// ScoreResultDTO is the read model for a scoring outcome.
type ScoreResultDTO struct {
	Score            float64 `json:"score"`
	Reason           string  `json:"reason"`
	MatchingKeywords string  `json:"matchingKeywords"`
	ParsedCharacters int     `json:"parsedCharacters"`
	Source           string  `json:"source"`
	UsedProfile      bool    `json:"usedProfile"`
}

// TaskDTO is the read model for a score task.
type TaskDTO struct {
	ID           uuid.UUID       `json:"id"`
	Status       string          `json:"status"`
	FileName     string          `json:"fileName"`
	ContentType  string          `json:"contentType,omitempty"`
	TargetRole   string          `json:"targetRole,omitempty"`
	Result       *ScoreResultDTO `json:"result,omitempty"`
	Logs         []string        `json:"logs"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	StartedAt    *time.Time      `json:"startedAt,omitempty"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
}

// HistoryEntryDTO is the read model for one score history entry.
type HistoryEntryDTO struct {
	ID               uuid.UUID  `json:"id"`
	TaskID           *uuid.UUID `json:"taskId,omitempty"`
	Score            float64    `json:"score"`
	Reason           string     `json:"reason"`
	MatchingKeywords string     `json:"matchingKeywords"`
	ParsedCharacters int        `json:"parsedCharacters"`
	Source           string     `json:"source"`
	UsedProfile      bool       `json:"usedProfile"`
	FileName         string     `json:"fileName"`
	TargetRole       string     `json:"targetRole,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func taskToDTO(task *domain.ScoreTask) TaskDTO {
	dto := TaskDTO{
		ID:           task.ID(),
		Status:       string(task.Status()),
		FileName:     task.FileName(),
		ContentType:  task.ContentType(),
		TargetRole:   task.TargetRole(),
		Logs:         task.Logs(),
		ErrorMessage: task.ErrorMessage(),
		CreatedAt:    task.CreatedAt(),
		StartedAt:    task.StartedAt(),
		CompletedAt:  task.CompletedAt(),
	}
	if r := task.Result(); r != nil {
		dto.Result = &ScoreResultDTO{
			Score:            r.Score,
			Reason:           r.Reason,
			MatchingKeywords: r.MatchingKeywords,
			ParsedCharacters: r.ParsedCharacters,
			Source:           r.Source,
			UsedProfile:      r.UsedProfile,
		}
	}
	return dto
}

func historyToDTO(entry *domain.ScoreHistoryEntry) HistoryEntryDTO {
	r := entry.Result()
	return HistoryEntryDTO{
		ID:               entry.ID(),
		TaskID:           entry.TaskID(),
		Score:            r.Score,
		Reason:           r.Reason,
		MatchingKeywords: r.MatchingKeywords,
		ParsedCharacters: r.ParsedCharacters,
		Source:           r.Source,
		UsedProfile:      r.UsedProfile,
		FileName:         entry.FileName(),
		TargetRole:       entry.TargetRole(),
		CreatedAt:        entry.CreatedAt(),
	}
}
