package domain

import (
	"context"

	"github.com/google/uuid"
)

// TaskRepository persists score tasks.
type TaskRepository interface {
	Save(ctx context.Context, task *ScoreTask) error
	FindByID(ctx context.Context, id uuid.UUID) (*ScoreTask, error)
	FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*ScoreTask, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*ScoreTask, error)
	CountInFlightByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
}

// HistoryRepository persists score history entries. Entries are append-only.
type HistoryRepository interface {
	Append(ctx context.Context, entry *ScoreHistoryEntry) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*ScoreHistoryEntry, error)
}

// ApplicantRepository reads and updates applicant profiles.
type ApplicantRepository interface {
	FindByEmail(ctx context.Context, email string) (*Applicant, error)
	Save(ctx context.Context, applicant *Applicant) error
}

// OwnerDirectory resolves owner identities. Owner records are managed by the
// surrounding application, not this pipeline.
type OwnerDirectory interface {
	FindByEmail(ctx context.Context, email string) (Owner, error)
	FindByID(ctx context.Context, id uuid.UUID) (Owner, error)
}
