package persistence

import (
	"context"
	"time"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresHistoryRepository implements domain.HistoryRepository using
// PostgreSQL. Entries are insert-only.
type PostgresHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresHistoryRepository creates a new PostgreSQL history repository.
func NewPostgresHistoryRepository(pool *pgxpool.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{pool: pool}
}

// Append inserts one history entry. Re-appending the same entry is a no-op.
func (r *PostgresHistoryRepository) Append(ctx context.Context, entry *domain.ScoreHistoryEntry) error {
	query := `
		INSERT INTO score_history (
			id, owner_id, task_id, score, reason, matching_keywords,
			parsed_characters, source, used_profile, file_name, target_role, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	res := entry.Result()
	_, err := r.pool.Exec(ctx, query,
		entry.ID(),
		entry.OwnerID(),
		entry.TaskID(),
		res.Score,
		res.Reason,
		res.MatchingKeywords,
		res.ParsedCharacters,
		res.Source,
		res.UsedProfile,
		entry.FileName(),
		entry.TargetRole(),
		entry.CreatedAt(),
	)
	return err
}

// ListByOwner retrieves an owner's history entries, newest first.
func (r *PostgresHistoryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.ScoreHistoryEntry, error) {
	query := `
		SELECT id, owner_id, task_id, score, reason, matching_keywords,
		       parsed_characters, source, used_profile, file_name, target_role, created_at
		FROM score_history
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.ScoreHistoryEntry, 0)
	for rows.Next() {
		var (
			id, owner  uuid.UUID
			taskID     *uuid.UUID
			result     domain.ScoreResult
			fileName   string
			targetRole string
			createdAt  time.Time
		)
		err := rows.Scan(
			&id,
			&owner,
			&taskID,
			&result.Score,
			&result.Reason,
			&result.MatchingKeywords,
			&result.ParsedCharacters,
			&result.Source,
			&result.UsedProfile,
			&fileName,
			&targetRole,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.RehydrateScoreHistoryEntry(
			id, owner, taskID, result, fileName, targetRole, createdAt,
		))
	}
	return entries, rows.Err()
}
