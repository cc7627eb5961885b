package persistence

import (
	"context"
	"database/sql"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/google/uuid"
)

// SQLiteHistoryRepository implements domain.HistoryRepository using SQLite.
type SQLiteHistoryRepository struct {
	dbConn *sql.DB
}

// NewSQLiteHistoryRepository creates a new SQLite history repository.
func NewSQLiteHistoryRepository(dbConn *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{dbConn: dbConn}
}

// Append inserts one history entry. Re-appending the same entry is a no-op.
func (r *SQLiteHistoryRepository) Append(ctx context.Context, entry *domain.ScoreHistoryEntry) error {
	query := `
		INSERT INTO score_history (
			id, owner_id, task_id, score, reason, matching_keywords,
			parsed_characters, source, used_profile, file_name, target_role, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`

	var taskID sql.NullString
	if id := entry.TaskID(); id != nil {
		taskID = sql.NullString{String: id.String(), Valid: true}
	}

	res := entry.Result()
	_, err := r.dbConn.ExecContext(ctx, query,
		entry.ID().String(),
		entry.OwnerID().String(),
		taskID,
		res.Score,
		res.Reason,
		res.MatchingKeywords,
		res.ParsedCharacters,
		res.Source,
		boolToInt64(res.UsedProfile),
		entry.FileName(),
		entry.TargetRole(),
		entry.CreatedAt().Format(sqliteTimeLayout),
	)
	return err
}

// ListByOwner retrieves an owner's history entries, newest first.
func (r *SQLiteHistoryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.ScoreHistoryEntry, error) {
	query := `
		SELECT id, owner_id, task_id, score, reason, matching_keywords,
		       parsed_characters, source, used_profile, file_name, target_role, created_at
		FROM score_history
		WHERE owner_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.dbConn.QueryContext(ctx, query, ownerID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.ScoreHistoryEntry, 0)
	for rows.Next() {
		var (
			id, owner, fileName, role, createdAt string
			taskID                               sql.NullString
			result                               domain.ScoreResult
			usedProfile                          int64
		)
		err := rows.Scan(
			&id, &owner, &taskID,
			&result.Score, &result.Reason, &result.MatchingKeywords,
			&result.ParsedCharacters, &result.Source, &usedProfile,
			&fileName, &role, &createdAt,
		)
		if err != nil {
			return nil, err
		}
		result.UsedProfile = usedProfile != 0

		entryID, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		ownerUUID, err := uuid.Parse(owner)
		if err != nil {
			return nil, err
		}
		var linkedTask *uuid.UUID
		if taskID.Valid {
			parsed, err := uuid.Parse(taskID.String)
			if err != nil {
				return nil, err
			}
			linkedTask = &parsed
		}
		created, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}

		entries = append(entries, domain.RehydrateScoreHistoryEntry(
			entryID, ownerUUID, linkedTask, result, fileName, role, created,
		))
	}
	return entries, rows.Err()
}
