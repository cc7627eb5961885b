package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/google/uuid"
)

// sqliteTimeLayout is RFC 3339 with a fixed-width fraction so stored
// timestamps sort correctly as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteTaskRepository implements domain.TaskRepository using SQLite. UUIDs
// and timestamps are stored as text; the log slice is stored as JSON.
type SQLiteTaskRepository struct {
	dbConn *sql.DB
}

// NewSQLiteTaskRepository creates a new SQLite task repository.
func NewSQLiteTaskRepository(dbConn *sql.DB) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{dbConn: dbConn}
}

const sqliteTaskColumns = `
	id, owner_id, status, file_name, content_type, target_role,
	score, reason, matching_keywords, parsed_characters, source, used_profile,
	logs, error_message, started_at, completed_at, created_at, updated_at`

// Save upserts a task.
func (r *SQLiteTaskRepository) Save(ctx context.Context, task *domain.ScoreTask) error {
	logs, err := json.Marshal(task.Logs())
	if err != nil {
		return fmt.Errorf("encode task logs: %w", err)
	}

	var score sql.NullFloat64
	var reason, keywords, source sql.NullString
	var parsedChars, usedProfile sql.NullInt64
	if res := task.Result(); res != nil {
		score = sql.NullFloat64{Float64: res.Score, Valid: true}
		reason = sql.NullString{String: res.Reason, Valid: true}
		keywords = sql.NullString{String: res.MatchingKeywords, Valid: true}
		parsedChars = sql.NullInt64{Int64: int64(res.ParsedCharacters), Valid: true}
		source = sql.NullString{String: res.Source, Valid: true}
		usedProfile = sql.NullInt64{Int64: boolToInt64(res.UsedProfile), Valid: true}
	}

	query := `
		INSERT INTO score_tasks (
			id, owner_id, status, file_name, content_type, target_role,
			score, reason, matching_keywords, parsed_characters, source, used_profile,
			logs, error_message, started_at, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			score = excluded.score,
			reason = excluded.reason,
			matching_keywords = excluded.matching_keywords,
			parsed_characters = excluded.parsed_characters,
			source = excluded.source,
			used_profile = excluded.used_profile,
			logs = excluded.logs,
			error_message = excluded.error_message,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at
	`

	_, err = r.dbConn.ExecContext(ctx, query,
		task.ID().String(),
		task.OwnerID().String(),
		string(task.Status()),
		task.FileName(),
		task.ContentType(),
		task.TargetRole(),
		score,
		reason,
		keywords,
		parsedChars,
		source,
		usedProfile,
		string(logs),
		task.ErrorMessage(),
		toNullTime(task.StartedAt()),
		toNullTime(task.CompletedAt()),
		task.CreatedAt().Format(sqliteTimeLayout),
		task.UpdatedAt().Format(sqliteTimeLayout),
	)
	return err
}

// FindByID retrieves a task by its ID. Returns nil, nil when absent.
func (r *SQLiteTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ScoreTask, error) {
	query := `SELECT` + sqliteTaskColumns + ` FROM score_tasks WHERE id = ?`
	return r.queryOne(ctx, query, id.String())
}

// FindByIDAndOwner retrieves a task scoped to its owner.
func (r *SQLiteTaskRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.ScoreTask, error) {
	query := `SELECT` + sqliteTaskColumns + ` FROM score_tasks WHERE id = ? AND owner_id = ?`
	return r.queryOne(ctx, query, id.String(), ownerID.String())
}

// ListByOwner retrieves an owner's tasks, newest first.
func (r *SQLiteTaskRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.ScoreTask, error) {
	query := `SELECT` + sqliteTaskColumns + `
		FROM score_tasks
		WHERE owner_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.dbConn.QueryContext(ctx, query, ownerID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*domain.ScoreTask, 0)
	for rows.Next() {
		task, err := scanSQLiteTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CountInFlightByOwner counts an owner's QUEUED and PROCESSING tasks.
func (r *SQLiteTaskRepository) CountInFlightByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM score_tasks
		WHERE owner_id = ? AND status IN ('QUEUED', 'PROCESSING')`

	var count int
	if err := r.dbConn.QueryRowContext(ctx, query, ownerID.String()).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SQLiteTaskRepository) queryOne(ctx context.Context, query string, args ...any) (*domain.ScoreTask, error) {
	task, err := scanSQLiteTask(r.dbConn.QueryRowContext(ctx, query, args...).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func scanSQLiteTask(scan func(dest ...any) error) (*domain.ScoreTask, error) {
	var (
		id, ownerID, status         string
		fileName, contentType, role string
		score                       sql.NullFloat64
		reason, keywords, source    sql.NullString
		parsedChars, usedProfile    sql.NullInt64
		logsJSON, errorMsg          string
		startedAt, completedAt      sql.NullString
		createdAt, updatedAt        string
	)
	err := scan(
		&id, &ownerID, &status, &fileName, &contentType, &role,
		&score, &reason, &keywords, &parsedChars, &source, &usedProfile,
		&logsJSON, &errorMsg, &startedAt, &completedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse task id: %w", err)
	}
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}

	var logs []string
	if logsJSON != "" {
		if err := json.Unmarshal([]byte(logsJSON), &logs); err != nil {
			return nil, fmt.Errorf("decode task logs: %w", err)
		}
	}

	var result *domain.ScoreResult
	if score.Valid {
		result = &domain.ScoreResult{
			Score:            score.Float64,
			Reason:           reason.String,
			MatchingKeywords: keywords.String,
			ParsedCharacters: int(parsedChars.Int64),
			Source:           source.String,
			UsedProfile:      usedProfile.Int64 != 0,
		}
	}

	created, err := parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTimestamp(updatedAt)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateScoreTask(
		taskID,
		owner,
		domain.TaskStatus(status),
		fileName,
		contentType,
		role,
		result,
		logs,
		errorMsg,
		fromNullTime(startedAt),
		fromNullTime(completedAt),
		created,
		updated,
	), nil
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(sqliteTimeLayout), Valid: true}
}

func fromNullTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimestamp(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return t, nil
}
