package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTaskRepository implements domain.TaskRepository using PostgreSQL.
type PostgresTaskRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTaskRepository creates a new PostgreSQL task repository.
func NewPostgresTaskRepository(pool *pgxpool.Pool) *PostgresTaskRepository {
	return &PostgresTaskRepository{pool: pool}
}

// taskRow represents a database row for score tasks. Result columns are
// nullable until the task completes.
type taskRow struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Status      string
	FileName    string
	ContentType string
	TargetRole  string
	Score       *float64
	Reason      *string
	Keywords    *string
	ParsedChars *int
	Source      *string
	UsedProfile *bool
	Logs        []string
	ErrorMsg    string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const taskColumns = `
	id, owner_id, status, file_name, content_type, target_role,
	score, reason, matching_keywords, parsed_characters, source, used_profile,
	logs, error_message, started_at, completed_at, created_at, updated_at`

// Save upserts a task.
func (r *PostgresTaskRepository) Save(ctx context.Context, task *domain.ScoreTask) error {
	query := `
		INSERT INTO score_tasks (
			id, owner_id, status, file_name, content_type, target_role,
			score, reason, matching_keywords, parsed_characters, source, used_profile,
			logs, error_message, started_at, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			reason = EXCLUDED.reason,
			matching_keywords = EXCLUDED.matching_keywords,
			parsed_characters = EXCLUDED.parsed_characters,
			source = EXCLUDED.source,
			used_profile = EXCLUDED.used_profile,
			logs = EXCLUDED.logs,
			error_message = EXCLUDED.error_message,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`

	var score *float64
	var reason, keywords, source *string
	var parsedChars *int
	var usedProfile *bool
	if res := task.Result(); res != nil {
		score = &res.Score
		reason = &res.Reason
		keywords = &res.MatchingKeywords
		parsedChars = &res.ParsedCharacters
		source = &res.Source
		usedProfile = &res.UsedProfile
	}

	_, err := r.pool.Exec(ctx, query,
		task.ID(),
		task.OwnerID(),
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
		task.Logs(),
		task.ErrorMessage(),
		task.StartedAt(),
		task.CompletedAt(),
		task.CreatedAt(),
		task.UpdatedAt(),
	)
	return err
}

// FindByID retrieves a task by its ID. Returns nil, nil when absent.
func (r *PostgresTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ScoreTask, error) {
	query := `SELECT` + taskColumns + ` FROM score_tasks WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

// FindByIDAndOwner retrieves a task scoped to its owner.
func (r *PostgresTaskRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.ScoreTask, error) {
	query := `SELECT` + taskColumns + ` FROM score_tasks WHERE id = $1 AND owner_id = $2`
	return r.queryOne(ctx, query, id, ownerID)
}

// ListByOwner retrieves an owner's tasks, newest first.
func (r *PostgresTaskRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.ScoreTask, error) {
	query := `SELECT` + taskColumns + `
		FROM score_tasks
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*domain.ScoreTask, 0)
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CountInFlightByOwner counts an owner's QUEUED and PROCESSING tasks.
func (r *PostgresTaskRepository) CountInFlightByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM score_tasks
		WHERE owner_id = $1 AND status IN ('QUEUED', 'PROCESSING')`

	var count int
	if err := r.pool.QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresTaskRepository) queryOne(ctx context.Context, query string, args ...any) (*domain.ScoreTask, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, query, args...).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func scanTask(scan func(dest ...any) error) (*domain.ScoreTask, error) {
	var row taskRow
	err := scan(
		&row.ID,
		&row.OwnerID,
		&row.Status,
		&row.FileName,
		&row.ContentType,
		&row.TargetRole,
		&row.Score,
		&row.Reason,
		&row.Keywords,
		&row.ParsedChars,
		&row.Source,
		&row.UsedProfile,
		&row.Logs,
		&row.ErrorMsg,
		&row.StartedAt,
		&row.CompletedAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rowToTask(row), nil
}

func rowToTask(row taskRow) *domain.ScoreTask {
	var result *domain.ScoreResult
	if row.Score != nil {
		result = &domain.ScoreResult{
			Score:            *row.Score,
			Reason:           derefString(row.Reason),
			MatchingKeywords: derefString(row.Keywords),
			ParsedCharacters: derefInt(row.ParsedChars),
			Source:           derefString(row.Source),
			UsedProfile:      row.UsedProfile != nil && *row.UsedProfile,
		}
	}
	return domain.RehydrateScoreTask(
		row.ID,
		row.OwnerID,
		domain.TaskStatus(row.Status),
		row.FileName,
		row.ContentType,
		row.TargetRole,
		result,
		row.Logs,
		row.ErrorMsg,
		row.StartedAt,
		row.CompletedAt,
		row.CreatedAt,
		row.UpdatedAt,
	)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
