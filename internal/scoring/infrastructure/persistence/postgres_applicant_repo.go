package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresApplicantRepository implements domain.ApplicantRepository using
// PostgreSQL.
type PostgresApplicantRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresApplicantRepository creates a new PostgreSQL applicant
// repository.
func NewPostgresApplicantRepository(pool *pgxpool.Pool) *PostgresApplicantRepository {
	return &PostgresApplicantRepository{pool: pool}
}

// Save upserts an applicant keyed by email, so a profile created elsewhere
// and a snapshot write from scoring land on the same row.
func (r *PostgresApplicantRepository) Save(ctx context.Context, applicant *domain.Applicant) error {
	query := `
		INSERT INTO applicants (
			id, email, full_name, location, summary, skills, experience_years,
			snapshot_score, snapshot_keywords, snapshot_reasoning,
			snapshot_parsed_characters, snapshot_file_name, snapshot_source,
			snapshot_processed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (email) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			location = EXCLUDED.location,
			summary = EXCLUDED.summary,
			skills = EXCLUDED.skills,
			experience_years = EXCLUDED.experience_years,
			snapshot_score = EXCLUDED.snapshot_score,
			snapshot_keywords = EXCLUDED.snapshot_keywords,
			snapshot_reasoning = EXCLUDED.snapshot_reasoning,
			snapshot_parsed_characters = EXCLUDED.snapshot_parsed_characters,
			snapshot_file_name = EXCLUDED.snapshot_file_name,
			snapshot_source = EXCLUDED.snapshot_source,
			snapshot_processed_at = EXCLUDED.snapshot_processed_at,
			updated_at = EXCLUDED.updated_at
	`

	var score *float64
	var keywords, reasoning, fileName, source *string
	var parsedChars *int
	var processedAt *time.Time
	if snap := applicant.Snapshot(); snap != nil {
		score = &snap.Score
		keywords = &snap.MatchingKeywords
		reasoning = &snap.Reasoning
		parsedChars = &snap.ParsedCharacters
		fileName = &snap.FileName
		source = &snap.Source
		processedAt = &snap.ProcessedAt
	}

	_, err := r.pool.Exec(ctx, query,
		applicant.ID(),
		applicant.Email(),
		applicant.FullName(),
		applicant.Location(),
		applicant.Summary(),
		applicant.Skills(),
		applicant.Experience(),
		score,
		keywords,
		reasoning,
		parsedChars,
		fileName,
		source,
		processedAt,
		applicant.CreatedAt(),
		applicant.UpdatedAt(),
	)
	return err
}

// FindByEmail retrieves an applicant profile. Returns nil, nil when absent.
func (r *PostgresApplicantRepository) FindByEmail(ctx context.Context, email string) (*domain.Applicant, error) {
	query := `
		SELECT id, email, full_name, location, summary, skills, experience_years,
		       snapshot_score, snapshot_keywords, snapshot_reasoning,
		       snapshot_parsed_characters, snapshot_file_name, snapshot_source,
		       snapshot_processed_at, created_at, updated_at
		FROM applicants
		WHERE email = $1`

	var (
		id                                   uuid.UUID
		mail, fullName, location             string
		summary, skills                      string
		experience                           int
		score                                *float64
		keywords, reasoning, fileNm, source  *string
		parsedChars                          *int
		processedAt                          *time.Time
		createdAt, updatedAt                 time.Time
	)
	err := r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&id, &mail, &fullName, &location, &summary, &skills, &experience,
		&score, &keywords, &reasoning, &parsedChars, &fileNm, &source,
		&processedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var snapshot *domain.ScoreSnapshot
	if score != nil {
		snapshot = &domain.ScoreSnapshot{
			Score:            *score,
			MatchingKeywords: derefString(keywords),
			Reasoning:        derefString(reasoning),
			ParsedCharacters: derefInt(parsedChars),
			FileName:         derefString(fileNm),
			Source:           derefString(source),
		}
		if processedAt != nil {
			snapshot.ProcessedAt = *processedAt
		}
	}

	return domain.RehydrateApplicant(
		id, mail, fullName, location, summary, skills, experience,
		snapshot, createdAt, updatedAt,
	), nil
}
