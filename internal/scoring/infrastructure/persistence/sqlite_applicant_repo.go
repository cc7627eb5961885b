package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/google/uuid"
)

// SQLiteApplicantRepository implements domain.ApplicantRepository using
// SQLite.
type SQLiteApplicantRepository struct {
	dbConn *sql.DB
}

// NewSQLiteApplicantRepository creates a new SQLite applicant repository.
func NewSQLiteApplicantRepository(dbConn *sql.DB) *SQLiteApplicantRepository {
	return &SQLiteApplicantRepository{dbConn: dbConn}
}

// Save upserts an applicant keyed by email.
func (r *SQLiteApplicantRepository) Save(ctx context.Context, applicant *domain.Applicant) error {
	query := `
		INSERT INTO applicants (
			id, email, full_name, location, summary, skills, experience_years,
			snapshot_score, snapshot_keywords, snapshot_reasoning,
			snapshot_parsed_characters, snapshot_file_name, snapshot_source,
			snapshot_processed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			full_name = excluded.full_name,
			location = excluded.location,
			summary = excluded.summary,
			skills = excluded.skills,
			experience_years = excluded.experience_years,
			snapshot_score = excluded.snapshot_score,
			snapshot_keywords = excluded.snapshot_keywords,
			snapshot_reasoning = excluded.snapshot_reasoning,
			snapshot_parsed_characters = excluded.snapshot_parsed_characters,
			snapshot_file_name = excluded.snapshot_file_name,
			snapshot_source = excluded.snapshot_source,
			snapshot_processed_at = excluded.snapshot_processed_at,
			updated_at = excluded.updated_at
	`

	var score sql.NullFloat64
	var keywords, reasoning, fileName, source, processedAt sql.NullString
	var parsedChars sql.NullInt64
	if snap := applicant.Snapshot(); snap != nil {
		score = sql.NullFloat64{Float64: snap.Score, Valid: true}
		keywords = sql.NullString{String: snap.MatchingKeywords, Valid: true}
		reasoning = sql.NullString{String: snap.Reasoning, Valid: true}
		parsedChars = sql.NullInt64{Int64: int64(snap.ParsedCharacters), Valid: true}
		fileName = sql.NullString{String: snap.FileName, Valid: true}
		source = sql.NullString{String: snap.Source, Valid: true}
		processedAt = sql.NullString{String: snap.ProcessedAt.Format(sqliteTimeLayout), Valid: true}
	}

	_, err := r.dbConn.ExecContext(ctx, query,
		applicant.ID().String(),
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
		applicant.CreatedAt().Format(sqliteTimeLayout),
		applicant.UpdatedAt().Format(sqliteTimeLayout),
	)
	return err
}

// FindByEmail retrieves an applicant profile. Returns nil, nil when absent.
func (r *SQLiteApplicantRepository) FindByEmail(ctx context.Context, email string) (*domain.Applicant, error) {
	query := `
		SELECT id, email, full_name, location, summary, skills, experience_years,
		       snapshot_score, snapshot_keywords, snapshot_reasoning,
		       snapshot_parsed_characters, snapshot_file_name, snapshot_source,
		       snapshot_processed_at, created_at, updated_at
		FROM applicants
		WHERE email = ?`

	var (
		id, mail, fullName, location, summary, skills string
		experience                                    int
		score                                         sql.NullFloat64
		keywords, reasoning, fileNm, source           sql.NullString
		parsedChars                                   sql.NullInt64
		processedAt                                   sql.NullString
		createdAt, updatedAt                          string
	)
	err := r.dbConn.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&id, &mail, &fullName, &location, &summary, &skills, &experience,
		&score, &keywords, &reasoning, &parsedChars, &fileNm, &source,
		&processedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	applicantID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	created, err := parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTimestamp(updatedAt)
	if err != nil {
		return nil, err
	}

	var snapshot *domain.ScoreSnapshot
	if score.Valid {
		snapshot = &domain.ScoreSnapshot{
			Score:            score.Float64,
			MatchingKeywords: keywords.String,
			Reasoning:        reasoning.String,
			ParsedCharacters: int(parsedChars.Int64),
			FileName:         fileNm.String,
			Source:           source.String,
		}
		if t := fromNullTime(processedAt); t != nil {
			snapshot.ProcessedAt = *t
		}
	}

	return domain.RehydrateApplicant(
		applicantID, mail, fullName, location, summary, skills, experience,
		snapshot, created, updated,
	), nil
}
