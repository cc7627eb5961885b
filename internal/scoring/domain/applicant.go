package domain

import (
	"strings"
	"time"

	sharedDomain "github.com/talentforge/hirespark/internal/shared/domain"
	"github.com/google/uuid"
)

// ScoreSnapshot is the cached analysis written back to an applicant profile
// after a successful scoring run. Best-effort: a stale or missing snapshot is
// never an error.
type ScoreSnapshot struct {
	Score            float64
	MatchingKeywords string
	Reasoning        string
	ParsedCharacters int
	FileName         string
	Source           string
	ProcessedAt      time.Time
}

// Applicant is a candidate profile used to enrich scoring context. The
// profile's canonical lifecycle lives elsewhere; the pipeline only reads it
// and overwrites its score snapshot.
type Applicant struct {
	sharedDomain.BaseEntity
	email      string
	fullName   string
	location   string
	summary    string
	skills     string
	experience int // years
	snapshot   *ScoreSnapshot
}

// NewApplicant creates an applicant profile keyed by email.
func NewApplicant(email, fullName string) (*Applicant, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrMissingOwner
	}
	return &Applicant{
		BaseEntity: sharedDomain.NewBaseEntity(),
		email:      email,
		fullName:   strings.TrimSpace(fullName),
	}, nil
}

func (a *Applicant) Email() string    { return a.email }
func (a *Applicant) FullName() string { return a.fullName }
func (a *Applicant) Location() string { return a.location }
func (a *Applicant) Summary() string  { return a.summary }
func (a *Applicant) Skills() string   { return a.skills }
func (a *Applicant) Experience() int  { return a.experience }

// Snapshot returns the cached score snapshot, or nil when never scored.
func (a *Applicant) Snapshot() *ScoreSnapshot {
	if a.snapshot == nil {
		return nil
	}
	s := *a.snapshot
	return &s
}

// SetProfile updates the free-text profile sections.
func (a *Applicant) SetProfile(fullName, location, summary, skills string, experienceYears int) {
	a.fullName = strings.TrimSpace(fullName)
	a.location = strings.TrimSpace(location)
	a.summary = strings.TrimSpace(summary)
	a.skills = strings.TrimSpace(skills)
	if experienceYears >= 0 {
		a.experience = experienceYears
	}
	a.Touch()
}

// ApplyScoreSnapshot overwrites the cached analysis with a new result.
func (a *Applicant) ApplyScoreSnapshot(s ScoreSnapshot) {
	snap := s
	a.snapshot = &snap
	a.Touch()
}

// RehydrateApplicant recreates an applicant from persisted state.
func RehydrateApplicant(
	id uuid.UUID,
	email, fullName, location, summary, skills string,
	experienceYears int,
	snapshot *ScoreSnapshot,
	createdAt, updatedAt time.Time,
) *Applicant {
	return &Applicant{
		BaseEntity: sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		email:      email,
		fullName:   fullName,
		location:   location,
		summary:    summary,
		skills:     skills,
		experience: experienceYears,
		snapshot:   snapshot,
	}
}
