package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talentforge/hirespark/internal/scoring/domain"
)

const (
	maxResumeChars  = 12000
	maxContextChars = 14000
	maxReasonChars  = 900
	maxKeywordChars = 1200
	maxKeywords     = 20
	maxKeywordLen   = 40

	sourceModel    = "hirespark-ai"
	sourceFallback = "keyword-fallback"

	defaultReason = "No explanation was provided by the scoring model."
)

// Scorer produces a raw model response for a scoring prompt. Implementations
// wrap a specific model backend; the orchestrator owns parsing and fallback.
type Scorer interface {
	ScoreResume(ctx context.Context, jobContext, candidateContext string) (string, error)
}

// StageLog receives one pipeline stage marker per call. The synchronous path
// collects them for the response body; the background path appends them to
// the task's durable log.
type StageLog func(stage, detail string)

// Request carries the caller-supplied job context for one scoring attempt.
type Request struct {
	TargetRole     string
	JobDescription string
	Requirements   string
	CoverLetter    string
}

// Orchestrator runs the model-with-fallback scoring flow: assemble contexts,
// call the model with bounded retries, parse and normalize, or fall back to
// deterministic keyword overlap. It never returns an error for model
// failures; only broken invariants (empty resume text) surface.
type Orchestrator struct {
	scorer      Scorer
	applicants  domain.ApplicantRepository
	logger      *slog.Logger
	timeout     time.Duration
	maxAttempts int
}

// NewOrchestrator wires a scoring orchestrator. timeout bounds each model
// attempt; maxAttempts caps how many are made before falling back.
func NewOrchestrator(
	scorer Scorer,
	applicants domain.ApplicantRepository,
	logger *slog.Logger,
	timeout time.Duration,
	maxAttempts int,
) *Orchestrator {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Orchestrator{
		scorer:      scorer,
		applicants:  applicants,
		logger:      logger,
		timeout:     timeout,
		maxAttempts: maxAttempts,
	}
}

// Score runs one scoring attempt over already-extracted resume text. The
// returned result is always usable: model output when an attempt succeeds,
// the deterministic fallback otherwise.
func (o *Orchestrator) Score(ctx context.Context, owner domain.Owner, req Request, resumeText string, logf StageLog) (domain.ScoreResult, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return domain.ScoreResult{}, domain.ErrUnreadableDocument
	}
	if logf == nil {
		logf = func(string, string) {}
	}

	applicant := o.lookupProfile(ctx, owner, logf)

	jobCtx := buildJobContext(req, applicant)
	candidateCtx := buildCandidateContext(resumeText, req.CoverLetter, applicant)
	logf("CONTEXT_BUILT", fmt.Sprintf("job context %d chars, candidate context %d chars", len(jobCtx), len(candidateCtx)))

	result, ok := o.scoreWithModel(ctx, jobCtx, candidateCtx, logf)
	if !ok {
		outcome := fallbackScore(jobCtx, candidateCtx)
		logf("FALLBACK_SCORING", fmt.Sprintf("deterministic keyword scoring produced %.1f", outcome.score))
		result = domain.ScoreResult{
			Score:            outcome.score,
			Reason:           outcome.reason,
			MatchingKeywords: joinKeywords(outcome.keywords),
			Source:           sourceFallback,
		}
	}

	result.ParsedCharacters = len(resumeText)
	result.UsedProfile = applicant != nil
	result.Reason = capString(coalesce(result.Reason, defaultReason), maxReasonChars)
	result.MatchingKeywords = capString(result.MatchingKeywords, maxKeywordChars)

	o.updateSnapshot(ctx, applicant, result, logf)

	return result, nil
}

// scoreWithModel makes bounded model attempts. Each attempt runs under its
// own timeout in a goroutine so a hung backend cannot stall past the
// deadline.
func (o *Orchestrator) scoreWithModel(ctx context.Context, jobCtx, candidateCtx string, logf StageLog) (domain.ScoreResult, bool) {
	if o.scorer == nil {
		return domain.ScoreResult{}, false
	}

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		raw, err := o.attempt(ctx, jobCtx, candidateCtx)
		if err != nil {
			o.logger.Warn("model scoring attempt failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			logf("AI_ATTEMPT_FAILED", fmt.Sprintf("attempt %d/%d: %s", attempt, o.maxAttempts, err))
			if ctx.Err() != nil {
				return domain.ScoreResult{}, false
			}
			continue
		}

		parsed, err := parseModelScore(raw)
		if err != nil {
			o.logger.Warn("model response not parseable", slog.Int("attempt", attempt))
			logf("AI_RESPONSE_UNPARSEABLE", fmt.Sprintf("attempt %d/%d", attempt, o.maxAttempts))
			continue
		}

		logf("AI_SCORED", fmt.Sprintf("model returned score %.1f on attempt %d", parsed.Score, attempt))
		keywords := normalizeKeywords(parsed.Keywords)
		if len(keywords) == 0 {
			// A score without keywords gets them from the deterministic
			// overlap so the response is never missing matched terms.
			keywords = fallbackScore(jobCtx, candidateCtx).keywords
		}
		return domain.ScoreResult{
			Score:            clampScore(parsed.Score),
			Reason:           parsed.Reason,
			MatchingKeywords: joinKeywords(keywords),
			Source:           sourceModel,
		}, true
	}
	return domain.ScoreResult{}, false
}

func (o *Orchestrator) attempt(ctx context.Context, jobCtx, candidateCtx string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type reply struct {
		raw string
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		raw, err := o.scorer.ScoreResume(attemptCtx, jobCtx, candidateCtx)
		ch <- reply{raw: raw, err: err}
	}()

	select {
	case r := <-ch:
		return r.raw, r.err
	case <-attemptCtx.Done():
		return "", attemptCtx.Err()
	}
}

// lookupProfile is best-effort: a missing or failing profile read never
// blocks scoring.
func (o *Orchestrator) lookupProfile(ctx context.Context, owner domain.Owner, logf StageLog) *domain.Applicant {
	if o.applicants == nil || owner.Email == "" {
		return nil
	}
	applicant, err := o.applicants.FindByEmail(ctx, owner.Email)
	if err != nil || applicant == nil {
		logf("PROFILE_LOOKUP", "no applicant profile found, scoring resume text only")
		return nil
	}
	logf("PROFILE_LOOKUP", "applicant profile found, enriching candidate context")
	return applicant
}

// updateSnapshot caches the result on the applicant profile. Best-effort.
func (o *Orchestrator) updateSnapshot(ctx context.Context, applicant *domain.Applicant, result domain.ScoreResult, logf StageLog) {
	if o.applicants == nil || applicant == nil {
		return
	}
	applicant.ApplyScoreSnapshot(domain.ScoreSnapshot{
		Score:            result.Score,
		MatchingKeywords: result.MatchingKeywords,
		Reasoning:        result.Reason,
		ParsedCharacters: result.ParsedCharacters,
		Source:           result.Source,
		ProcessedAt:      time.Now().UTC(),
	})
	if err := o.applicants.Save(ctx, applicant); err != nil {
		o.logger.Warn("applicant snapshot update failed", slog.String("error", err.Error()))
		return
	}
	logf("PROFILE_UPDATED", "score snapshot cached on applicant profile")
}

// buildJobContext assembles the labeled job side of the prompt. With no
// caller-supplied fields the stored profile's summary and skills frame the
// evaluation; with no profile either, a generic screening framing keeps the
// model anchored on an instruction.
func buildJobContext(req Request, applicant *domain.Applicant) string {
	var b strings.Builder
	if role := strings.TrimSpace(req.TargetRole); role != "" {
		fmt.Fprintf(&b, "Target Role: %s\n", role)
	}
	if desc := strings.TrimSpace(req.JobDescription); desc != "" {
		fmt.Fprintf(&b, "Job Description:\n%s\n", desc)
	}
	if reqs := strings.TrimSpace(req.Requirements); reqs != "" {
		fmt.Fprintf(&b, "Requirements:\n%s\n", reqs)
	}
	if b.Len() == 0 && applicant != nil {
		b.WriteString("Target Role: General role matching candidate profile\n")
		if v := applicant.Summary(); v != "" {
			fmt.Fprintf(&b, "Summary: %s\n", v)
		}
		if v := applicant.Skills(); v != "" {
			fmt.Fprintf(&b, "Skills: %s\n", v)
		}
	}
	if b.Len() == 0 {
		b.WriteString("Evaluate this candidate for general professional employability: clarity of experience, demonstrated skills, and career progression.\n")
	}
	return capContext(b.String(), maxContextChars)
}

// buildCandidateContext assembles the candidate side: resume text, optional
// cover letter, and profile sections when a stored applicant exists.
func buildCandidateContext(resumeText, coverLetter string, applicant *domain.Applicant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resume:\n%s\n", capContext(resumeText, maxResumeChars))
	if cl := strings.TrimSpace(coverLetter); cl != "" {
		fmt.Fprintf(&b, "Cover Letter:\n%s\n", cl)
	}
	if applicant != nil {
		b.WriteString("Candidate Profile:\n")
		if v := applicant.FullName(); v != "" {
			fmt.Fprintf(&b, "Name: %s\n", v)
		}
		if v := applicant.Location(); v != "" {
			fmt.Fprintf(&b, "Location: %s\n", v)
		}
		if v := applicant.Summary(); v != "" {
			fmt.Fprintf(&b, "Summary: %s\n", v)
		}
		if v := applicant.Skills(); v != "" {
			fmt.Fprintf(&b, "Declared Skills: %s\n", v)
		}
		if v := applicant.Experience(); v > 0 {
			fmt.Fprintf(&b, "Years of Experience: %d\n", v)
		}
	}
	return capContext(b.String(), maxContextChars)
}

// clampScore bounds a model score to [0, 100].
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// normalizeKeywords lower-cases, deduplicates, and caps keyword lists.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || len(kw) > maxKeywordLen {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
		if len(out) >= maxKeywords {
			break
		}
	}
	return out
}

func joinKeywords(keywords []string) string {
	return strings.Join(keywords, ", ")
}

// capContext keeps the leading maxChars of a context block. Leading material
// carries the section labels the model anchors on.
func capContext(value string, maxChars int) string {
	if len(value) <= maxChars {
		return value
	}
	return value[:maxChars]
}

func capString(value string, maxChars int) string {
	value = strings.TrimSpace(value)
	if len(value) <= maxChars {
		return value
	}
	return value[:maxChars]
}

func coalesce(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
