package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talentforge/hirespark/internal/scoring/application/extract"
	"github.com/talentforge/hirespark/internal/scoring/application/services"
	"github.com/talentforge/hirespark/internal/scoring/domain"
)

// ScoreResumeCommand carries one synchronous scoring request.
type ScoreResumeCommand struct {
	OwnerEmail     string
	FileName       string
	ContentType    string
	Data           []byte
	TargetRole     string
	JobDescription string
	Requirements   string
	CoverLetter    string
}

// ScoreResumeResult is the synchronous scoring response, including the
// ordered stage log of this attempt.
type ScoreResumeResult struct {
	Score            float64
	Reason           string
	MatchingKeywords string
	ParsedCharacters int
	Source           string
	UsedProfile      bool
	Logs             []string
}

// ScoreResumeHandler runs the extraction and scoring pipeline inline and
// returns the result in the request cycle.
type ScoreResumeHandler struct {
	directory    domain.OwnerDirectory
	history      domain.HistoryRepository
	extractor    *extract.Extractor
	orchestrator *services.Orchestrator
	limiter      services.SubscriptionLimiter
	logger       *slog.Logger
}

// NewScoreResumeHandler creates a ScoreResumeHandler.
func NewScoreResumeHandler(
	directory domain.OwnerDirectory,
	history domain.HistoryRepository,
	extractor *extract.Extractor,
	orchestrator *services.Orchestrator,
	limiter services.SubscriptionLimiter,
	logger *slog.Logger,
) *ScoreResumeHandler {
	return &ScoreResumeHandler{
		directory:    directory,
		history:      history,
		extractor:    extractor,
		orchestrator: orchestrator,
		limiter:      limiter,
		logger:       logger,
	}
}

// Handle executes the ScoreResumeCommand.
func (h *ScoreResumeHandler) Handle(ctx context.Context, cmd ScoreResumeCommand) (*ScoreResumeResult, error) {
	if len(cmd.Data) == 0 {
		return nil, domain.ErrMissingFile
	}
	if strings.TrimSpace(cmd.OwnerEmail) == "" {
		return nil, domain.ErrMissingOwner
	}

	owner, err := h.directory.FindByEmail(ctx, cmd.OwnerEmail)
	if err != nil {
		return nil, err
	}

	if owner.IsQuotaGated() && h.limiter != nil {
		if err := h.limiter.CheckAllowance(ctx, owner); err != nil {
			return nil, err
		}
	}

	logs := make([]string, 0, 8)
	logf := func(stage, detail string) {
		logs = append(logs, domain.FormatStageLog(stage, detail))
	}
	logf("RECEIVED", fmt.Sprintf("resume received: %s (%d bytes)", cmd.FileName, len(cmd.Data)))

	resumeText, err := h.extractor.Extract(cmd.FileName, cmd.ContentType, cmd.Data)
	if err != nil {
		if !errors.Is(err, domain.ErrUnreadableDocument) {
			return nil, err
		}
		resumeText = unreadableUploadPlaceholder(cmd.FileName, cmd.ContentType, len(cmd.Data))
		logf("EXTRACTION_FALLBACK", "no machine-readable text, scoring file metadata only")
	} else {
		logf("TEXT_EXTRACTED", fmt.Sprintf("extracted %d characters", len(resumeText)))
	}

	result, err := h.orchestrator.Score(ctx, owner, services.Request{
		TargetRole:     cmd.TargetRole,
		JobDescription: cmd.JobDescription,
		Requirements:   cmd.Requirements,
		CoverLetter:    cmd.CoverLetter,
	}, resumeText, logf)
	if err != nil {
		return nil, err
	}

	if owner.IsQuotaGated() && h.limiter != nil {
		if err := h.limiter.RecordScore(ctx, owner); err != nil {
			h.logger.Warn("recording score usage failed",
				slog.String("owner_id", owner.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	h.recordHistory(ctx, owner, cmd, result)

	return &ScoreResumeResult{
		Score:            result.Score,
		Reason:           result.Reason,
		MatchingKeywords: result.MatchingKeywords,
		ParsedCharacters: result.ParsedCharacters,
		Source:           result.Source,
		UsedProfile:      result.UsedProfile,
		Logs:             logs,
	}, nil
}

// recordHistory is best-effort: the caller already holds the result.
func (h *ScoreResumeHandler) recordHistory(ctx context.Context, owner domain.Owner, cmd ScoreResumeCommand, result domain.ScoreResult) {
	entry, err := domain.NewScoreHistoryEntry(owner.ID, nil, result, cmd.FileName, cmd.TargetRole)
	if err != nil {
		h.logger.Error("building history entry failed", slog.String("error", err.Error()))
		return
	}
	if err := h.history.Append(ctx, entry); err != nil {
		h.logger.Error("appending score history failed",
			slog.String("owner_id", owner.ID.String()),
			slog.String("error", err.Error()))
	}
}

func unreadableUploadPlaceholder(fileName, contentType string, size int) string {
	if fileName == "" {
		fileName = "uploaded document"
	}
	if contentType == "" {
		contentType = "unknown type"
	}
	return fmt.Sprintf("Uploaded document: %s (%s, %d bytes). The document text could not be extracted.", fileName, contentType, size)
}
