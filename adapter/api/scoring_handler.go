package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/talentforge/hirespark/internal/scoring/application/commands"
	"github.com/talentforge/hirespark/internal/scoring/application/queries"
	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/talentforge/hirespark/internal/scoring/infrastructure/export"
	"github.com/google/uuid"
)

const (
	// ownerHeader carries the authenticated identity. Authentication itself
	// happens at the gateway; this service trusts the forwarded header.
	ownerHeader = "X-Owner-Email"

	// maxUploadBytes caps one resume upload.
	maxUploadBytes = 20 << 20

	resumeFormField = "resumeFile"

	historyExportLimit = 100
)

// ScoringHandler serves the resume scoring endpoints.
type ScoringHandler struct {
	scoreResume *commands.ScoreResumeHandler
	submitTask  *commands.SubmitTaskHandler
	getTask     *queries.GetTaskHandler
	listTasks   *queries.ListTasksHandler
	listHistory *queries.ListHistoryHandler
	exporter    *export.HistoryExporter
	directory   domain.OwnerDirectory
	logger      *slog.Logger
}

// NewScoringHandler creates a ScoringHandler.
func NewScoringHandler(
	scoreResume *commands.ScoreResumeHandler,
	submitTask *commands.SubmitTaskHandler,
	getTask *queries.GetTaskHandler,
	listTasks *queries.ListTasksHandler,
	listHistory *queries.ListHistoryHandler,
	exporter *export.HistoryExporter,
	directory domain.OwnerDirectory,
	logger *slog.Logger,
) *ScoringHandler {
	return &ScoringHandler{
		scoreResume: scoreResume,
		submitTask:  submitTask,
		getTask:     getTask,
		listTasks:   listTasks,
		listHistory: listHistory,
		exporter:    exporter,
		directory:   directory,
		logger:      logger,
	}
}

// scoreUpload is the multipart payload shared by the sync and async routes.
type scoreUpload struct {
	ownerEmail     string
	fileName       string
	contentType    string
	data           []byte
	targetRole     string
	jobDescription string
	requirements   string
	coverLetter    string
}

func (h *ScoringHandler) readUpload(w http.ResponseWriter, r *http.Request) (scoreUpload, bool) {
	upload := scoreUpload{ownerEmail: r.Header.Get(ownerHeader)}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "request must be multipart/form-data with a resumeFile field")
		return upload, false
	}

	file, header, err := r.FormFile(resumeFormField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "resume file is required")
		return upload, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return upload, false
	}

	upload.fileName = header.Filename
	upload.contentType = header.Header.Get("Content-Type")
	upload.data = data
	upload.targetRole = r.FormValue("targetRole")
	upload.jobDescription = r.FormValue("jobDescription")
	upload.requirements = r.FormValue("requirements")
	upload.coverLetter = r.FormValue("coverLetter")
	return upload, true
}

// ScoreResume handles POST /api/v1/score.
func (h *ScoringHandler) ScoreResume(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.scoreResume.Handle(r.Context(), commands.ScoreResumeCommand{
		OwnerEmail:     upload.ownerEmail,
		FileName:       upload.fileName,
		ContentType:    upload.contentType,
		Data:           upload.data,
		TargetRole:     upload.targetRole,
		JobDescription: upload.jobDescription,
		Requirements:   upload.requirements,
		CoverLetter:    upload.coverLetter,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"score":            result.Score,
		"reason":           result.Reason,
		"matchingKeywords": result.MatchingKeywords,
		"parsedCharacters": result.ParsedCharacters,
		"source":           result.Source,
		"usedProfile":      result.UsedProfile,
		"logs":             result.Logs,
	})
}

// SubmitTask handles POST /api/v1/score/tasks.
func (h *ScoringHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.submitTask.Handle(r.Context(), commands.SubmitTaskCommand{
		OwnerEmail:     upload.ownerEmail,
		FileName:       upload.fileName,
		ContentType:    upload.contentType,
		Data:           upload.data,
		TargetRole:     upload.targetRole,
		JobDescription: upload.jobDescription,
		Requirements:   upload.requirements,
		CoverLetter:    upload.coverLetter,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"taskId":    result.TaskID,
		"status":    string(result.Status),
		"message":   "Resume scoring started in background. You can leave this page.",
		"createdAt": result.CreatedAt,
	})
}

// GetTask handles GET /api/v1/score/tasks/{taskID}.
func (h *ScoringHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(r.PathValue("taskID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	dto, err := h.getTask.Handle(r.Context(), queries.GetTaskQuery{
		TaskID:     taskID,
		OwnerEmail: r.Header.Get(ownerHeader),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListTasks handles GET /api/v1/score/tasks.
func (h *ScoringHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	dtos, err := h.listTasks.Handle(r.Context(), queries.ListTasksQuery{
		OwnerEmail: r.Header.Get(ownerHeader),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": dtos})
}

// ListHistory handles GET /api/v1/score/history.
func (h *ScoringHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	dtos, err := h.listHistory.Handle(r.Context(), queries.ListHistoryQuery{
		OwnerEmail: r.Header.Get(ownerHeader),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": dtos})
}

// ExportHistory handles GET /api/v1/score/history/export.
func (h *ScoringHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	email := r.Header.Get(ownerHeader)
	if email == "" {
		h.writeDomainError(w, domain.ErrMissingOwner)
		return
	}
	owner, err := h.directory.FindByEmail(r.Context(), email)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	workbook, err := h.exporter.ExportXLSX(r.Context(), owner, historyExportLimit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="score-history.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(workbook); err != nil {
		h.logger.Error("writing export response failed", slog.String("error", err.Error()))
	}
}

// writeDomainError maps domain errors onto HTTP statuses.
func (h *ScoringHandler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingFile),
		errors.Is(err, domain.ErrMissingOwner),
		errors.Is(err, domain.ErrUnreadableDocument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOwnerNotFound),
		errors.Is(err, domain.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTaskQuotaExceeded),
		errors.Is(err, domain.ErrScoreLimitReached):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrAssistantUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
