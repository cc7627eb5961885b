package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/talentforge/hirespark/internal/scoring/application/services"
	"github.com/talentforge/hirespark/internal/scoring/domain"
)

// AssistantHandler serves the hiring assistant endpoints.
type AssistantHandler struct {
	assistant *services.Assistant
	logger    *slog.Logger
}

// NewAssistantHandler creates an AssistantHandler.
func NewAssistantHandler(assistant *services.Assistant, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, logger: logger}
}

type chatRequest struct {
	Message string `json:"message"`
}

type biasCheckRequest struct {
	Text string `json:"text"`
}

// Chat handles POST /api/v1/assistant/chat.
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.assistant.ChatReply(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, domain.ErrAssistantUnavailable) {
			writeError(w, http.StatusServiceUnavailable, domain.ErrAssistantUnavailable.Error())
			return
		}
		h.logger.Error("assistant chat failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// BiasCheck handles POST /api/v1/assistant/bias-check. The check always
// answers 200; backend failures degrade to a generic advisory.
func (h *AssistantHandler) BiasCheck(w http.ResponseWriter, r *http.Request) {
	var req biasCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	advisory := h.assistant.BiasCheck(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, map[string]string{"advisory": advisory})
}
