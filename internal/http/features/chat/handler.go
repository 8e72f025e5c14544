package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/http/middleware"
	"github.com/taskdeck/taskdeck/internal/httputil"
	"github.com/taskdeck/taskdeck/pkg/agent"
	"github.com/taskdeck/taskdeck/pkg/domain"
)

// Handler handles the chat turn endpoint.
type Handler struct {
	logger       *slog.Logger
	orchestrator *agent.Orchestrator
}

// NewHandler creates a new chat handler.
func NewHandler(logger *slog.Logger, orchestrator *agent.Orchestrator) *Handler {
	return &Handler{logger: logger, orchestrator: orchestrator}
}

// Request is one chat turn request.
type Request struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Send runs one chat turn for the authenticated user.
// POST /v1/chat
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var conversationID *uuid.UUID
	if req.ConversationID != "" {
		id, err := uuid.Parse(req.ConversationID)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid conversation_id")
			return
		}
		conversationID = &id
	}

	result, err := h.orchestrator.Turn(r.Context(), userID, conversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrTurnTimeout):
			h.logger.Warn("chat turn timed out", "user_id", userID)
			httputil.Error(w, http.StatusGatewayTimeout, "request took too long to process, please try again")
		case errors.Is(err, domain.ErrUpstreamUnavailable):
			h.logger.Error("model provider unavailable", "error", err)
			httputil.Error(w, http.StatusServiceUnavailable, "assistant is temporarily unavailable")
		default:
			h.logger.Error("chat turn failed", "error", err, "user_id", userID)
			httputil.Error(w, http.StatusInternalServerError, "chat turn failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}
