package me

import (
	"net/http"

	"github.com/taskdeck/taskdeck/internal/http/middleware"
	"github.com/taskdeck/taskdeck/internal/httputil"
)

// Handler serves the authenticated identity back to the caller.
type Handler struct{}

// NewHandler creates a new me handler.
func NewHandler() *Handler {
	return &Handler{}
}

// GetMe returns the identity resolved by the access gate.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	claims, _ := middleware.GetClaims(r.Context())
	resp := map[string]any{"id": userID}
	if claims != nil {
		resp["email"] = claims.Email
		resp["name"] = claims.Name
	}

	httputil.JSON(w, http.StatusOK, resp)
}
