package handler

import (
	"net/http"

	"documind-api/internal/domain"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService domain.AuthService
	logger      domain.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService domain.AuthService, logger domain.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

type profileResponse struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	IsAdmin      bool                   `json:"is_admin"`
}

// GetProfile returns the current user's profile information
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	isAdmin, err := h.authService.IsAdmin(r.Context(), user.ID)
	if err != nil {
		// the profile is still useful without the role
		h.logger.Warn("Failed to resolve role for profile", "user_id", user.ID, "error", err.Error())
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:           user.ID,
		Email:        user.Email,
		UserMetadata: user.UserMetadata,
		IsAdmin:      isAdmin,
	})
}
