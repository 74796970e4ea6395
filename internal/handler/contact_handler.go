package handler

import (
	"errors"
	"net/http"

	"documind-api/internal/domain"
	apperrors "documind-api/pkg/errors"
)

// ContactHandler serves the public contact form.
type ContactHandler struct {
	contactService domain.ContactService
	logger         domain.Logger
}

func NewContactHandler(contactService domain.ContactService, logger domain.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		logger:         logger,
	}
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.ContactMessage
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.contactService.Submit(r.Context(), req); err != nil {
		var appErr *apperrors.AppError
		if errors.Is(err, domain.ErrContactUnavailable) || errors.As(err, &appErr) {
			writeServiceError(w, h.logger, "Contact submission rejected", err)
			return
		}
		h.logger.Error("Failed to send contact message", err)
		writeError(w, http.StatusInternalServerError, "Failed to send message to Telegram")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Message sent successfully",
	})
}
