package handler

import (
	"net/http"
	"strings"

	"documind-api/internal/domain"

	"github.com/gorilla/mux"
)

// AdminHandler exposes the admin-only endpoints. Routes are wrapped by AuthMiddleware.RequireAdmin.
type AdminHandler struct {
	adminService domain.AdminService
	logger       domain.Logger
}

func NewAdminHandler(adminService domain.AdminService, logger domain.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

type setRoleRequest struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

type confirmOrderRequest struct {
	TransactionRef string `json:"transaction_ref"`
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context(), splitIDs(r.URL.Query().Get("user_ids")))
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list users", err)
		return
	}
	if users == nil {
		users = []*domain.UserRole{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := h.adminService.SetRole(r.Context(), req.UserID, req.Role)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to set role", err, "user_id", req.UserID)
		return
	}

	admin, _ := GetUserFromContext(r)
	if admin != nil {
		h.logger.Info("Role updated", "admin_id", admin.ID, "user_id", saved.UserID, "role", saved.Role)
	}
	writeJSON(w, http.StatusOK, saved)
}

// ConfirmOrder marks a crypto order as paid. The body is optional.
func (h *AdminHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req confirmOrderRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := h.adminService.ConfirmCryptoOrder(r.Context(), orderID, req.TransactionRef)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to confirm order", err, "order_id", orderID)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// splitIDs parses a comma separated id list, dropping blanks.
func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
