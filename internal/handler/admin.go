package handler

import (
	"net/http"

	"github.com/snowparadise/reactor/internal/middleware"
	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/service"
	"github.com/snowparadise/reactor/pkg/logger"
)

// AdminHandler handles admin verification.
type AdminHandler struct {
	adminService *service.AdminService
	logger       *logger.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(svc *service.AdminService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{adminService: svc, logger: log}
}

// Verify handles POST /api/v1/admin/verify
func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.adminService.Verify(r.Context(), middleware.GetUserID(r.Context()), req.Password); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true})
}
