package handler

import (
	"net/http"

	"github.com/snowparadise/reactor/internal/middleware"
	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/service"
	"github.com/snowparadise/reactor/pkg/logger"
)

// ReportHandler handles abuse report endpoints.
type ReportHandler struct {
	reportService *service.ReportService
	logger        *logger.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(svc *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{reportService: svc, logger: log}
}

// Create handles POST /api/v1/reports
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	report, err := h.reportService.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.CreateReportResponse{
		Success:  true,
		ReportID: report.ID,
	})
}
