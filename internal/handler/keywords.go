package handler

import (
	"net/http"

	"github.com/snowparadise/reactor/internal/middleware"
	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/service"
	"github.com/snowparadise/reactor/pkg/logger"
)

// KeywordHandler handles search keyword endpoints.
type KeywordHandler struct {
	keywordService *service.KeywordService
	logger         *logger.Logger
}

// NewKeywordHandler creates a new keyword handler.
func NewKeywordHandler(svc *service.KeywordService, log *logger.Logger) *KeywordHandler {
	return &KeywordHandler{keywordService: svc, logger: log}
}

// Record handles POST /api/v1/search-keywords
func (h *KeywordHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req model.RecordKeywordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.keywordService.Record(r.Context(), userID, req.Keyword); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true})
}
