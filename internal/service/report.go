package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snowparadise/reactor/internal/apperr"
	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/ratelimit"
	"github.com/snowparadise/reactor/pkg/logger"
)

// MaxReasonRunes is the longest accepted report reason.
const MaxReasonRunes = 500

// ReportStore persists reports.
type ReportStore interface {
	CreateReport(ctx context.Context, r *model.Report) error
}

// ReportService files abuse reports.
type ReportService struct {
	store   ReportStore
	limiter RateLimiter
	policy  ratelimit.Policy
	now     func() time.Time
	logger  *logger.Logger
}

// NewReportService creates a new report service.
func NewReportService(store ReportStore, limiter RateLimiter, policy ratelimit.Policy, log *logger.Logger) *ReportService {
	return &ReportService{
		store:   store,
		limiter: limiter,
		policy:  policy,
		now:     time.Now,
		logger:  log.Named("reports"),
	}
}

// Create files a report by reporterID. Input is validated before any quota
// is consumed.
func (s *ReportService) Create(ctx context.Context, reporterID string, req *model.CreateReportRequest) (*model.Report, error) {
	if reporterID == "" {
		return nil, apperr.Unauthenticated()
	}

	targetUID := strings.TrimSpace(req.TargetUID)
	targetContentID := strings.TrimSpace(req.TargetContentID)
	reason := strings.TrimSpace(req.Reason)
	if targetUID == "" || targetContentID == "" || reason == "" {
		return nil, apperr.InvalidArgument("targetUid, targetContentId and reason are required")
	}
	// The limit applies to the reason as submitted, surrounding spaces included.
	if utf8.RuneCountInString(req.Reason) > MaxReasonRunes {
		return nil, apperr.InvalidArgument("reason must be at most %d characters", MaxReasonRunes)
	}

	decision, err := s.limiter.Allow(ctx, reporterID, s.policy)
	if err != nil {
		return nil, apperr.Internal("failed to check report quota", err)
	}
	if !decision.Allowed {
		s.logger.Warn("report quota exceeded", zap.String("user_id", reporterID))
		return nil, apperr.ResourceExhausted("too many reports, try again later")
	}

	report := &model.Report{
		ID:              uuid.Must(uuid.NewV7()).String(),
		ReporterID:      reporterID,
		TargetUID:       targetUID,
		TargetContentID: targetContentID,
		Reason:          reason,
		Status:          model.ReportStatusPending,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, apperr.Internal("failed to create report", err)
	}

	s.logger.Info("report created",
		zap.String("report_id", report.ID),
		zap.String("reporter_id", reporterID),
		zap.String("target_uid", targetUID),
	)
	return report, nil
}
