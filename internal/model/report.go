package model

import (
	"time"
)

// Report is an abuse report filed by a user.
type Report struct {
	ID              string    `json:"id"`
	ReporterID      string    `json:"reporterId"`
	TargetUID       string    `json:"targetUid"`
	TargetContentID string    `json:"targetContentId"`
	Reason          string    `json:"reason"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ReportStatusPending is the status of a newly filed report.
const ReportStatusPending = "pending"

// CreateReportRequest is the request to file a report.
type CreateReportRequest struct {
	TargetUID       string `json:"targetUid"`
	TargetContentID string `json:"targetContentId"`
	Reason          string `json:"reason"`
}

// CreateReportResponse is the response after filing a report.
type CreateReportResponse struct {
	Success  bool   `json:"success"`
	ReportID string `json:"reportId"`
}

// SearchKeyword is one recorded search.
type SearchKeyword struct {
	UserID     string    `json:"userId"`
	Keyword    string    `json:"keyword"`
	SearchedAt time.Time `json:"searchedAt"`
}

// RecordKeywordRequest is the request to record a search keyword.
type RecordKeywordRequest struct {
	Keyword string `json:"keyword"`
}

// VerifyAdminRequest is the request to verify the admin password.
type VerifyAdminRequest struct {
	Password string `json:"password"`
}

// SuccessResponse is the generic acknowledgment.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// RateWindow is the persisted state of one sliding-window quota.
type RateWindow struct {
	Key         string    `json:"key"`
	WindowStart time.Time `json:"windowStart"`
	Count       int       `json:"count"`
}
