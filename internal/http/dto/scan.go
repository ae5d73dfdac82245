package dto

import (
	"time"

	"github.com/mplacona/ThreadScout/internal/model"
)

type StartScanRequest struct {
	Subreddits     []string `json:"subreddits" binding:"required,min=1,dive,min=1,max=100"`
	Keywords       []string `json:"keywords" binding:"required,min=1,dive,min=1,max=100"`
	LookbackHours  int      `json:"lookback_hours" binding:"omitempty,min=1,max=168"`
	MaxThreads     int      `json:"max_threads" binding:"omitempty,min=1,max=25"`
	SessionID      string   `json:"session_id" binding:"omitempty,max=128"`
	AllowedDomains []string `json:"allowed_domains" binding:"omitempty,dive,min=1,max=255"`
}

const defaultLookbackHours = 24

func (r *StartScanRequest) ToScanRequest() model.ScanRequest {
	hours := r.LookbackHours
	if hours == 0 {
		hours = defaultLookbackHours
	}
	return model.ScanRequest{
		Subreddits:     r.Subreddits,
		Keywords:       r.Keywords,
		Lookback:       time.Duration(hours) * time.Hour,
		MaxThreads:     r.MaxThreads,
		SessionID:      r.SessionID,
		AllowedDomains: r.AllowedDomains,
	}
}

type StartScanResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type CancelScanResponse struct {
	SessionID string `json:"session_id"`
	Cancelled bool   `json:"cancelled"`
}

type SessionListResponse struct {
	Sessions []string `json:"sessions"`
}
