package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign statuses
const (
	CampaignStatusNotStarted = "not_started"
	CampaignStatusProcessing = "processing"
	CampaignStatusCompleted  = "completed"
	CampaignStatusFailed     = "failed"
)

var CampaignStatuses = []string{
	CampaignStatusNotStarted,
	CampaignStatusProcessing,
	CampaignStatusCompleted,
	CampaignStatusFailed,
}

func IsValidCampaignStatus(status string) bool {
	for _, s := range CampaignStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminalCampaignStatus reports whether a generation run has finished.
func IsTerminalCampaignStatus(status string) bool {
	return status == CampaignStatusCompleted || status == CampaignStatusFailed
}

type Campaign struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Name             string    `json:"name"`
	TargetJobTitles  []string  `json:"target_job_titles"`
	TargetIndustries []string  `json:"target_industries"`
	TargetLocations  []string  `json:"target_locations"`
	Message          string    `json:"message"`
	MaxLeads         *int      `json:"max_leads,omitempty"`
	CampaignStatus   string    `json:"campaign_status"`
	LeadsGenerated   int       `json:"leads_generated"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CampaignUpdate holds the user-editable fields; nil means unchanged.
type CampaignUpdate struct {
	Name             *string
	TargetJobTitles  []string
	TargetIndustries []string
	TargetLocations  []string
	Message          *string
	MaxLeads         *int
}
