package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadData is the free-form attributes bag stored as jsonb.
type LeadData struct {
	Industry    *string `json:"industry"`
	CompanySize any     `json:"companySize"`
	Department  *string `json:"department"`
	Seniority   *string `json:"seniority"`
}

type Lead struct {
	ID              uuid.UUID  `json:"id"`
	CampaignID      uuid.UUID  `json:"campaign_id"`
	UserID          uuid.UUID  `json:"user_id"`
	FullName        string     `json:"full_name"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	JobTitle        string     `json:"job_title"`
	Company         string     `json:"company"`
	Location        string     `json:"location"`
	LinkedInURL     string     `json:"linkedin_url"`
	Email           *string    `json:"email"`
	Phone           *string    `json:"phone"`
	ProfileImageURL *string    `json:"profile_image_url"`
	ApolloLeadID    string     `json:"apollo_lead_id"`
	LeadData        LeadData   `json:"lead_data"`
	MessageSent     bool       `json:"message_sent"`
	MessageSentAt   *time.Time `json:"message_sent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Populated by joins only.
	CampaignName string `json:"campaign_name,omitempty"`
}

// LeadUpdate holds the user-editable contact fields; nil means unchanged.
type LeadUpdate struct {
	FullName    *string
	FirstName   *string
	LastName    *string
	JobTitle    *string
	Company     *string
	Location    *string
	LinkedInURL *string
	Email       *string
	Phone       *string
}
