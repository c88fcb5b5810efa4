package dto

import "github.com/leadgen-dashboard/backend/internal/apollo"

// Campaigns

type CreateCampaignRequest struct {
	Name             string   `json:"name"`
	TargetJobTitles  []string `json:"target_job_titles,omitempty"`
	TargetIndustries []string `json:"target_industries,omitempty"`
	TargetLocations  []string `json:"target_locations,omitempty"`
	Message          string   `json:"message"`
	MaxLeads         *int     `json:"max_leads,omitempty"`
}

type UpdateCampaignRequest struct {
	Name             *string  `json:"name,omitempty"`
	TargetJobTitles  []string `json:"target_job_titles,omitempty"`
	TargetIndustries []string `json:"target_industries,omitempty"`
	TargetLocations  []string `json:"target_locations,omitempty"`
	Message          *string  `json:"message,omitempty"`
	MaxLeads         *int     `json:"max_leads,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type GenerateLeadsRequest struct {
	Filters    apollo.SearchFilters `json:"filters"`
	OAuthToken string               `json:"oauthToken,omitempty"`
}

type StartFetchingRequest struct {
	ApolloCampaignID string          `json:"apolloCampaignId"`
	Criteria         apollo.Criteria `json:"criteria"`
	OAuthToken       string          `json:"oauthToken,omitempty"`
}

// Leads

type LeadRequest struct {
	CampaignID  string  `json:"campaign_id"`
	FullName    string  `json:"full_name"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	JobTitle    string  `json:"job_title"`
	Company     string  `json:"company"`
	Location    string  `json:"location"`
	LinkedInURL string  `json:"linkedin_url"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

type UpdateLeadRequest struct {
	FullName    *string `json:"full_name,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	JobTitle    *string `json:"job_title,omitempty"`
	Company     *string `json:"company,omitempty"`
	Location    *string `json:"location,omitempty"`
	LinkedInURL *string `json:"linkedin_url,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

type ImportLeadsRequest struct {
	CampaignID string        `json:"campaign_id"`
	Leads      []LeadRequest `json:"leads"`
}

// Apollo

type OAuthCallbackRequest struct {
	Code string `json:"code"`
}
