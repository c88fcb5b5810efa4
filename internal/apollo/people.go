package apollo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/leadgen-dashboard/backend/internal/models"
)

var nowFunc = time.Now

// person is the subset of an Apollo people record we read. Every field is
// optional; empty strings count as absent.
type person struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Title        string        `json:"title"`
	City         string        `json:"city"`
	State        string        `json:"state"`
	Country      string        `json:"country"`
	LinkedInURL  string        `json:"linkedin_url"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone"`
	PhotoURL     string        `json:"photo_url"`
	Department   string        `json:"department"`
	Seniority    string        `json:"seniority"`
	Organization *organization `json:"organization"`
}

type organization struct {
	Name          string `json:"name"`
	Industry      string `json:"industry"`
	EstimatedSize any    `json:"estimated_size"`
}

type pagination struct {
	TotalEntries any `json:"total_entries"`
	NextPage     any `json:"next_page"`
}

func (p pagination) totalEntries() int {
	if n, ok := p.TotalEntries.(float64); ok && n > 0 {
		return int(n)
	}
	return 0
}

type searchPayload struct {
	People     []json.RawMessage `json:"people"`
	Pagination pagination        `json:"pagination"`
}

// ParseSearchResponse maps a people-search payload onto leads. Records that are
// not JSON objects are treated as empty records and fall back to placeholders.
func ParseSearchResponse(data json.RawMessage, now time.Time) (*SearchResult, error) {
	var payload searchPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode people search response: %w", err)
		}
	}

	leads := make([]models.Lead, 0, len(payload.People))
	for i, raw := range payload.People {
		var p person
		_ = json.Unmarshal(raw, &p)
		leads = append(leads, p.toLead(i, now))
	}

	total := payload.Pagination.totalEntries()
	if total == 0 {
		total = len(leads)
	}

	return &SearchResult{
		Leads:   leads,
		Total:   total,
		HasMore: truthy(payload.Pagination.NextPage),
	}, nil
}

func (p person) toLead(index int, now time.Time) models.Lead {
	org := p.Organization
	if org == nil {
		org = &organization{}
	}

	return models.Lead{
		FullName:        p.fullName(index),
		FirstName:       or(p.FirstName, "Unknown"),
		LastName:        or(p.LastName, "Unknown"),
		JobTitle:        or(p.Title, "Unknown Position"),
		Company:         or(org.Name, "Unknown Company"),
		Location:        or(p.City, p.State, p.Country, "Unknown Location"),
		LinkedInURL:     p.LinkedInURL,
		Email:           optional(p.Email),
		Phone:           optional(p.Phone),
		ProfileImageURL: optional(p.PhotoURL),
		ApolloLeadID:    or(p.ID, fmt.Sprintf("temp_%d_%d", now.UnixMilli(), index)),
		LeadData: models.LeadData{
			Industry:    optional(org.Industry),
			CompanySize: nullIfFalsy(org.EstimatedSize),
			Department:  optional(p.Department),
			Seniority:   optional(p.Seniority),
		},
	}
}

func (p person) fullName(index int) string {
	if p.Name != "" {
		return p.Name
	}
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	return fmt.Sprintf("Lead %d", index+1)
}

// or returns the first non-empty value.
func or(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func nullIfFalsy(v any) any {
	if !truthy(v) {
		return nil
	}
	return v
}
