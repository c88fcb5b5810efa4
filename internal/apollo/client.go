// Package apollo talks to the Apollo lead-data API through the remote proxy.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/leadgen-dashboard/backend/internal/auth"
	"github.com/leadgen-dashboard/backend/internal/models"
	"go.uber.org/zap"
)

var (
	ErrNoSession     = errors.New("No active session. Please log in.")
	ErrNoCredentials = errors.New("No API key or OAuth token provided")
	ErrUnreachable   = errors.New("Cannot connect to Apollo API. Check your internet connection.")
)

const excerptLen = 100

// APIError is a failure reported by the proxy or the provider behind it.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// StatusUpdater moves a local campaign to a new status once a bulk fetch is accepted.
type StatusUpdater interface {
	UpdateCampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) (*models.Campaign, error)
}

type Options struct {
	ProxyURL    string // base URL of the remote proxy, e.g. http://localhost:3000/api/apollo
	APIKey      string
	TokenHeader string // header the proxy reads the provider bearer token from

	// Direct provider access, used for the OAuth code exchange only.
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Client struct {
	opts       Options
	httpClient *http.Client
	statuses   StatusUpdater
	log        *zap.Logger
}

func NewClient(opts Options, httpClient *http.Client, log *zap.Logger) *Client {
	opts.ProxyURL = strings.TrimRight(opts.ProxyURL, "/")
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.TokenHeader == "" {
		opts.TokenHeader = "X-Apollo-Authorization"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{opts: opts, httpClient: httpClient, log: log}
}

func (c *Client) WithStatusUpdater(u StatusUpdater) *Client {
	c.statuses = u
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
}

// call sends one request through the proxy and returns the envelope's data.
func (c *Client) call(ctx context.Context, sess auth.Session, method, endpoint string, body any, query url.Values, oauthToken string) (json.RawMessage, error) {
	if !sess.Active() {
		return nil, ErrNoSession
	}

	target := c.opts.ProxyURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	switch {
	case oauthToken != "":
		req.Header.Set(c.opts.TokenHeader, "Bearer "+oauthToken)
	case c.opts.APIKey != "":
		req.Header.Set("Api-Key", c.opts.APIKey)
	default:
		return nil, ErrNoCredentials
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(endpoint, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Error("apollo json parse error", zap.String("endpoint", endpoint), zap.ByteString("body", raw))
		return nil, &APIError{Status: resp.StatusCode, Message: "Invalid JSON response: " + excerpt(raw, excerptLen)}
	}
	if !env.Success {
		if env.Error != nil && *env.Error != "" {
			return nil, &APIError{Status: resp.StatusCode, Message: *env.Error}
		}
		return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("HTTP %d: Request failed", resp.StatusCode)}
	}

	return env.Data, nil
}

func (c *Client) transportError(endpoint string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	c.log.Error("apollo service error", zap.String("endpoint", endpoint), zap.Error(err))
	return ErrUnreachable
}

type SearchFilters struct {
	JobTitles    []string `json:"jobTitles"`
	Industries   []string `json:"industries"`
	Locations    []string `json:"locations"`
	CompanySizes []string `json:"companySizes"`
	Limit        int      `json:"limit"`
}

const defaultSearchLimit = 5

func (f SearchFilters) query() url.Values {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q := url.Values{}
	q.Set("q_organization_job_titles", strings.Join(f.JobTitles, ","))
	q.Set("q_organization_industries", strings.Join(f.Industries, ","))
	q.Set("q_person_locations", strings.Join(f.Locations, ","))
	q.Set("q_organization_sizes", strings.Join(f.CompanySizes, ","))
	q.Set("per_page", fmt.Sprintf("%d", limit))
	return q
}

type SearchResult struct {
	Leads   []models.Lead `json:"leads"`
	Total   int           `json:"total"`
	HasMore bool          `json:"hasMore"`
}

func (c *Client) SearchLeads(ctx context.Context, sess auth.Session, filters SearchFilters, oauthToken string) (*SearchResult, error) {
	data, err := c.call(ctx, sess, http.MethodGet, "/v1/people/search", nil, filters.query(), oauthToken)
	if err != nil {
		c.log.Warn("search leads failed", zap.Error(err))
		return nil, err
	}

	res, err := ParseSearchResponse(data, nowFunc())
	if err != nil {
		c.log.Warn("search leads failed", zap.Error(err))
		return nil, err
	}
	return res, nil
}

type Criteria struct {
	JobTitles  []string `json:"jobTitles"`
	Industries []string `json:"industries"`
	Locations  []string `json:"locations"`
	MaxLeads   int      `json:"max_leads"`
}

type FetchResult struct {
	FetchingStarted bool   `json:"fetchingStarted"`
	EstimatedLeads  int    `json:"estimatedLeads"`
	Message         string `json:"message"`
}

func (c *Client) StartLeadFetching(ctx context.Context, sess auth.Session, providerCampaignID string, criteria Criteria, campaignID *uuid.UUID, oauthToken string) (*FetchResult, error) {
	perPage := criteria.MaxLeads
	if perPage <= 0 {
		perPage = 100
	}
	body := map[string]any{
		"q_organization_job_titles": strings.Join(criteria.JobTitles, ","),
		"q_organization_industries": strings.Join(criteria.Industries, ","),
		"q_person_locations":        strings.Join(criteria.Locations, ","),
		"per_page":                  perPage,
	}

	endpoint := "/v1/people/bulk_search/" + url.PathEscape(providerCampaignID)
	data, err := c.call(ctx, sess, http.MethodPost, endpoint, body, nil, oauthToken)
	if err != nil {
		c.log.Warn("start lead fetching failed", zap.Error(err))
		return nil, err
	}

	var payload struct {
		Pagination pagination `json:"pagination"`
		Message    string     `json:"message"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode bulk search response: %w", err)
		}
	}

	if campaignID != nil && c.statuses != nil {
		if _, err := c.statuses.UpdateCampaignStatus(ctx, *campaignID, models.CampaignStatusCompleted); err != nil {
			c.log.Error("failed to mark campaign completed",
				zap.String("campaign_id", campaignID.String()),
				zap.Error(err),
			)
		}
	}

	msg := payload.Message
	if msg == "" {
		msg = "Lead fetching started successfully"
	}
	return &FetchResult{
		FetchingStarted: true,
		EstimatedLeads:  payload.Pagination.totalEntries(),
		Message:         msg,
	}, nil
}

type Validation struct {
	Valid   bool `json:"valid"`
	Account any  `json:"account"`
}

func (c *Client) ValidateConnection(ctx context.Context, sess auth.Session, oauthToken string) (*Validation, error) {
	data, err := c.call(ctx, sess, http.MethodGet, "/v1/auth/validate", nil, nil, oauthToken)
	if err != nil {
		c.log.Warn("validate connection failed", zap.Error(err))
		return nil, err
	}

	var payload struct {
		Valid       bool `json:"valid"`
		AccountInfo any  `json:"account_info"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode validation response: %w", err)
		}
	}
	return &Validation{Valid: payload.Valid, Account: payload.AccountInfo}, nil
}

func excerpt(raw []byte, n int) string {
	runes := []rune(string(raw))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n])
}
