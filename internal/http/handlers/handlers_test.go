package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/leadgen-dashboard/backend/internal/apollo"
	"github.com/leadgen-dashboard/backend/internal/auth"
	"github.com/leadgen-dashboard/backend/internal/config"
	"github.com/leadgen-dashboard/backend/internal/middleware"
	"github.com/leadgen-dashboard/backend/internal/models"
	"github.com/leadgen-dashboard/backend/internal/repositories"
	"github.com/leadgen-dashboard/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "handler-secret"

type memCampaigns struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.Campaign
}

func (m *memCampaigns) Create(_ context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	m.rows[c.ID] = *c
	return nil
}

func (m *memCampaigns) GetByID(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (m *memCampaigns) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Campaign
	for _, c := range m.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCampaigns) Update(_ context.Context, id uuid.UUID, u models.CampaignUpdate) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.rows[id]
	if u.Name != nil {
		c.Name = *u.Name
	}
	m.rows[id] = c
	return &c, nil
}

func (m *memCampaigns) UpdateStatus(_ context.Context, id uuid.UUID, status string) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c.CampaignStatus = status
	m.rows[id] = c
	return &c, nil
}

func (m *memCampaigns) Complete(_ context.Context, id uuid.UUID, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.rows[id]
	c.CampaignStatus = models.CampaignStatusCompleted
	c.LeadsGenerated = n
	m.rows[id] = c
	return nil
}

func (m *memCampaigns) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type memLeads struct {
	mu   sync.Mutex
	rows []models.Lead
}

func (m *memLeads) InsertBatch(_ context.Context, leads []models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range leads {
		leads[i].ID = uuid.New()
	}
	m.rows = append(m.rows, leads...)
	return nil
}

func (m *memLeads) Create(_ context.Context, l *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.New()
	m.rows = append(m.rows, *l)
	return nil
}

func (m *memLeads) GetByID(_ context.Context, id uuid.UUID) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.rows {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memLeads) ListByCampaign(_ context.Context, campaignID uuid.UUID) ([]models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Lead
	for _, l := range m.rows {
		if l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLeads) ListByUser(_ context.Context, f repositories.LeadFilter) ([]models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Lead
	for _, l := range m.rows {
		if l.UserID == f.UserID && strings.Contains(strings.ToLower(l.FullName), strings.ToLower(f.Query)) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLeads) Update(ctx context.Context, id uuid.UUID, _ models.LeadUpdate) (*models.Lead, error) {
	return m.GetByID(ctx, id)
}

func (m *memLeads) MarkMessageSent(context.Context, uuid.UUID, time.Time) error { return nil }

func (m *memLeads) Delete(context.Context, uuid.UUID) error { return nil }

type memTokens struct{ token string }

func (m *memTokens) Upsert(_ context.Context, _ uuid.UUID, t string) error {
	m.token = t
	return nil
}

func (m *memTokens) Get(_ context.Context, userID uuid.UUID) (*models.UserToken, error) {
	if m.token == "" {
		return nil, repositories.ErrNotFound
	}
	return &models.UserToken{UserID: userID, ApolloAccessToken: m.token}, nil
}

type stubApollo struct {
	searchErr error
	gotToken  string
	fetchID   *uuid.UUID
}

func (s *stubApollo) SearchLeads(_ context.Context, _ auth.Session, _ apollo.SearchFilters, token string) (*apollo.SearchResult, error) {
	s.gotToken = token
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return &apollo.SearchResult{
		Leads: []models.Lead{{FullName: "Ann Lee", FirstName: "Ann"}},
		Total: 12,
	}, nil
}

func (s *stubApollo) ValidateConnection(_ context.Context, _ auth.Session, token string) (*apollo.Validation, error) {
	s.gotToken = token
	return &apollo.Validation{Valid: true}, nil
}

func (s *stubApollo) StartLeadFetching(_ context.Context, _ auth.Session, _ string, _ apollo.Criteria, id *uuid.UUID, token string) (*apollo.FetchResult, error) {
	s.fetchID = id
	s.gotToken = token
	return &apollo.FetchResult{FetchingStarted: true, EstimatedLeads: 30, Message: "Lead fetching started successfully"}, nil
}

type exchanger struct{}

func (exchanger) ExchangeCode(_ context.Context, code string) (string, error) {
	if code == "bad" {
		return "", &apollo.APIError{Status: 400, Message: "invalid_grant"}
	}
	return "at-" + code, nil
}

type testEnv struct {
	app       *fiber.App
	campaigns *memCampaigns
	leads     *memLeads
	tokens    *memTokens
	apollo    *stubApollo
	userID    uuid.UUID
	token     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	env := &testEnv{
		campaigns: &memCampaigns{rows: map[uuid.UUID]models.Campaign{}},
		leads:     &memLeads{},
		tokens:    &memTokens{},
		apollo:    &stubApollo{},
		userID:    uuid.New(),
	}
	var err error
	env.token, err = auth.GenerateJWT(testSecret, env.userID, "ann@acme.io", time.Hour)
	require.NoError(t, err)

	campaignSvc := services.NewCampaignService(env.campaigns, env.leads, env.apollo, nil, 2, log)
	tokenSvc := services.NewTokenService(env.tokens, exchanger{}, log)
	leadSvc := services.NewLeadService(env.leads, env.campaigns, log)

	ch := NewCampaignHandler(campaignSvc, tokenSvc, log)
	lh := NewLeadHandler(leadSvc, log)
	ah := NewApolloHandler(env.apollo, campaignSvc, tokenSvc, log)

	app := fiber.New()
	api := app.Group("/api/v1", middleware.AuthMiddleware(&config.Config{SessionJWTSecret: testSecret}, log))
	api.Post("/campaigns", ch.CreateCampaign)
	api.Get("/campaigns", ch.ListCampaigns)
	api.Get("/campaigns/:id", ch.GetCampaign)
	api.Delete("/campaigns/:id", ch.DeleteCampaign)
	api.Put("/campaigns/:id/status", ch.UpdateStatus)
	api.Post("/campaigns/:id/generate-leads", ch.GenerateLeads)
	api.Post("/campaigns/:id/send-messages", ch.SendMessages)
	api.Post("/campaigns/:id/start-fetching", ah.StartFetching)
	api.Get("/leads", lh.ListLeads)
	api.Post("/leads/import", lh.ImportLeads)
	api.Get("/apollo/validate", ah.Validate)
	api.Post("/apollo/oauth/callback", ah.OAuthCallback)
	env.app = app
	return env
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Retryable bool            `json:"retryable"`
}

func (e *testEnv) do(t *testing.T, method, target, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Authorization", "Bearer "+e.token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

func (e *testEnv) seedCampaign(owner uuid.UUID) models.Campaign {
	c := models.Campaign{
		ID:             uuid.New(),
		UserID:         owner,
		Name:           "Q3",
		Message:        "Hi {{firstName}}!",
		CampaignStatus: models.CampaignStatusNotStarted,
	}
	e.campaigns.rows[c.ID] = c
	return c
}

func TestCampaignHandler_Create(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, "POST", "/api/v1/campaigns", `{"name":"Q3","message":"Hi {{firstName}}","target_job_titles":["CTO"]}`)
	require.Equal(t, fiber.StatusCreated, status)
	assert.True(t, body.Success)

	var c models.Campaign
	require.NoError(t, json.Unmarshal(body.Data, &c))
	assert.Equal(t, models.CampaignStatusNotStarted, c.CampaignStatus)
	assert.Equal(t, env.userID, c.UserID)
	assert.Equal(t, []string{"CTO"}, c.TargetJobTitles)

	status, body = env.do(t, "POST", "/api/v1/campaigns", `{"message":"x"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, body.Success)
}

func TestCampaignHandler_RequiresSession(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/campaigns", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCampaignHandler_Ownership(t *testing.T) {
	env := newTestEnv(t)
	foreign := env.seedCampaign(uuid.New())

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/v1/campaigns/" + foreign.ID.String()},
		{"DELETE", "/api/v1/campaigns/" + foreign.ID.String()},
		{"POST", "/api/v1/campaigns/" + foreign.ID.String() + "/generate-leads"},
		{"POST", "/api/v1/campaigns/" + foreign.ID.String() + "/send-messages"},
	} {
		status, body := env.do(t, tc.method, tc.path, "")
		assert.Equal(t, fiber.StatusNotFound, status, tc.path)
		assert.Equal(t, "Campaign not found", body.Error)
	}
	assert.Contains(t, env.campaigns.rows, foreign.ID)

	status, _ := env.do(t, "GET", "/api/v1/campaigns/not-a-uuid", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCampaignHandler_UpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCampaign(env.userID)
	path := "/api/v1/campaigns/" + c.ID.String() + "/status"

	status, body := env.do(t, "PUT", path, `{"status":"paused"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid campaign status: paused", body.Error)
	assert.Equal(t, models.CampaignStatusNotStarted, env.campaigns.rows[c.ID].CampaignStatus)

	status, body = env.do(t, "PUT", path, `{"status":"processing"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, body.Success)
	assert.Equal(t, models.CampaignStatusProcessing, env.campaigns.rows[c.ID].CampaignStatus)
}

func TestCampaignHandler_GenerateLeads(t *testing.T) {
	env := newTestEnv(t)
	env.tokens.token = "stored-oauth"
	c := env.seedCampaign(env.userID)

	status, body := env.do(t, "POST", "/api/v1/campaigns/"+c.ID.String()+"/generate-leads", `{"filters":{"limit":10}}`)
	require.Equal(t, fiber.StatusOK, status, body.Error)

	var res services.GenerateResult
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, 1, res.LeadsGenerated)
	assert.Equal(t, 12, res.TotalAvailable)
	assert.Equal(t, "stored-oauth", env.apollo.gotToken)
	assert.Equal(t, models.CampaignStatusCompleted, env.campaigns.rows[c.ID].CampaignStatus)
}

func TestCampaignHandler_GenerateLeadsSearchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.apollo.searchErr = apollo.ErrUnreachable
	c := env.seedCampaign(env.userID)

	status, body := env.do(t, "POST", "/api/v1/campaigns/"+c.ID.String()+"/generate-leads", "")
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.False(t, body.Success)
	assert.True(t, body.Retryable)
	assert.True(t, strings.HasPrefix(body.Error, "Apollo API Error: "))
	assert.Equal(t, models.CampaignStatusFailed, env.campaigns.rows[c.ID].CampaignStatus)
}

func TestCampaignHandler_SendMessages(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCampaign(env.userID)
	env.leads.rows = []models.Lead{
		{ID: uuid.New(), CampaignID: c.ID, FirstName: "Ann"},
		{ID: uuid.New(), CampaignID: c.ID},
	}

	status, body := env.do(t, "POST", "/api/v1/campaigns/"+c.ID.String()+"/send-messages", "")
	require.Equal(t, fiber.StatusOK, status)

	var res services.SendResult
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, 2, res.MessagesSent)
	assert.Equal(t, 2, res.TotalLeads)
}

func TestApolloHandler_StartFetching(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCampaign(env.userID)
	path := "/api/v1/campaigns/" + c.ID.String() + "/start-fetching"

	status, _ := env.do(t, "POST", path, `{"criteria":{}}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := env.do(t, "POST", path, `{"apolloCampaignId":"ap-1","oauthToken":"explicit"}`)
	require.Equal(t, fiber.StatusOK, status)

	var res apollo.FetchResult
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.True(t, res.FetchingStarted)
	assert.Equal(t, 30, res.EstimatedLeads)
	require.NotNil(t, env.apollo.fetchID)
	assert.Equal(t, c.ID, *env.apollo.fetchID)
	assert.Equal(t, "explicit", env.apollo.gotToken)
}

func TestApolloHandler_OAuthAndValidate(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, "POST", "/api/v1/apollo/oauth/callback", `{"code":"bad"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_grant", body.Error)
	assert.False(t, body.Retryable)

	status, _ = env.do(t, "POST", "/api/v1/apollo/oauth/callback", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, "POST", "/api/v1/apollo/oauth/callback", `{"code":"c1"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "at-c1", env.tokens.token)

	status, body = env.do(t, "GET", "/api/v1/apollo/validate", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"valid":true,"account":null}`, string(body.Data))
	assert.Equal(t, "at-c1", env.apollo.gotToken)
}

func TestLeadHandler_ImportAndList(t *testing.T) {
	env := newTestEnv(t)
	c := env.seedCampaign(env.userID)

	status, body := env.do(t, "POST", "/api/v1/leads/import",
		`{"campaign_id":"`+c.ID.String()+`","leads":[{"full_name":"Ann Lee"},{"first_name":"Bob","last_name":"Stone"}]}`)
	require.Equal(t, fiber.StatusCreated, status, body.Error)
	assert.JSONEq(t, `{"imported":2}`, string(body.Data))

	status, body = env.do(t, "GET", "/api/v1/leads?q=stone", "")
	require.Equal(t, fiber.StatusOK, status)
	var leads []models.Lead
	require.NoError(t, json.Unmarshal(body.Data, &leads))
	require.Len(t, leads, 1)
	assert.Equal(t, "Bob Stone", leads[0].FullName)

	status, _ = env.do(t, "POST", "/api/v1/leads/import", `{"campaign_id":"`+c.ID.String()+`","leads":[]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
