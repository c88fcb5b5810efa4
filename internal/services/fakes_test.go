package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leadgen-dashboard/backend/internal/apollo"
	"github.com/leadgen-dashboard/backend/internal/auth"
	"github.com/leadgen-dashboard/backend/internal/events"
	"github.com/leadgen-dashboard/backend/internal/models"
	"github.com/leadgen-dashboard/backend/internal/repositories"
)

type fakeCampaigns struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*models.Campaign
	statusCalls []string
	storeCalls  int
	completeErr error
	getErr      error
}

func newFakeCampaigns(cs ...*models.Campaign) *fakeCampaigns {
	f := &fakeCampaigns{byID: map[uuid.UUID]*models.Campaign{}}
	for _, c := range cs {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCampaigns) Create(_ context.Context, c *models.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeCalls++
	c.ID = uuid.New()
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCampaigns) GetByID(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampaigns) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Campaign
	for _, c := range f.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCampaigns) Update(_ context.Context, id uuid.UUID, u models.CampaignUpdate) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeCalls++
	c, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampaigns) UpdateStatus(_ context.Context, id uuid.UUID, status string) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeCalls++
	c, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c.CampaignStatus = status
	f.statusCalls = append(f.statusCalls, status)
	cp := *c
	return &cp, nil
}

func (f *fakeCampaigns) Complete(_ context.Context, id uuid.UUID, leadsGenerated int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeCalls++
	if f.completeErr != nil {
		return f.completeErr
	}
	c, ok := f.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.CampaignStatus = models.CampaignStatusCompleted
	c.LeadsGenerated = leadsGenerated
	f.statusCalls = append(f.statusCalls, models.CampaignStatusCompleted)
	return nil
}

func (f *fakeCampaigns) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeCalls++
	delete(f.byID, id)
	return nil
}

func (f *fakeCampaigns) status(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].CampaignStatus
}

type fakeLeads struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*models.Lead
	inserted  []models.Lead
	insertErr error
	listErr   error
	markErr   map[uuid.UUID]error
}

func newFakeLeads(ls ...models.Lead) *fakeLeads {
	f := &fakeLeads{rows: map[uuid.UUID]*models.Lead{}, markErr: map[uuid.UUID]error{}}
	for i := range ls {
		l := ls[i]
		f.rows[l.ID] = &l
	}
	return f
}

func (f *fakeLeads) InsertBatch(_ context.Context, leads []models.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	for i := range leads {
		leads[i].ID = uuid.New()
		l := leads[i]
		f.rows[l.ID] = &l
	}
	f.inserted = append(f.inserted, leads...)
	return nil
}

func (f *fakeLeads) Create(_ context.Context, l *models.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = uuid.New()
	cp := *l
	f.rows[l.ID] = &cp
	return nil
}

func (f *fakeLeads) GetByID(_ context.Context, id uuid.UUID) (*models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeads) ListByCampaign(_ context.Context, campaignID uuid.UUID) ([]models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Lead
	for _, l := range f.rows {
		if l.CampaignID == campaignID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeLeads) ListByUser(_ context.Context, filter repositories.LeadFilter) ([]models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Lead
	for _, l := range f.rows {
		if l.UserID == filter.UserID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeLeads) Update(_ context.Context, id uuid.UUID, u models.LeadUpdate) (*models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if u.JobTitle != nil {
		l.JobTitle = *u.JobTitle
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeads) MarkMessageSent(_ context.Context, id uuid.UUID, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.markErr[id]; err != nil {
		return err
	}
	l, ok := f.rows[id]
	if !ok {
		return repositories.ErrNotFound
	}
	l.MessageSent = true
	l.MessageSentAt = &sentAt
	return nil
}

func (f *fakeLeads) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

type fakeSearcher struct {
	result  *apollo.SearchResult
	err     error
	panics  bool
	got     apollo.SearchFilters
	gotAuth string
}

func (f *fakeSearcher) SearchLeads(_ context.Context, _ auth.Session, filters apollo.SearchFilters, oauthToken string) (*apollo.SearchResult, error) {
	f.got = filters
	f.gotAuth = oauthToken
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeSender struct {
	mu     sync.Mutex
	sent   map[uuid.UUID]string
	fail   map[uuid.UUID]bool
	panics map[uuid.UUID]bool
}

func (f *fakeSender) Send(_ context.Context, lead models.Lead, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics[lead.ID] {
		panic("boom")
	}
	if f.fail[lead.ID] {
		return errors.New("webhook rejected")
	}
	if f.sent == nil {
		f.sent = map[uuid.UUID]string{}
	}
	f.sent[lead.ID] = message
	return nil
}

type fakeTokens struct {
	tokens map[uuid.UUID]string
	getErr error
}

func (f *fakeTokens) Upsert(_ context.Context, userID uuid.UUID, accessToken string) error {
	if f.tokens == nil {
		f.tokens = map[uuid.UUID]string{}
	}
	f.tokens[userID] = accessToken
	return nil
}

func (f *fakeTokens) Get(_ context.Context, userID uuid.UUID) (*models.UserToken, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	t, ok := f.tokens[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &models.UserToken{UserID: userID, ApolloAccessToken: t}, nil
}

type fakeExchanger struct {
	token string
	err   error
}

func (f fakeExchanger) ExchangeCode(context.Context, string) (string, error) {
	return f.token, f.err
}
