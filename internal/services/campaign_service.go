package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leadgen-dashboard/backend/internal/apollo"
	"github.com/leadgen-dashboard/backend/internal/auth"
	"github.com/leadgen-dashboard/backend/internal/events"
	"github.com/leadgen-dashboard/backend/internal/models"
	"github.com/leadgen-dashboard/backend/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrCampaignNotFound = errors.New("Campaign not found")
	ErrInvalidStatus    = errors.New("Invalid campaign status")
)

// WorkflowError is a failure of a multi-step campaign workflow. Retryable tells
// the caller that re-running the same workflow is expected to be safe.
type WorkflowError struct {
	Message   string
	Retryable bool
	Err       error
}

func (e *WorkflowError) Error() string { return e.Message }
func (e *WorkflowError) Unwrap() error { return e.Err }

type CampaignStore interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Campaign, error)
	Update(ctx context.Context, id uuid.UUID, u models.CampaignUpdate) (*models.Campaign, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Campaign, error)
	Complete(ctx context.Context, id uuid.UUID, leadsGenerated int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type LeadStore interface {
	InsertBatch(ctx context.Context, leads []models.Lead) error
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Lead, error)
	MarkMessageSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
}

type LeadSearcher interface {
	SearchLeads(ctx context.Context, sess auth.Session, filters apollo.SearchFilters, oauthToken string) (*apollo.SearchResult, error)
}

// OutreachSender delivers a personalised message to one lead.
type OutreachSender interface {
	Send(ctx context.Context, lead models.Lead, message string) error
}

type CampaignService struct {
	campaigns       CampaignStore
	leads           LeadStore
	searcher        LeadSearcher
	sender          OutreachSender
	publisher       events.Publisher
	sendConcurrency int
	now             func() time.Time
	log             *zap.Logger
}

func NewCampaignService(
	campaigns CampaignStore,
	leads LeadStore,
	searcher LeadSearcher,
	publisher events.Publisher,
	sendConcurrency int,
	log *zap.Logger,
) *CampaignService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if sendConcurrency <= 0 {
		sendConcurrency = 1
	}
	return &CampaignService{
		campaigns:       campaigns,
		leads:           leads,
		searcher:        searcher,
		publisher:       publisher,
		sendConcurrency: sendConcurrency,
		now:             time.Now,
		log:             log,
	}
}

// WithSender enables outreach delivery in SendCampaignMessages.
func (s *CampaignService) WithSender(sender OutreachSender) *CampaignService {
	s.sender = sender
	return s
}

func (s *CampaignService) GetCampaigns(ctx context.Context, userID uuid.UUID) ([]models.Campaign, error) {
	return s.campaigns.ListByUser(ctx, userID)
}

// GetCampaign returns the campaign only when it belongs to userID.
func (s *CampaignService) GetCampaign(ctx context.Context, id, userID uuid.UUID) (*models.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	if c.UserID != userID {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

func (s *CampaignService) CreateCampaign(ctx context.Context, userID uuid.UUID, c *models.Campaign) error {
	c.UserID = userID
	c.CampaignStatus = models.CampaignStatusNotStarted
	if err := s.campaigns.Create(ctx, c); err != nil {
		return err
	}
	s.log.Info("campaign created", zap.String("campaign_id", c.ID.String()), zap.String("user_id", userID.String()))
	return nil
}

func (s *CampaignService) UpdateCampaign(ctx context.Context, id, userID uuid.UUID, u models.CampaignUpdate) (*models.Campaign, error) {
	if _, err := s.GetCampaign(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.campaigns.Update(ctx, id, u)
}

func (s *CampaignService) DeleteCampaign(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.GetCampaign(ctx, id, userID); err != nil {
		return err
	}
	return s.campaigns.Delete(ctx, id)
}

// UpdateCampaignStatus rejects values outside the status enum before touching the store.
func (s *CampaignService) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status string) (*models.Campaign, error) {
	if !models.IsValidCampaignStatus(status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	c, err := s.campaigns.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	s.publishStatus(ctx, c.ID, c.UserID, status)
	return c, nil
}

func (s *CampaignService) publishStatus(ctx context.Context, campaignID, userID uuid.UUID, status string) {
	_ = s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
		Type: events.EventCampaignStatusChanged,
		Payload: map[string]any{
			"campaign_id": campaignID.String(),
			"user_id":     userID.String(),
			"status":      status,
		},
	})
}

// markFailed is best-effort: its own failure is logged and swallowed.
func (s *CampaignService) markFailed(ctx context.Context, campaignID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.UpdateCampaignStatus(ctx, campaignID, models.CampaignStatusFailed); err != nil {
		s.log.Error("failed to mark campaign failed",
			zap.String("campaign_id", campaignID.String()),
			zap.Error(err),
		)
	}
}

type GenerateResult struct {
	LeadsGenerated int       `json:"leadsGenerated"`
	TotalAvailable int       `json:"totalAvailable"`
	HasMore        bool      `json:"hasMore"`
	CampaignID     uuid.UUID `json:"campaignId"`
}

// GenerateLeadsForCampaign runs one search-and-store pass for a campaign. Once the
// campaign is found, it always ends in completed or failed.
func (s *CampaignService) GenerateLeadsForCampaign(
	ctx context.Context,
	sess auth.Session,
	campaignID uuid.UUID,
	filters apollo.SearchFilters,
	oauthToken string,
) (res *GenerateResult, err error) {
	log := s.log.With(zap.String("campaign_id", campaignID.String()))
	log.Info("starting lead generation")

	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &WorkflowError{Message: ErrCampaignNotFound.Error(), Err: ErrCampaignNotFound}
		}
		log.Error("load campaign failed", zap.Error(err))
		return nil, &WorkflowError{Message: "Failed to generate leads: " + err.Error(), Retryable: true, Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("lead generation panicked", zap.Any("panic", r))
			s.markFailed(ctx, campaignID)
			res = nil
			err = &WorkflowError{Message: fmt.Sprintf("Failed to generate leads: %v", r), Retryable: true}
		}
	}()

	unexpected := func(cause error) error {
		log.Error("lead generation error", zap.Error(cause))
		s.markFailed(ctx, campaignID)
		return &WorkflowError{Message: "Failed to generate leads: " + cause.Error(), Retryable: true, Err: cause}
	}

	if _, err := s.UpdateCampaignStatus(ctx, campaignID, models.CampaignStatusProcessing); err != nil {
		return nil, unexpected(err)
	}

	search := mergeTargeting(campaign, filters)
	result, err := s.searcher.SearchLeads(ctx, sess, search, oauthToken)
	if err != nil {
		log.Warn("apollo search failed", zap.Error(err))
		s.markFailed(ctx, campaignID)
		return nil, &WorkflowError{Message: "Apollo API Error: " + err.Error(), Retryable: true, Err: err}
	}

	now := s.now()
	leads := make([]models.Lead, len(result.Leads))
	for i, l := range result.Leads {
		l.CampaignID = campaign.ID
		l.UserID = campaign.UserID
		l.CreatedAt = now
		l.UpdatedAt = now
		leads[i] = l
	}

	if len(leads) > 0 {
		if err := s.leads.InsertBatch(ctx, leads); err != nil {
			log.Error("insert leads failed", zap.Int("count", len(leads)), zap.Error(err))
			s.markFailed(ctx, campaignID)
			return nil, &WorkflowError{Message: "Failed to insert leads", Err: err}
		}
	}

	if err := s.campaigns.Complete(ctx, campaignID, len(leads)); err != nil {
		return nil, unexpected(err)
	}
	s.publishStatus(ctx, campaign.ID, campaign.UserID, models.CampaignStatusCompleted)
	_ = s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
		Type: events.EventLeadsGenerated,
		Payload: map[string]any{
			"campaign_id":     campaign.ID.String(),
			"user_id":         campaign.UserID.String(),
			"leads_generated": len(leads),
		},
	})

	log.Info("lead generation completed", zap.Int("leads", len(leads)), zap.Int("total_available", result.Total))
	return &GenerateResult{
		LeadsGenerated: len(leads),
		TotalAvailable: result.Total,
		HasMore:        result.HasMore,
		CampaignID:     campaignID,
	}, nil
}

// mergeTargeting prefers the campaign's stored criteria over the caller's filters.
func mergeTargeting(c *models.Campaign, f apollo.SearchFilters) apollo.SearchFilters {
	limit := f.Limit
	if limit <= 0 {
		limit = 5
	}
	return apollo.SearchFilters{
		JobTitles:    firstList(c.TargetJobTitles, f.JobTitles),
		Industries:   firstList(c.TargetIndustries, f.Industries),
		Locations:    firstList(c.TargetLocations, f.Locations),
		CompanySizes: firstList(f.CompanySizes),
		Limit:        limit,
	}
}

// firstList returns the first non-nil list, or an empty one.
func firstList(lists ...[]string) []string {
	for _, l := range lists {
		if l != nil {
			return l
		}
	}
	return []string{}
}

type SendOutcome struct {
	LeadID  uuid.UUID `json:"leadId"`
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   string    `json:"error,omitempty"`
}

type SendResult struct {
	MessagesSent int           `json:"messagesSent"`
	TotalLeads   int           `json:"totalLeads"`
	Results      []SendOutcome `json:"results"`
}

// SendCampaignMessages personalises the campaign message for every lead and marks
// each one sent. Per-lead failures are counted, never fatal.
func (s *CampaignService) SendCampaignMessages(ctx context.Context, campaignID uuid.UUID) (*SendResult, error) {
	log := s.log.With(zap.String("campaign_id", campaignID.String()))

	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, &WorkflowError{Message: ErrCampaignNotFound.Error(), Err: ErrCampaignNotFound}
	}

	leads, err := s.leads.ListByCampaign(ctx, campaignID)
	if err != nil {
		log.Error("fetch leads failed", zap.Error(err))
		return nil, &WorkflowError{Message: "Failed to fetch leads for campaign", Err: err}
	}

	results := make([]SendOutcome, len(leads))
	var g errgroup.Group
	g.SetLimit(s.sendConcurrency)
	for i, lead := range leads {
		g.Go(func() error {
			results[i] = s.sendOne(ctx, campaign, lead)
			return nil
		})
	}
	_ = g.Wait()

	sent := 0
	for _, r := range results {
		if r.Success {
			sent++
		}
	}

	_ = s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
		Type: events.EventMessagesSent,
		Payload: map[string]any{
			"campaign_id":   campaign.ID.String(),
			"user_id":       campaign.UserID.String(),
			"messages_sent": sent,
			"total_leads":   len(leads),
		},
	})

	log.Info("campaign messages sent", zap.Int("sent", sent), zap.Int("total", len(leads)))
	return &SendResult{MessagesSent: sent, TotalLeads: len(leads), Results: results}, nil
}

// sendOne runs on an errgroup goroutine, so a panic is recovered here and
// recorded as a failed outcome for that lead only.
func (s *CampaignService) sendOne(ctx context.Context, campaign *models.Campaign, lead models.Lead) (out SendOutcome) {
	out = SendOutcome{
		LeadID:  lead.ID,
		Message: Personalize(campaign.Message, lead.FirstName),
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("send panicked", zap.String("lead_id", lead.ID.String()), zap.Any("panic", r))
			out.Success = false
			out.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	if s.sender != nil {
		if err := s.sender.Send(ctx, lead, out.Message); err != nil {
			s.log.Error("failed to deliver message", zap.String("lead_id", lead.ID.String()), zap.Error(err))
			out.Error = err.Error()
			return out
		}
	}

	if err := s.leads.MarkMessageSent(ctx, lead.ID, s.now()); err != nil {
		s.log.Error("failed to update lead", zap.String("lead_id", lead.ID.String()), zap.Error(err))
		out.Error = err.Error()
		return out
	}

	out.Success = true
	return out
}
