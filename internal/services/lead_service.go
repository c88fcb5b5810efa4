package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leadgen-dashboard/backend/internal/models"
	"github.com/leadgen-dashboard/backend/internal/repositories"
	"go.uber.org/zap"
)

var (
	ErrLeadNotFound    = errors.New("Lead not found")
	ErrLeadNameMissing = errors.New("full name is required")
)

type ContactStore interface {
	InsertBatch(ctx context.Context, leads []models.Lead) error
	Create(ctx context.Context, l *models.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	ListByUser(ctx context.Context, f repositories.LeadFilter) ([]models.Lead, error)
	Update(ctx context.Context, id uuid.UUID, u models.LeadUpdate) (*models.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LeadService manages stored leads as the user's contact book.
type LeadService struct {
	leads     ContactStore
	campaigns CampaignStore
	now       func() time.Time
	log       *zap.Logger
}

func NewLeadService(leads ContactStore, campaigns CampaignStore, log *zap.Logger) *LeadService {
	return &LeadService{leads: leads, campaigns: campaigns, now: time.Now, log: log}
}

func (s *LeadService) ListLeads(ctx context.Context, userID uuid.UUID, query string) ([]models.Lead, error) {
	return s.leads.ListByUser(ctx, repositories.LeadFilter{
		UserID: userID,
		Query:  strings.TrimSpace(query),
	})
}

func (s *LeadService) CreateLead(ctx context.Context, userID uuid.UUID, l *models.Lead) error {
	if _, err := s.ownedCampaign(ctx, l.CampaignID, userID); err != nil {
		return err
	}
	if err := s.prepare(userID, l, 0); err != nil {
		return err
	}
	return s.leads.Create(ctx, l)
}

// ImportLeads stores a batch of contacts into one of the user's campaigns. Rows
// without a name are rejected as a whole.
func (s *LeadService) ImportLeads(ctx context.Context, userID, campaignID uuid.UUID, leads []models.Lead) (int, error) {
	if _, err := s.ownedCampaign(ctx, campaignID, userID); err != nil {
		return 0, err
	}

	for i := range leads {
		leads[i].CampaignID = campaignID
		if err := s.prepare(userID, &leads[i], i); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	if err := s.leads.InsertBatch(ctx, leads); err != nil {
		return 0, err
	}
	s.log.Info("leads imported",
		zap.String("campaign_id", campaignID.String()),
		zap.Int("count", len(leads)),
	)
	return len(leads), nil
}

func (s *LeadService) UpdateLead(ctx context.Context, id, userID uuid.UUID, u models.LeadUpdate) (*models.Lead, error) {
	if _, err := s.ownedLead(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.leads.Update(ctx, id, u)
}

func (s *LeadService) DeleteLead(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.ownedLead(ctx, id, userID); err != nil {
		return err
	}
	return s.leads.Delete(ctx, id)
}

func (s *LeadService) prepare(userID uuid.UUID, l *models.Lead, index int) error {
	l.FullName = strings.TrimSpace(l.FullName)
	if l.FullName == "" {
		l.FullName = strings.TrimSpace(l.FirstName + " " + l.LastName)
	}
	if l.FullName == "" {
		return ErrLeadNameMissing
	}

	now := s.now()
	l.UserID = userID
	l.CreatedAt = now
	l.UpdatedAt = now
	if l.ApolloLeadID == "" {
		l.ApolloLeadID = fmt.Sprintf("manual_%d_%d", now.UnixMilli(), index)
	}
	return nil
}

func (s *LeadService) ownedCampaign(ctx context.Context, id, userID uuid.UUID) (*models.Campaign, error) {
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

func (s *LeadService) ownedLead(ctx context.Context, id, userID uuid.UUID) (*models.Lead, error) {
	l, err := s.leads.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	if l.UserID != userID {
		return nil, ErrLeadNotFound
	}
	return l, nil
}
