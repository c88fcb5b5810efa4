package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leadgen-dashboard/backend/internal/models"
)

const campaignColumns = `id, user_id, name, target_job_titles, target_industries, target_locations,
	       message, max_leads, campaign_status, leads_generated, created_at, updated_at`

type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.TargetJobTitles, &c.TargetIndustries,
		&c.TargetLocations, &c.Message, &c.MaxLeads, &c.CampaignStatus, &c.LeadsGenerated,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO campaigns_new (user_id, name, target_job_titles, target_industries, target_locations,
		                           message, max_leads, campaign_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, leads_generated, created_at, updated_at
	`, c.UserID, c.Name, c.TargetJobTitles, c.TargetIndustries, c.TargetLocations,
		c.Message, c.MaxLeads, c.CampaignStatus,
	).Scan(&c.ID, &c.LeadsGenerated, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return scanCampaign(r.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns_new WHERE id = $1`, id))
}

func (r *CampaignRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Campaign, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns_new WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepo) Update(ctx context.Context, id uuid.UUID, u models.CampaignUpdate) (*models.Campaign, error) {
	sets := []string{}
	args := []any{}
	argIdx := 1

	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}
	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.TargetJobTitles != nil {
		add("target_job_titles", u.TargetJobTitles)
	}
	if u.TargetIndustries != nil {
		add("target_industries", u.TargetIndustries)
	}
	if u.TargetLocations != nil {
		add("target_locations", u.TargetLocations)
	}
	if u.Message != nil {
		add("message", *u.Message)
	}
	if u.MaxLeads != nil {
		add("max_leads", *u.MaxLeads)
	}
	sets = append(sets, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE campaigns_new SET %s WHERE id = $%d RETURNING `+campaignColumns,
		strings.Join(sets, ", "), argIdx)
	args = append(args, id)

	return scanCampaign(r.pool.QueryRow(ctx, query, args...))
}

func (r *CampaignRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Campaign, error) {
	return scanCampaign(r.pool.QueryRow(ctx, `
		UPDATE campaigns_new SET campaign_status = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+campaignColumns, status, id))
}

// Complete marks a generation run finished and records how many leads it stored.
func (r *CampaignRepo) Complete(ctx context.Context, id uuid.UUID, leadsGenerated int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns_new SET campaign_status = $1, leads_generated = $2, updated_at = now()
		WHERE id = $3
	`, models.CampaignStatusCompleted, leadsGenerated, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM campaigns_new WHERE id = $1`, id)
	return err
}
