package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leadgen-dashboard/backend/internal/models"
)

const leadColumns = `l.id, l.campaign_id, l.user_id, l.full_name, l.first_name, l.last_name, l.job_title,
	       l.company, l.location, l.linkedin_url, l.email, l.phone, l.profile_image_url, l.apollo_lead_id,
	       l.lead_data, l.message_sent, l.message_sent_at, l.created_at, l.updated_at`

const insertLeadSQL = `
	INSERT INTO apollo_leads (campaign_id, user_id, full_name, first_name, last_name, job_title, company,
	                          location, linkedin_url, email, phone, profile_image_url, apollo_lead_id,
	                          lead_data, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING id`

type LeadRepo struct {
	pool *pgxpool.Pool
}

func NewLeadRepo(pool *pgxpool.Pool) *LeadRepo {
	return &LeadRepo{pool: pool}
}

func scanLead(row pgx.Row, extra ...any) (*models.Lead, error) {
	var l models.Lead
	dest := []any{&l.ID, &l.CampaignID, &l.UserID, &l.FullName, &l.FirstName, &l.LastName, &l.JobTitle,
		&l.Company, &l.Location, &l.LinkedInURL, &l.Email, &l.Phone, &l.ProfileImageURL, &l.ApolloLeadID,
		&l.LeadData, &l.MessageSent, &l.MessageSentAt, &l.CreatedAt, &l.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func insertArgs(l *models.Lead) []any {
	return []any{l.CampaignID, l.UserID, l.FullName, l.FirstName, l.LastName, l.JobTitle, l.Company,
		l.Location, l.LinkedInURL, l.Email, l.Phone, l.ProfileImageURL, l.ApolloLeadID, l.LeadData,
		l.CreatedAt, l.UpdatedAt}
}

// InsertBatch stores all leads in one transaction; either every row lands or none does.
func (r *LeadRepo) InsertBatch(ctx context.Context, leads []models.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i := range leads {
		batch.Queue(insertLeadSQL, insertArgs(&leads[i])...)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range leads {
		if err := br.QueryRow().Scan(&leads[i].ID); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert lead %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *LeadRepo) Create(ctx context.Context, l *models.Lead) error {
	now := time.Now()
	l.CreatedAt, l.UpdatedAt = now, now
	return r.pool.QueryRow(ctx, insertLeadSQL, insertArgs(l)...).Scan(&l.ID)
}

func (r *LeadRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM apollo_leads l WHERE l.id = $1`, id))
}

func (r *LeadRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM apollo_leads l
		WHERE l.campaign_id = $1 ORDER BY l.created_at DESC
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

type LeadFilter struct {
	UserID uuid.UUID
	Query  string // matched against full_name, email and company
}

// ListByUser returns the user's leads across all campaigns with the campaign name attached.
func (r *LeadRepo) ListByUser(ctx context.Context, f LeadFilter) ([]models.Lead, error) {
	query := `
		SELECT ` + leadColumns + `, c.name
		FROM apollo_leads l
		JOIN campaigns_new c ON c.id = l.campaign_id
		WHERE c.user_id = $1`
	args := []any{f.UserID}

	if q := strings.TrimSpace(f.Query); q != "" {
		query += ` AND (l.full_name ILIKE $2 OR l.email ILIKE $2 OR l.company ILIKE $2)`
		args = append(args, "%"+q+"%")
	}
	query += ` ORDER BY l.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		var campaignName string
		l, err := scanLead(rows, &campaignName)
		if err != nil {
			return nil, err
		}
		l.CampaignName = campaignName
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

func (r *LeadRepo) Update(ctx context.Context, id uuid.UUID, u models.LeadUpdate) (*models.Lead, error) {
	sets := []string{}
	args := []any{}
	argIdx := 1

	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}
	if u.FullName != nil {
		add("full_name", *u.FullName)
	}
	if u.FirstName != nil {
		add("first_name", *u.FirstName)
	}
	if u.LastName != nil {
		add("last_name", *u.LastName)
	}
	if u.JobTitle != nil {
		add("job_title", *u.JobTitle)
	}
	if u.Company != nil {
		add("company", *u.Company)
	}
	if u.Location != nil {
		add("location", *u.Location)
	}
	if u.LinkedInURL != nil {
		add("linkedin_url", *u.LinkedInURL)
	}
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.Phone != nil {
		add("phone", *u.Phone)
	}
	sets = append(sets, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE apollo_leads l SET %s WHERE l.id = $%d RETURNING `+leadColumns,
		strings.Join(sets, ", "), argIdx)
	args = append(args, id)

	return scanLead(r.pool.QueryRow(ctx, query, args...))
}

func (r *LeadRepo) MarkMessageSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE apollo_leads SET message_sent = true, message_sent_at = $1, updated_at = now()
		WHERE id = $2
	`, sentAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LeadRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM apollo_leads WHERE id = $1`, id)
	return err
}
