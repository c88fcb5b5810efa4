package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leadgen-dashboard/backend/internal/models"
)

type TokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

func (r *TokenRepo) Upsert(ctx context.Context, userID uuid.UUID, accessToken string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_tokens (user_id, apollo_access_token)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			apollo_access_token = EXCLUDED.apollo_access_token,
			updated_at = now()
	`, userID, accessToken)
	return err
}

func (r *TokenRepo) Get(ctx context.Context, userID uuid.UUID) (*models.UserToken, error) {
	var t models.UserToken
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, apollo_access_token, created_at, updated_at
		FROM user_tokens WHERE user_id = $1
	`, userID).Scan(&t.UserID, &t.ApolloAccessToken, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}
