package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/leadgen-dashboard/backend/internal/models"
	"github.com/leadgen-dashboard/backend/internal/repositories"
	"go.uber.org/zap"
)

type TokenStore interface {
	Upsert(ctx context.Context, userID uuid.UUID, accessToken string) error
	Get(ctx context.Context, userID uuid.UUID) (*models.UserToken, error)
}

type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
}

var ErrMissingCode = errors.New("authorization code is required")

// TokenService keeps the Apollo OAuth token of each user.
type TokenService struct {
	tokens    TokenStore
	exchanger CodeExchanger
	log       *zap.Logger
}

func NewTokenService(tokens TokenStore, exchanger CodeExchanger, log *zap.Logger) *TokenService {
	return &TokenService{tokens: tokens, exchanger: exchanger, log: log}
}

// Connect exchanges an OAuth code and stores the resulting token for userID.
func (s *TokenService) Connect(ctx context.Context, userID uuid.UUID, code string) error {
	if code == "" {
		return ErrMissingCode
	}
	token, err := s.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}
	if err := s.tokens.Upsert(ctx, userID, token); err != nil {
		return err
	}
	s.log.Info("apollo account connected", zap.String("user_id", userID.String()))
	return nil
}

// ResolveToken returns explicit when set, otherwise the stored token. A missing
// stored token is not an error.
func (s *TokenService) ResolveToken(ctx context.Context, userID uuid.UUID, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	t, err := s.tokens.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return t.ApolloAccessToken, nil
}
