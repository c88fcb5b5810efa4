package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/leadgen-dashboard/backend/internal/apollo"
	"github.com/leadgen-dashboard/backend/internal/auth"
	"github.com/leadgen-dashboard/backend/internal/http/dto"
	"github.com/leadgen-dashboard/backend/internal/middleware"
	"github.com/leadgen-dashboard/backend/internal/services"
	"go.uber.org/zap"
)

const headerApolloToken = "X-Apollo-Token"

type ApolloAPI interface {
	ValidateConnection(ctx context.Context, sess auth.Session, oauthToken string) (*apollo.Validation, error)
	StartLeadFetching(ctx context.Context, sess auth.Session, providerCampaignID string, criteria apollo.Criteria, campaignID *uuid.UUID, oauthToken string) (*apollo.FetchResult, error)
}

type ApolloHandler struct {
	apollo          ApolloAPI
	campaignService *services.CampaignService
	tokenService    *services.TokenService
	log             *zap.Logger
}

func NewApolloHandler(api ApolloAPI, campaignService *services.CampaignService, tokenService *services.TokenService, log *zap.Logger) *ApolloHandler {
	return &ApolloHandler{apollo: api, campaignService: campaignService, tokenService: tokenService, log: log}
}

func (h *ApolloHandler) Validate(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	token, err := h.tokenService.ResolveToken(c.Context(), sess.UserID, c.Get(headerApolloToken))
	if err != nil {
		return writeError(c, h.log, err)
	}

	v, err := h.apollo.ValidateConnection(c.Context(), sess, token)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(v))
}

func (h *ApolloHandler) OAuthCallback(c *fiber.Ctx) error {
	var req dto.OAuthCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	if err := h.tokenService.Connect(c.Context(), middleware.GetUserID(c), req.Code); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(fiber.Map{"connected": true}))
}

// StartFetching launches a provider-side bulk search for one of the caller's
// campaigns and marks the campaign completed once the provider accepts it.
func (h *ApolloHandler) StartFetching(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	sess := middleware.GetSession(c)
	if _, err := h.campaignService.GetCampaign(c.Context(), id, sess.UserID); err != nil {
		return writeError(c, h.log, err)
	}

	var req dto.StartFetchingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if req.ApolloCampaignID == "" {
		return badRequest(c, "apolloCampaignId is required")
	}

	token, err := h.tokenService.ResolveToken(c.Context(), sess.UserID, req.OAuthToken)
	if err != nil {
		return writeError(c, h.log, err)
	}

	res, err := h.apollo.StartLeadFetching(c.Context(), sess, req.ApolloCampaignID, req.Criteria, &id, token)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(res))
}
