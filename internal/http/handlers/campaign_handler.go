package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/leadgen-dashboard/backend/internal/http/dto"
	"github.com/leadgen-dashboard/backend/internal/middleware"
	"github.com/leadgen-dashboard/backend/internal/models"
	"github.com/leadgen-dashboard/backend/internal/services"
	"go.uber.org/zap"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
	tokenService    *services.TokenService
	log             *zap.Logger
}

func NewCampaignHandler(campaignService *services.CampaignService, tokenService *services.TokenService, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService, tokenService: tokenService, log: log}
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	if req.Name == "" || req.Message == "" {
		return badRequest(c, "name and message are required")
	}

	campaign := &models.Campaign{
		Name:             req.Name,
		TargetJobTitles:  req.TargetJobTitles,
		TargetIndustries: req.TargetIndustries,
		TargetLocations:  req.TargetLocations,
		Message:          req.Message,
		MaxLeads:         req.MaxLeads,
	}

	userID := middleware.GetUserID(c)
	if err := h.campaignService.CreateCampaign(c.Context(), userID, campaign); err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.OK(campaign))
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	campaign, err := h.campaignService.GetCampaign(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.OK(campaign))
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	campaigns, err := h.campaignService.GetCampaigns(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}

	return c.JSON(dto.OK(campaigns))
}

func (h *CampaignHandler) UpdateCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	var req dto.UpdateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	updated, err := h.campaignService.UpdateCampaign(c.Context(), id, middleware.GetUserID(c), models.CampaignUpdate{
		Name:             req.Name,
		TargetJobTitles:  req.TargetJobTitles,
		TargetIndustries: req.TargetIndustries,
		TargetLocations:  req.TargetLocations,
		Message:          req.Message,
		MaxLeads:         req.MaxLeads,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.OK(updated))
}

func (h *CampaignHandler) DeleteCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	if err := h.campaignService.DeleteCampaign(c.Context(), id, middleware.GetUserID(c)); err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.OK(nil))
}

func (h *CampaignHandler) UpdateStatus(c *fiber.Ctx) error {
	id, written, err := h.ownedCampaignID(c)
	if written {
		return err
	}

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	updated, err := h.campaignService.UpdateCampaignStatus(c.Context(), id, req.Status)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.OK(updated))
}

func (h *CampaignHandler) GenerateLeads(c *fiber.Ctx) error {
	id, written, err := h.ownedCampaignID(c)
	if written {
		return err
	}

	var req dto.GenerateLeadsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}

	sess := middleware.GetSession(c)
	token, err := h.tokenService.ResolveToken(c.Context(), sess.UserID, req.OAuthToken)
	if err != nil {
		return writeError(c, h.log, err)
	}

	res, err := h.campaignService.GenerateLeadsForCampaign(c.Context(), sess, id, req.Filters, token)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.OK(res))
}

func (h *CampaignHandler) SendMessages(c *fiber.Ctx) error {
	id, written, err := h.ownedCampaignID(c)
	if written {
		return err
	}

	res, err := h.campaignService.SendCampaignMessages(c.Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.OK(res))
}

// ownedCampaignID parses :id and checks the caller owns the campaign. When written
// is true the error response has already been sent.
func (h *CampaignHandler) ownedCampaignID(c *fiber.Ctx) (id uuid.UUID, written bool, err error) {
	id, err = uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, true, badRequest(c, "invalid campaign id")
	}
	if _, err := h.campaignService.GetCampaign(c.Context(), id, middleware.GetUserID(c)); err != nil {
		return uuid.Nil, true, writeError(c, h.log, err)
	}
	return id, false, nil
}
