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

type LeadHandler struct {
	leadService *services.LeadService
	log         *zap.Logger
}

func NewLeadHandler(leadService *services.LeadService, log *zap.Logger) *LeadHandler {
	return &LeadHandler{leadService: leadService, log: log}
}

func (h *LeadHandler) ListLeads(c *fiber.Ctx) error {
	leads, err := h.leadService.ListLeads(c.Context(), middleware.GetUserID(c), c.Query("q"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	return c.JSON(dto.OK(leads))
}

func (h *LeadHandler) CreateLead(c *fiber.Ctx) error {
	var req dto.LeadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		return badRequest(c, "invalid campaign_id")
	}

	lead := toLead(req)
	lead.CampaignID = campaignID
	if err := h.leadService.CreateLead(c.Context(), middleware.GetUserID(c), &lead); err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.OK(lead))
}

func (h *LeadHandler) ImportLeads(c *fiber.Ctx) error {
	var req dto.ImportLeadsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		return badRequest(c, "invalid campaign_id")
	}
	if len(req.Leads) == 0 {
		return badRequest(c, "leads are required")
	}

	leads := make([]models.Lead, len(req.Leads))
	for i, r := range req.Leads {
		leads[i] = toLead(r)
	}

	n, err := h.leadService.ImportLeads(c.Context(), middleware.GetUserID(c), campaignID, leads)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.OK(dto.ImportResponse{Imported: n}))
}

func (h *LeadHandler) UpdateLead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid lead id")
	}

	var req dto.UpdateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	updated, err := h.leadService.UpdateLead(c.Context(), id, middleware.GetUserID(c), models.LeadUpdate{
		FullName:    req.FullName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		JobTitle:    req.JobTitle,
		Company:     req.Company,
		Location:    req.Location,
		LinkedInURL: req.LinkedInURL,
		Email:       req.Email,
		Phone:       req.Phone,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.OK(updated))
}

func (h *LeadHandler) DeleteLead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid lead id")
	}

	if err := h.leadService.DeleteLead(c.Context(), id, middleware.GetUserID(c)); err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.OK(nil))
}

func toLead(r dto.LeadRequest) models.Lead {
	return models.Lead{
		FullName:    r.FullName,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		JobTitle:    r.JobTitle,
		Company:     r.Company,
		Location:    r.Location,
		LinkedInURL: r.LinkedInURL,
		Email:       r.Email,
		Phone:       r.Phone,
	}
}
