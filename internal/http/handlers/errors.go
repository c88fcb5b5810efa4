package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/leadgen-dashboard/backend/internal/apollo"
	"github.com/leadgen-dashboard/backend/internal/http/dto"
	"github.com/leadgen-dashboard/backend/internal/middleware"
	"github.com/leadgen-dashboard/backend/internal/services"
	"go.uber.org/zap"
)

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(msg))
}

// writeError maps service and client errors onto an HTTP status and envelope.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var werr *services.WorkflowError
	if errors.As(err, &werr) {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrCampaignNotFound):
			status = fiber.StatusNotFound
		case werr.Retryable:
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(dto.Envelope{Error: werr.Message, Retryable: werr.Retryable})
	}

	var apiErr *apollo.APIError
	if errors.As(err, &apiErr) {
		status := fiber.StatusBadGateway
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		return c.Status(status).JSON(dto.Envelope{Error: apiErr.Message, Retryable: status >= 500})
	}

	switch {
	case errors.Is(err, services.ErrCampaignNotFound), errors.Is(err, services.ErrLeadNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.Fail(err.Error()))
	case errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrLeadNameMissing),
		errors.Is(err, services.ErrMissingCode),
		errors.Is(err, apollo.ErrNoCredentials):
		return badRequest(c, err.Error())
	case errors.Is(err, apollo.ErrNoSession):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail(err.Error()))
	case errors.Is(err, apollo.ErrOAuthNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.Fail(err.Error()))
	case errors.Is(err, apollo.ErrUnreachable):
		return c.Status(fiber.StatusBadGateway).JSON(dto.Envelope{Error: err.Error(), Retryable: true})
	}

	log.Error("request failed",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.Envelope{
		Error:     "internal error",
		RequestID: middleware.GetRequestID(c),
	})
}
