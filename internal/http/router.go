package http

import (
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/leadgen-dashboard/backend/internal/config"
	"github.com/leadgen-dashboard/backend/internal/http/handlers"
	"github.com/leadgen-dashboard/backend/internal/middleware"
	"github.com/leadgen-dashboard/backend/internal/proxy"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	Campaign *handlers.CampaignHandler
	Lead     *handlers.LeadHandler
	Apollo   *handlers.ApolloHandler
	Relay    *proxy.Relay
	WSHub    *handlers.WSHub
}

func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h Handlers) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: strings.Join([]string{
			"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID",
			"Api-Key", cfg.ProviderTokenHeader, "X-Apollo-Token",
		}, ", "),
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rate limiting runs after auth so each session has its own bucket.
	authed := middleware.AuthMiddleware(cfg, log)
	protected := []fiber.Handler{authed}
	if rdb != nil {
		protected = append(protected, middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute, log))
	}

	// Remote proxy
	app.All(cfg.ProxyPathPrefix+"/*", append(protected, h.Relay.Handler())...)

	api := app.Group("/api/v1", protected...)

	// Campaigns
	api.Post("/campaigns", h.Campaign.CreateCampaign)
	api.Get("/campaigns", h.Campaign.ListCampaigns)
	api.Get("/campaigns/:id", h.Campaign.GetCampaign)
	api.Put("/campaigns/:id", h.Campaign.UpdateCampaign)
	api.Delete("/campaigns/:id", h.Campaign.DeleteCampaign)
	api.Put("/campaigns/:id/status", h.Campaign.UpdateStatus)
	api.Post("/campaigns/:id/generate-leads", h.Campaign.GenerateLeads)
	api.Post("/campaigns/:id/send-messages", h.Campaign.SendMessages)
	api.Post("/campaigns/:id/start-fetching", h.Apollo.StartFetching)

	// Leads
	api.Get("/leads", h.Lead.ListLeads)
	api.Post("/leads", h.Lead.CreateLead)
	api.Post("/leads/import", h.Lead.ImportLeads)
	api.Put("/leads/:id", h.Lead.UpdateLead)
	api.Delete("/leads/:id", h.Lead.DeleteLead)

	// Apollo account
	api.Get("/apollo/validate", h.Apollo.Validate)
	api.Post("/apollo/oauth/callback", h.Apollo.OAuthCallback)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware(), authed)
	app.Get("/ws", websocket.New(h.WSHub.HandleWS))
}
