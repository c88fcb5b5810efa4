package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/leadgen-dashboard/backend/internal/apollo"
	"github.com/leadgen-dashboard/backend/internal/client"
	"github.com/leadgen-dashboard/backend/internal/config"
	"github.com/leadgen-dashboard/backend/internal/db"
	"github.com/leadgen-dashboard/backend/internal/events"
	apphttp "github.com/leadgen-dashboard/backend/internal/http"
	"github.com/leadgen-dashboard/backend/internal/http/handlers"
	"github.com/leadgen-dashboard/backend/internal/proxy"
	"github.com/leadgen-dashboard/backend/internal/repositories"
	"github.com/leadgen-dashboard/backend/internal/services"
	"github.com/leadgen-dashboard/backend/migrations"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, "leadgen-api", log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	campaignRepo := repositories.NewCampaignRepo(pool)
	leadRepo := repositories.NewLeadRepo(pool)
	tokenRepo := repositories.NewTokenRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Apollo
	httpClient := &http.Client{Timeout: cfg.ApolloTimeout}
	relay := proxy.NewRelay(proxy.Options{
		UpstreamURL: cfg.ApolloBaseURL,
		PathPrefix:  cfg.ProxyPathPrefix,
		APIKey:      cfg.ApolloAPIKey,
		TokenHeader: cfg.ProviderTokenHeader,
	}, httpClient, log)
	apolloClient := apollo.NewClient(apollo.Options{
		ProxyURL:     cfg.ProxyURL,
		APIKey:       cfg.ApolloAPIKey,
		TokenHeader:  cfg.ProviderTokenHeader,
		BaseURL:      cfg.ApolloBaseURL,
		ClientID:     cfg.ApolloClientID,
		ClientSecret: cfg.ApolloClientSecret,
		RedirectURI:  cfg.ApolloRedirectURI,
	}, httpClient, log)

	// Services
	campaignService := services.NewCampaignService(campaignRepo, leadRepo, apolloClient, publisher, cfg.SendConcurrency, log)
	if cfg.OutreachWebhookURL != "" {
		campaignService.WithSender(client.NewWebhookClient(cfg.OutreachWebhookURL))
	}
	apolloClient.WithStatusUpdater(campaignService)
	leadService := services.NewLeadService(leadRepo, campaignRepo, log)
	tokenService := services.NewTokenService(tokenRepo, apolloClient, log)

	// Handlers
	wsHub := handlers.NewWSHub(subscriber, log)
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to campaign events", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"success": false, "error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, apphttp.Handlers{
		Campaign: handlers.NewCampaignHandler(campaignService, tokenService, log),
		Lead:     handlers.NewLeadHandler(leadService, log),
		Apollo:   handlers.NewApolloHandler(apolloClient, campaignService, tokenService, log),
		Relay:    relay,
		WSHub:    wsHub,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
