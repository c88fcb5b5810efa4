// Command proxy runs the Apollo relay on its own. Callers put the provider token
// in Authorization, or an Api-Key header, and every reply is a
// {success, data, error} envelope.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/leadgen-dashboard/backend/internal/config"
	"github.com/leadgen-dashboard/backend/internal/middleware"
	"github.com/leadgen-dashboard/backend/internal/proxy"
	"go.uber.org/zap"
)

const pathPrefix = "/api"

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if cfg.ApolloAPIKey == "" {
		log.Warn("APOLLO_API_KEY is not set, callers must send their own credentials")
	}

	relay := proxy.NewRelay(proxy.Options{
		UpstreamURL: cfg.ApolloBaseURL,
		PathPrefix:  pathPrefix,
		APIKey:      cfg.ApolloAPIKey,
		TokenHeader: fiber.HeaderAuthorization,
	}, &http.Client{Timeout: cfg.ApolloTimeout}, log)

	app := fiber.New()
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Api-Key, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.All(pathPrefix+"/*", relay.Handler())

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.ProxyPort)
	log.Info("starting proxy", zap.String("addr", addr), zap.String("upstream", cfg.ApolloBaseURL))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
