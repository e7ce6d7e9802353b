package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/covera/internal/config"
	"github.com/example/covera/internal/database"
	"github.com/example/covera/internal/handlers"
	"github.com/example/covera/internal/routes"
	"github.com/example/covera/internal/services"
	"github.com/example/covera/internal/session"
)

func main() {
	cfg := config.Load()

	db := database.Connect(cfg.DatabaseURL)

	var kv session.KV
	if cfg.RedisAddr != "" {
		redisKV, err := session.NewRedisKV(cfg.RedisAddr)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisKV.Close()
		kv = redisKV
	} else {
		// Single-instance deployments can run without Redis; sessions then
		// do not survive a restart.
		log.Printf("REDIS_ADDR not set, using in-memory session storage")
		kv = session.NewMemoryKV()
	}

	mailer := services.NewResendMailer(cfg.ResendAPIKey, cfg.VerifyEmailFrom, cfg.DocsEmailFrom)
	if !mailer.Enabled() {
		log.Printf("RESEND_API_KEY not set, email verification and upload links disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Covera Voice Backend",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, kv, mailer, cfg)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
