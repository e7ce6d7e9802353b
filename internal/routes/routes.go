package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/covera/internal/config"
	"github.com/example/covera/internal/handlers"
	"github.com/example/covera/internal/middleware"
	"github.com/example/covera/internal/services"
	"github.com/example/covera/internal/session"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, kv session.KV, mailer services.Mailer, cfg *config.Config) {
	sessions := session.NewStore(kv, cfg.SessionTTL)
	tokens := session.NewTokenStore(kv)

	toolHandler := handlers.NewToolHandler(db, kv, mailer, cfg)
	webhookHandler := handlers.NewWebhookHandler(db, sessions)
	uploadHandler := handlers.NewUploadHandler(db, tokens)
	authHandler := handlers.NewAuthHandler(db, cfg)
	customerHandler := handlers.NewCustomerHandler(db)
	claimHandler := handlers.NewClaimHandler(db)
	knowledgeHandler := handlers.NewKnowledgeHandler(db)
	conversationHandler := handlers.NewConversationHandler(db)

	api := app.Group("/api")

	// Voice platform routes, authenticated with the shared tool key
	platform := api.Group("", middleware.ToolKeyMiddleware(cfg.ToolAPIKey))
	platform.Post("/webhook", webhookHandler.Handle)

	tools := platform.Group("/tools")
	tools.Post("/verify-customer", toolHandler.VerifyCustomer)
	tools.Post("/alternative-verification", toolHandler.AlternativeVerification)
	tools.Post("/send-verification-code", toolHandler.SendVerificationCode)
	tools.Post("/verify-email-code", toolHandler.VerifyEmailCode)
	tools.Post("/confirm-identity", toolHandler.ConfirmIdentity)
	tools.Post("/get-claim-status", toolHandler.GetClaimStatus)
	tools.Post("/search-knowledge-base", toolHandler.SearchKnowledgeBase)
	tools.Post("/send-upload-link", toolHandler.SendUploadLink)
	tools.Post("/end-call", toolHandler.EndCall)

	// Public upload portal, authenticated by the token itself
	upload := api.Group("/upload")
	upload.Get("/:token", uploadHandler.ValidateToken)
	upload.Post("/:token", uploadHandler.Submit)

	// Admin console auth
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Admin console resources, JWT protected
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg))

	customers := admin.Group("/customers")
	customers.Get("/", customerHandler.ListCustomers)
	customers.Post("/", customerHandler.CreateCustomer)
	customers.Get("/:id", customerHandler.GetCustomer)
	customers.Put("/:id", customerHandler.UpdateCustomer)
	customers.Delete("/:id", customerHandler.DeleteCustomer)

	claims := admin.Group("/claims")
	claims.Get("/", claimHandler.ListClaims)
	claims.Post("/", claimHandler.CreateClaim)
	claims.Get("/:id", claimHandler.GetClaim)
	claims.Put("/:id", claimHandler.UpdateClaim)
	claims.Delete("/:id", claimHandler.DeleteClaim)
	claims.Post("/:id/notes", claimHandler.AddCaseNote)

	articles := admin.Group("/knowledge")
	articles.Get("/", knowledgeHandler.ListArticles)
	articles.Post("/", knowledgeHandler.CreateArticle)
	articles.Get("/:id", knowledgeHandler.GetArticle)
	articles.Put("/:id", knowledgeHandler.UpdateArticle)
	articles.Delete("/:id", knowledgeHandler.DeleteArticle)

	conversations := admin.Group("/conversations")
	conversations.Get("/", conversationHandler.ListConversations)
	conversations.Get("/:id", conversationHandler.GetConversation)
}
