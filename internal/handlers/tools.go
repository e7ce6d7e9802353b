package handlers

import (
	"gorm.io/gorm"

	"github.com/example/covera/internal/config"
	"github.com/example/covera/internal/services"
	"github.com/example/covera/internal/session"
	"github.com/example/covera/internal/verify"
)

// ToolHandler serves the voice platform's tool invocations. Each endpoint is
// stateless; all call-scoped state lives in the session stores.
//
// Tool-logic outcomes, including misses like NOT_FOUND, are HTTP 200 with
// success=false and an error code: the voice model narrates the body either
// way, and a hard HTTP error would short-circuit the conversation. Non-2xx
// is reserved for malformed input, authorization denials, and system
// failures.
type ToolHandler struct {
	db       *gorm.DB
	sessions *session.Store
	codes    *session.CodeStore
	tokens   *session.TokenStore
	guard    *session.Guard
	mailer   services.Mailer
	cfg      *config.Config

	phones *verify.PhoneResolver
	emails *verify.EmailResolver
	names  *verify.NameDOBResolver
}

// NewToolHandler constructs a ToolHandler.
func NewToolHandler(db *gorm.DB, kv session.KV, mailer services.Mailer, cfg *config.Config) *ToolHandler {
	store := session.NewStore(kv, cfg.SessionTTL)

	return &ToolHandler{
		db:       db,
		sessions: store,
		codes:    session.NewCodeStore(kv),
		tokens:   session.NewTokenStore(kv),
		guard:    session.NewGuard(store),
		mailer:   mailer,
		cfg:      cfg,
		phones:   verify.NewPhoneResolver(db),
		emails:   verify.NewEmailResolver(db),
		names:    verify.NewNameDOBResolver(db, verify.EditDistanceScorer{}),
	}
}
