package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/covera/internal/models"
	"github.com/example/covera/internal/session"
)

// WebhookHandler receives call lifecycle events from the voice platform.
// The platform retries on non-2xx, so every branch acknowledges; a webhook
// must never take the call down with it.
type WebhookHandler struct {
	db       *gorm.DB
	sessions *session.Store
}

func NewWebhookHandler(db *gorm.DB, sessions *session.Store) *WebhookHandler {
	return &WebhookHandler{db: db, sessions: sessions}
}

type webhookEnvelope struct {
	Message webhookMessage `json:"message"`
}

type webhookMessage struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	EndedReason string `json:"endedReason"`
	Call        struct {
		ID       string `json:"id"`
		Customer struct {
			Number string `json:"number"`
		} `json:"customer"`
	} `json:"call"`
	Artifact struct {
		Transcript string `json:"transcript"`
	} `json:"artifact"`
	Analysis struct {
		Summary string `json:"summary"`
	} `json:"analysis"`
	StartedAt       *time.Time `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt"`
	DurationSeconds float64    `json:"durationSeconds"`
}

// Handle dispatches on the event type. Unknown types are acknowledged and
// ignored.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	var payload webhookEnvelope
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("[webhook] unparseable payload: %v", err)
		return c.JSON(fiber.Map{"received": true})
	}

	msg := payload.Message
	switch msg.Type {
	case "status-update":
		h.handleStatusUpdate(c, msg)
	case "end-of-call-report":
		h.handleEndOfCall(c, msg)
	default:
		log.Printf("[webhook] ignoring event type %q for call %s", msg.Type, msg.Call.ID)
	}

	return c.JSON(fiber.Map{"received": true})
}

func (h *WebhookHandler) handleStatusUpdate(c *fiber.Ctx, msg webhookMessage) {
	if msg.Call.ID == "" {
		return
	}
	log.Printf("[webhook] call %s status %s", msg.Call.ID, msg.Status)

	if msg.Status == "in-progress" {
		if _, err := h.sessions.GetOrCreate(c.UserContext(), msg.Call.ID, msg.Call.Customer.Number); err != nil {
			log.Printf("[webhook] session init failed for call %s: %v", msg.Call.ID, err)
		}
	}
}

// handleEndOfCall persists the durable conversation record and tears down the
// live session. The session is read before deletion so the record captures
// who the caller was and whether they finished authentication.
func (h *WebhookHandler) handleEndOfCall(c *fiber.Ctx, msg webhookMessage) {
	if msg.Call.ID == "" {
		log.Printf("[webhook] end-of-call report without call id, skipping")
		return
	}

	ctx := c.UserContext()

	sess, err := h.sessions.Get(ctx, msg.Call.ID)
	if err != nil {
		log.Printf("[webhook] session read failed for call %s: %v", msg.Call.ID, err)
	}

	conv := models.Conversation{
		CallID:          msg.Call.ID,
		PhoneNumber:     msg.Call.Customer.Number,
		Transcript:      msg.Artifact.Transcript,
		Summary:         msg.Analysis.Summary,
		EndedReason:     msg.EndedReason,
		StartedAt:       msg.StartedAt,
		EndedAt:         msg.EndedAt,
		DurationSeconds: int(msg.DurationSeconds),
	}
	if sess != nil {
		conv.Authenticated = sess.IsAuthenticated
		if sess.PhoneNumber != "" {
			conv.PhoneNumber = sess.PhoneNumber
		}
		if sess.Customer != nil {
			id := sess.Customer.ID
			conv.CustomerID = &id
		}
	}
	if conv.DurationSeconds == 0 && msg.StartedAt != nil && msg.EndedAt != nil {
		conv.DurationSeconds = int(msg.EndedAt.Sub(*msg.StartedAt).Seconds())
	}

	var existing models.Conversation
	err = h.db.Where("call_id = ?", msg.Call.ID).First(&existing).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		if err := h.db.Create(&conv).Error; err != nil {
			log.Printf("[webhook] conversation save failed for call %s: %v", msg.Call.ID, err)
		}
	case err != nil:
		log.Printf("[webhook] conversation lookup failed for call %s: %v", msg.Call.ID, err)
	default:
		conv.ID = existing.ID
		conv.CreatedAt = existing.CreatedAt
		if err := h.db.Save(&conv).Error; err != nil {
			log.Printf("[webhook] conversation update failed for call %s: %v", msg.Call.ID, err)
		}
	}

	if err := h.sessions.End(ctx, msg.Call.ID); err != nil {
		log.Printf("[webhook] session teardown failed for call %s: %v", msg.Call.ID, err)
	}

	log.Printf("[webhook] call %s ended (%s), duration %ds", msg.Call.ID, msg.EndedReason, conv.DurationSeconds)
}
