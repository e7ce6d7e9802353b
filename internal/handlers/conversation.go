package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/covera/internal/models"
	"github.com/example/covera/internal/utils"
)

// ConversationHandler exposes finished call records to the admin console.
// Records are written by the webhook only; the console reads them.
type ConversationHandler struct {
	db *gorm.DB
}

// NewConversationHandler constructs ConversationHandler.
func NewConversationHandler(db *gorm.DB) *ConversationHandler {
	return &ConversationHandler{db: db}
}

// ListConversations returns paginated call records, newest first, optionally
// filtered by customer.
func (h *ConversationHandler) ListConversations(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	var conversations []models.Conversation
	var total int64

	query := h.db.Model(&models.Conversation{})
	if customerID := c.Query("customer_id"); customerID != "" {
		id, err := uuid.Parse(customerID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid customer_id")
		}
		query = query.Where("customer_id = ?", id)
	}

	if err := query.Count(&total).Error; err != nil {
		return err
	}

	if err := query.Limit(pg.Limit).Offset(pg.Offset).Order("created_at desc").
		Find(&conversations).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    conversations,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetConversation returns a single call record with its full transcript.
func (h *ConversationHandler) GetConversation(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var conversation models.Conversation
	if err := h.db.First(&conversation, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "conversation not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": conversation})
}
