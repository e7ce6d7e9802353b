package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/covera/internal/models"
	"github.com/example/covera/internal/utils"
)

// KnowledgeHandler manages FAQ articles for the admin console.
type KnowledgeHandler struct {
	db *gorm.DB
}

// NewKnowledgeHandler constructs KnowledgeHandler.
func NewKnowledgeHandler(db *gorm.DB) *KnowledgeHandler {
	return &KnowledgeHandler{db: db}
}

// ListArticles returns paginated articles, optionally filtered by category.
func (h *KnowledgeHandler) ListArticles(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	var articles []models.KnowledgeArticle
	var total int64

	query := h.db.Model(&models.KnowledgeArticle{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Count(&total).Error; err != nil {
		return err
	}

	if err := query.Limit(pg.Limit).Offset(pg.Offset).Order("created_at desc").
		Find(&articles).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    articles,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetArticle returns a single article by ID.
func (h *KnowledgeHandler) GetArticle(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var article models.KnowledgeArticle
	if err := h.db.First(&article, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "article not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": article})
}

// CreateArticle persists a new article.
func (h *KnowledgeHandler) CreateArticle(c *fiber.Ctx) error {
	var payload models.KnowledgeArticle
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if payload.Title == "" || payload.Content == "" {
		return fiber.NewError(fiber.StatusBadRequest, "title and content are required")
	}

	if err := h.db.Create(&payload).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": payload})
}

// UpdateArticle updates an existing article.
func (h *KnowledgeHandler) UpdateArticle(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var article models.KnowledgeArticle
	if err := h.db.First(&article, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "article not found")
		}
		return err
	}

	var payload models.KnowledgeArticle
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	payload.ID = article.ID
	if err := h.db.Model(&article).Updates(payload).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": article})
}

// DeleteArticle removes an article by ID.
func (h *KnowledgeHandler) DeleteArticle(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.db.Delete(&models.KnowledgeArticle{}, "id = ?", id).Error; err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
