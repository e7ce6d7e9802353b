package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/covera/internal/models"
	"github.com/example/covera/internal/utils"
)

// ClaimHandler manages claims and their case notes for the admin console.
type ClaimHandler struct {
	db *gorm.DB
}

// NewClaimHandler constructs ClaimHandler.
func NewClaimHandler(db *gorm.DB) *ClaimHandler {
	return &ClaimHandler{db: db}
}

// ListClaims returns paginated claims, optionally filtered by status or
// customer.
func (h *ClaimHandler) ListClaims(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	var claims []models.Claim
	var total int64

	query := h.db.Model(&models.Claim{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
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

	if err := query.Preload("Customer").Limit(pg.Limit).Offset(pg.Offset).
		Order("created_at desc").Find(&claims).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    claims,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetClaim returns a single claim with its customer, notes, and documents.
func (h *ClaimHandler) GetClaim(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var claim models.Claim
	err = h.db.Preload("Customer").
		Preload("CaseNotes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		}).
		Preload("Documents").
		First(&claim, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "claim not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": claim})
}

// CreateClaim persists a new claim. A claim number is assigned by the model
// hook when none is supplied.
func (h *ClaimHandler) CreateClaim(c *fiber.Ctx) error {
	var payload models.Claim
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if payload.CustomerID == uuid.Nil {
		return fiber.NewError(fiber.StatusBadRequest, "customer_id is required")
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", payload.CustomerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusBadRequest, "customer not found")
		}
		return err
	}

	if err := h.db.Create(&payload).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": payload})
}

// UpdateClaim updates an existing claim.
func (h *ClaimHandler) UpdateClaim(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var claim models.Claim
	if err := h.db.First(&claim, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "claim not found")
		}
		return err
	}

	var payload models.Claim
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	payload.ID = claim.ID
	if err := h.db.Model(&claim).Updates(payload).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": claim})
}

// DeleteClaim removes a claim by ID.
func (h *ClaimHandler) DeleteClaim(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.db.Delete(&models.Claim{}, "id = ?", id).Error; err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type addCaseNoteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// AddCaseNote attaches an agent note to a claim.
func (h *ClaimHandler) AddCaseNote(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var claim models.Claim
	if err := h.db.First(&claim, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "claim not found")
		}
		return err
	}

	var req addCaseNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" && req.Body == "" {
		return fiber.NewError(fiber.StatusBadRequest, "note title or body is required")
	}

	note := models.CaseNote{
		ClaimID: claim.ID,
		Title:   req.Title,
		Body:    req.Body,
		Source:  "agent",
	}
	if err := h.db.Create(&note).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": note})
}
