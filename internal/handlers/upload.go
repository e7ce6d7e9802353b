package handlers

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/covera/internal/models"
	"github.com/example/covera/internal/session"
)

// UploadHandler serves the public document-upload portal reached through
// emailed links. Tokens are bearer credentials; no other auth applies here.
type UploadHandler struct {
	db     *gorm.DB
	tokens *session.TokenStore
}

func NewUploadHandler(db *gorm.DB, tokens *session.TokenStore) *UploadHandler {
	return &UploadHandler{db: db, tokens: tokens}
}

// ValidateToken tells the portal page whether its token is still good and
// which claim it belongs to.
func (h *UploadHandler) ValidateToken(c *fiber.Ctx) error {
	token := c.Params("token")

	grant, err := h.tokens.Validate(c.UserContext(), token)
	if err != nil {
		return err
	}
	if grant == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "INVALID_TOKEN",
			"message": "This upload link is invalid, expired, or has already been used.",
		})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"claimNumber":  grant.ClaimNumber,
		"customerName": grant.CustomerName,
		"expiresAt":    grant.ExpiresAt,
	})
}

type uploadSubmitRequest struct {
	Files []uploadedFile `json:"files"`
	Note  string         `json:"note"`
}

type uploadedFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// Submit records the uploaded documents against the claim, leaves a case note
// for the adjuster, and burns the token.
func (h *UploadHandler) Submit(c *fiber.Ctx) error {
	token := c.Params("token")

	var req uploadSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "at least one file is required")
	}

	ctx := c.UserContext()

	grant, err := h.tokens.Validate(ctx, token)
	if err != nil {
		return err
	}
	if grant == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "INVALID_TOKEN",
			"message": "This upload link is invalid, expired, or has already been used.",
		})
	}

	claimID, err := uuid.Parse(grant.ClaimID)
	if err != nil {
		return fmt.Errorf("upload grant has malformed claim id %q: %w", grant.ClaimID, err)
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		for _, f := range req.Files {
			doc := models.ClaimDocument{
				ClaimID:     claimID,
				Filename:    f.Filename,
				ContentType: f.ContentType,
				SizeBytes:   f.SizeBytes,
				Note:        req.Note,
				UploadToken: token,
			}
			if err := tx.Create(&doc).Error; err != nil {
				return err
			}
		}

		note := models.CaseNote{
			ClaimID: claimID,
			Title:   "Documents received",
			Body:    fmt.Sprintf("%d document(s) uploaded by %s via the upload portal.", len(req.Files), grant.CustomerName),
			Source:  "system",
		}
		return tx.Create(&note).Error
	})
	if err != nil {
		return err
	}

	if err := h.tokens.MarkUsed(ctx, token); err != nil {
		log.Printf("[upload] failed to mark token used for claim %s: %v", grant.ClaimNumber, err)
	}

	log.Printf("[upload] %d document(s) received for claim %s", len(req.Files), grant.ClaimNumber)

	return c.JSON(fiber.Map{
		"success":       true,
		"claimNumber":   grant.ClaimNumber,
		"filesReceived": len(req.Files),
		"message":       "Your documents have been received and attached to your claim. Our claims team will review them shortly.",
	})
}
