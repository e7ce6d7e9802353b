package verify

import (
	"gorm.io/gorm"

	"github.com/example/covera/internal/models"
	"github.com/example/covera/internal/utils"
)

// EmailResolver maps a spoken email address to a customer. Stored emails are
// lowercased on write, so normalization on both sides makes the comparison
// case-insensitive, and stripping interior whitespace absorbs transcription
// artifacts.
type EmailResolver struct {
	db *gorm.DB
}

// NewEmailResolver returns an EmailResolver querying db.
func NewEmailResolver(db *gorm.DB) *EmailResolver {
	return &EmailResolver{db: db}
}

// Resolve normalizes raw and looks up the owning customer. An unknown
// address is EMAIL_NOT_FOUND.
func (r *EmailResolver) Resolve(raw string) (Result, error) {
	normalized := utils.NormalizeEmail(raw)

	var customer models.Customer
	err := r.db.Where("email = ?", normalized).First(&customer).Error
	if err == gorm.ErrRecordNotFound {
		return Result{Normalized: normalized, Code: CodeEmailNotFound}, nil
	}
	if err != nil {
		return Result{}, err
	}

	return Result{Customer: &customer, Normalized: normalized}, nil
}
