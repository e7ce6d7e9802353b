package verify

import (
	"gorm.io/gorm"

	"github.com/example/covera/internal/models"
	"github.com/example/covera/internal/utils"
)

// Resolver outcome codes. These are expected branches the voice model routes
// on, not system errors.
const (
	CodeInvalidFormat    = "INVALID_FORMAT"
	CodeIncompleteNumber = "INCOMPLETE_NUMBER"
	CodeNotFound         = "NOT_FOUND"
	CodeEmailNotFound    = "EMAIL_NOT_FOUND"
	CodeDOBNotFound      = "DOB_NOT_FOUND"
	CodeNameNotFound     = "NAME_NOT_FOUND"
)

const minPhoneDigits = 10

// Result is the uniform outcome of any resolver. Customer is nil when Code
// names the miss; Normalized carries the canonical phone or email used for
// the lookup; Confidence is set by the fuzzy resolver only.
type Result struct {
	Customer   *models.Customer
	Normalized string
	Confidence float64
	Code       string
}

// Matched reports whether the resolver bound a customer.
func (r Result) Matched() bool {
	return r.Customer != nil
}

// PhoneResolver maps a spoken phone number to the customer holding it.
// Phone is a unique column, so this is a point lookup: zero or one result.
type PhoneResolver struct {
	db *gorm.DB
}

// NewPhoneResolver returns a PhoneResolver querying db.
func NewPhoneResolver(db *gorm.DB) *PhoneResolver {
	return &PhoneResolver{db: db}
}

// Resolve normalizes raw and looks up the owning customer. Fewer than ten
// digits is INCOMPLETE_NUMBER, an unparseable value is INVALID_FORMAT, and
// an unknown number is NOT_FOUND.
func (r *PhoneResolver) Resolve(raw string) (Result, error) {
	normalized := utils.NormalizePhone(raw)
	if normalized == "" {
		return Result{Code: CodeInvalidFormat}, nil
	}

	if utils.DigitCount(normalized) < minPhoneDigits {
		return Result{Normalized: normalized, Code: CodeIncompleteNumber}, nil
	}

	var customer models.Customer
	err := r.db.Where("phone = ?", normalized).First(&customer).Error
	if err == gorm.ErrRecordNotFound {
		return Result{Normalized: normalized, Code: CodeNotFound}, nil
	}
	if err != nil {
		return Result{}, err
	}

	return Result{Customer: &customer, Normalized: normalized}, nil
}
