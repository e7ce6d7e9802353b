package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/example/covera/internal/utils"
)

const policyNumberPrefix = "POL-"

// Customer is a policy holder reachable through the voice line.
type Customer struct {
	BaseModel
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	FullName     string     `json:"full_name"`
	Phone        string     `gorm:"uniqueIndex" json:"phone"`
	Email        string     `gorm:"index" json:"email"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	PolicyNumber string     `gorm:"uniqueIndex" json:"policy_number"`
	Claims       []Claim    `json:"claims,omitempty"`
}

// DisplayName returns the stored full name, falling back to the joined
// first/last name.
func (c *Customer) DisplayName() string {
	if strings.TrimSpace(c.FullName) != "" {
		return c.FullName
	}
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name != "" {
		return name
	}
	return "the account holder"
}

// BeforeSave canonicalizes contact fields so the voice-tool lookups can rely
// on exact matching: phone numbers collapse to one form, emails are stored
// lowercase.
func (c *Customer) BeforeSave(tx *gorm.DB) error {
	if c.Phone != "" {
		normalized := utils.NormalizePhone(c.Phone)
		if normalized == "" {
			return errors.New("customer phone has no digits")
		}
		c.Phone = normalized
	}

	if c.Email != "" {
		c.Email = utils.NormalizeEmail(c.Email)
	}

	if strings.TrimSpace(c.FullName) == "" {
		c.FullName = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}

	return nil
}

// BeforeCreate assigns a policy number when none was supplied.
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}

	if c.PolicyNumber != "" {
		return nil
	}

	number, err := uniqueReference(tx, &Customer{}, "policy_number", policyNumberPrefix)
	if err != nil {
		return err
	}
	c.PolicyNumber = number
	return nil
}

// uniqueReference builds a "<prefix>XXXX-XXXX" reference from the
// ambiguity-free alphabet, retrying on the unlikely collision.
func uniqueReference(tx *gorm.DB, model interface{}, column, prefix string) (string, error) {
	const maxAttempts = 6

	for attempt := 0; attempt < maxAttempts; attempt++ {
		left, err := utils.RandomSegment(4)
		if err != nil {
			return "", err
		}
		right, err := utils.RandomSegment(4)
		if err != nil {
			return "", err
		}
		candidate := fmt.Sprintf("%s%s-%s", prefix, left, right)

		var count int64
		if err := tx.Model(model).Where(column+" = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("failed to generate a unique %s after several attempts", column)
}
