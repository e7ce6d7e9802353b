package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const claimNumberPrefix = "CLM-"

// Claim statuses.
const (
	ClaimStatusSubmitted   = "submitted"
	ClaimStatusUnderReview = "under_review"
	ClaimStatusApproved    = "approved"
	ClaimStatusDenied      = "denied"
	ClaimStatusPaid        = "paid"
	ClaimStatusClosed      = "closed"
)

// Claim is an insurance claim filed by a customer.
type Claim struct {
	BaseModel
	ClaimNumber  string          `gorm:"uniqueIndex" json:"claim_number"`
	CustomerID   uuid.UUID       `gorm:"type:uuid;index" json:"customer_id"`
	Customer     *Customer       `json:"customer,omitempty"`
	Status       string          `gorm:"default:submitted" json:"status"`
	CoverageType string          `json:"coverage_type"`
	IncidentDate *time.Time      `json:"incident_date"`
	Amount       float64         `json:"amount"`
	Description  string          `json:"description"`
	CaseNotes    []CaseNote      `json:"case_notes,omitempty"`
	Documents    []ClaimDocument `json:"documents,omitempty"`
}

// BeforeCreate assigns a claim number when none was supplied.
func (cl *Claim) BeforeCreate(tx *gorm.DB) error {
	if err := cl.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}

	if cl.ClaimNumber != "" {
		return nil
	}

	number, err := uniqueReference(tx, &Claim{}, "claim_number", claimNumberPrefix)
	if err != nil {
		return err
	}
	cl.ClaimNumber = number
	return nil
}

// LatestCaseNote returns the most recently created case note, or nil.
// Assumes CaseNotes were loaded ordered by creation time.
func (cl *Claim) LatestCaseNote() *CaseNote {
	if len(cl.CaseNotes) == 0 {
		return nil
	}
	return &cl.CaseNotes[len(cl.CaseNotes)-1]
}

// CaseNote is an adjuster or system note attached to a claim.
type CaseNote struct {
	BaseModel
	ClaimID uuid.UUID `gorm:"type:uuid;index" json:"claim_id"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	Source  string    `gorm:"default:agent" json:"source"`
}

// ClaimDocument is a file submitted through the upload portal.
type ClaimDocument struct {
	BaseModel
	ClaimID     uuid.UUID `gorm:"type:uuid;index" json:"claim_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Note        string    `json:"note"`
	UploadToken string    `gorm:"index" json:"-"`
}
