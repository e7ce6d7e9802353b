package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the durable record of one finished phone call, written when
// the voice platform reports end-of-call. Live call state lives in the
// session store, not here.
type Conversation struct {
	BaseModel
	CallID          string     `gorm:"uniqueIndex" json:"call_id"`
	CustomerID      *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	PhoneNumber     string     `json:"phone_number"`
	Transcript      string     `gorm:"type:text" json:"transcript"`
	Summary         string     `gorm:"type:text" json:"summary"`
	EndedReason     string     `json:"ended_reason"`
	Authenticated   bool       `json:"authenticated"`
	StartedAt       *time.Time `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds int        `json:"duration_seconds"`
}
