package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/covera/internal/utils"
)

const (
	verificationKeyPrefix = "voice:verification:"

	// CodeLength is the number of characters in an emailed one-time code.
	CodeLength = 6
	// CodeTTL bounds how long a challenge stays answerable. Fixed, not
	// sliding: failed attempts do not extend the window.
	CodeTTL = 5 * time.Minute
	// MaxCodeAttempts is the attempt budget per challenge.
	MaxCodeAttempts = 3
)

// Verification check error codes.
const (
	CodeErrExpired     = "CODE_EXPIRED"
	CodeErrInvalid     = "INVALID_CODE"
	CodeErrMaxAttempts = "MAX_ATTEMPTS_EXCEEDED"
)

// Challenge is the stored state of one outstanding email-code challenge.
// A call has at most one; issuing again overwrites it.
type Challenge struct {
	Code         string    `json:"code"`
	Email        string    `json:"email"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	CreatedAt    time.Time `json:"created_at"`
	Attempts     int       `json:"attempts"`
}

// CheckResult is the outcome of submitting a code against a challenge.
type CheckResult struct {
	Valid             bool
	CustomerID        uuid.UUID
	CustomerName      string
	Email             string
	ErrCode           string
	AttemptsRemaining int
}

// CodeStore issues and checks one-time verification codes. The attempt
// counter lives server-side keyed by call, so a caller cannot stretch their
// budget except by explicitly re-issuing, which restarts the 5-minute clock.
type CodeStore struct {
	kv KV
}

// NewCodeStore returns a CodeStore backed by kv.
func NewCodeStore(kv KV) *CodeStore {
	return &CodeStore{kv: kv}
}

func verificationKey(callID string) string {
	return verificationKeyPrefix + callID
}

// Issue generates a fresh code for callID bound to the candidate customer,
// replacing any earlier challenge for the call.
func (cs *CodeStore) Issue(ctx context.Context, callID, email string, customerID uuid.UUID, customerName string) (string, error) {
	code, err := utils.RandomSegment(CodeLength)
	if err != nil {
		return "", fmt.Errorf("code generate: %w", err)
	}

	challenge := Challenge{
		Code:         code,
		Email:        email,
		CustomerID:   customerID,
		CustomerName: customerName,
		CreatedAt:    time.Now().UTC(),
	}

	raw, err := json.Marshal(challenge)
	if err != nil {
		return "", fmt.Errorf("code encode: %w", err)
	}

	if err := cs.kv.SetEx(ctx, verificationKey(callID), string(raw), CodeTTL); err != nil {
		return "", fmt.Errorf("code write: %w", err)
	}

	log.Printf("[verification] code issued for call %s (expires in %s)", callID, CodeTTL)
	return code, nil
}

// Check compares the supplied code against the stored challenge. Comparison
// ignores case and whitespace so a code read aloud in groups ("AB3 H9K")
// still matches. The record is deleted on success and on exhausting the
// attempt budget; otherwise the incremented attempt count is persisted
// without extending the TTL.
func (cs *CodeStore) Check(ctx context.Context, callID, supplied string) (CheckResult, error) {
	key := verificationKey(callID)

	raw, ok, err := cs.kv.Get(ctx, key)
	if err != nil {
		return CheckResult{}, fmt.Errorf("code read: %w", err)
	}
	if !ok {
		return CheckResult{ErrCode: CodeErrExpired}, nil
	}

	var challenge Challenge
	if err := json.Unmarshal([]byte(raw), &challenge); err != nil {
		return CheckResult{}, fmt.Errorf("code decode: %w", err)
	}

	challenge.Attempts++

	if normalizeCode(supplied) == normalizeCode(challenge.Code) {
		if err := cs.kv.Del(ctx, key); err != nil {
			return CheckResult{}, fmt.Errorf("code delete: %w", err)
		}
		log.Printf("[verification] code accepted for call %s", callID)
		return CheckResult{
			Valid:        true,
			CustomerID:   challenge.CustomerID,
			CustomerName: challenge.CustomerName,
			Email:        challenge.Email,
		}, nil
	}

	remaining := MaxCodeAttempts - challenge.Attempts
	if remaining <= 0 {
		if err := cs.kv.Del(ctx, key); err != nil {
			return CheckResult{}, fmt.Errorf("code delete: %w", err)
		}
		log.Printf("[verification] attempt budget exhausted for call %s", callID)
		return CheckResult{ErrCode: CodeErrMaxAttempts}, nil
	}

	updated, err := json.Marshal(challenge)
	if err != nil {
		return CheckResult{}, fmt.Errorf("code encode: %w", err)
	}
	if err := cs.kv.SetKeepTTL(ctx, key, string(updated)); err != nil {
		return CheckResult{}, fmt.Errorf("code write: %w", err)
	}

	log.Printf("[verification] wrong code for call %s, %d attempts remaining", callID, remaining)
	return CheckResult{ErrCode: CodeErrInvalid, AttemptsRemaining: remaining}, nil
}

// Clear drops any outstanding challenge for callID.
func (cs *CodeStore) Clear(ctx context.Context, callID string) error {
	return cs.kv.Del(ctx, verificationKey(callID))
}

func normalizeCode(code string) string {
	upper := strings.ToUpper(strings.TrimSpace(code))
	return strings.Join(strings.Fields(upper), "")
}
