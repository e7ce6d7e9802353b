package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/example/covera/internal/utils"
)

const (
	uploadKeyPrefix = "voice:upload:"

	// UploadTokenTTL is the fixed lifetime of a document-upload grant. Unlike
	// sessions, upload tokens outlive the call.
	UploadTokenTTL = 24 * time.Hour

	uploadTokenBytes = 32
)

// UploadToken grants one customer the right to attach documents to one
// claim. Keyed by the token value itself, not the call.
type UploadToken struct {
	Token         string    `json:"token"`
	ClaimID       string    `json:"claim_id"`
	ClaimNumber   string    `json:"claim_number"`
	CustomerID    string    `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	Used          bool      `json:"used"`
}

// TokenStore manages upload grants in the KV backend.
type TokenStore struct {
	kv KV
}

// NewTokenStore returns a TokenStore backed by kv.
func NewTokenStore(kv KV) *TokenStore {
	return &TokenStore{kv: kv}
}

func uploadKey(token string) string {
	return uploadKeyPrefix + token
}

// Create mints a high-entropy token for the claim/customer pair and stores
// it with a 24-hour expiry.
func (ts *TokenStore) Create(ctx context.Context, claimID, claimNumber, customerID, customerName, customerEmail string) (string, error) {
	token, err := utils.SecureToken(uploadTokenBytes)
	if err != nil {
		return "", fmt.Errorf("token generate: %w", err)
	}

	now := time.Now().UTC()
	record := UploadToken{
		Token:         token,
		ClaimID:       claimID,
		ClaimNumber:   claimNumber,
		CustomerID:    customerID,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		CreatedAt:     now,
		ExpiresAt:     now.Add(UploadTokenTTL),
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("token encode: %w", err)
	}

	if err := ts.kv.SetEx(ctx, uploadKey(token), string(raw), UploadTokenTTL); err != nil {
		return "", fmt.Errorf("token write: %w", err)
	}

	log.Printf("[upload] token created for claim %s", claimNumber)
	return token, nil
}

// Validate returns the grant for token, or nil when the token is missing,
// expired, or already used.
func (ts *TokenStore) Validate(ctx context.Context, token string) (*UploadToken, error) {
	raw, ok, err := ts.kv.Get(ctx, uploadKey(token))
	if err != nil {
		return nil, fmt.Errorf("token read: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var record UploadToken
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("token decode: %w", err)
	}

	// The backend TTL should have expired the key already; the stored stamp
	// is the authoritative double check.
	if time.Now().After(record.ExpiresAt) {
		_ = ts.kv.Del(ctx, uploadKey(token))
		return nil, nil
	}

	if record.Used {
		return nil, nil
	}

	return &record, nil
}

// MarkUsed flags the token as consumed, preserving its remaining TTL so the
// record stays inspectable until natural expiry.
func (ts *TokenStore) MarkUsed(ctx context.Context, token string) error {
	raw, ok, err := ts.kv.Get(ctx, uploadKey(token))
	if err != nil {
		return fmt.Errorf("token read: %w", err)
	}
	if !ok {
		return nil
	}

	var record UploadToken
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return fmt.Errorf("token decode: %w", err)
	}

	record.Used = true
	updated, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("token encode: %w", err)
	}

	return ts.kv.SetKeepTTL(ctx, uploadKey(token), string(updated))
}
