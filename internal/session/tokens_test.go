package session

import (
	"context"
	"testing"
	"time"
)

func TestUploadTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokenStore(NewMemoryKV())

	token, err := tokens.Create(ctx, "claim-id", "CLM-AB12-CD34", "cust-id", "Sarah Johnson", "user@example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token))
	}

	grant, err := tokens.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if grant == nil {
		t.Fatal("fresh token invalid")
	}
	if grant.ClaimNumber != "CLM-AB12-CD34" {
		t.Errorf("claim number = %q", grant.ClaimNumber)
	}

	if err := tokens.MarkUsed(ctx, token); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}

	grant, err = tokens.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if grant != nil {
		t.Error("used token still validates")
	}
}

func TestUploadTokenUnknown(t *testing.T) {
	tokens := NewTokenStore(NewMemoryKV())

	grant, err := tokens.Validate(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if grant != nil {
		t.Error("unknown token validated")
	}
}

func TestUploadTokenExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	tokens := NewTokenStore(kv)

	base := time.Now()
	kv.now = func() time.Time { return base }

	token, err := tokens.Create(ctx, "claim-id", "CLM-AB12-CD34", "cust-id", "Sarah Johnson", "user@example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	kv.now = func() time.Time { return base.Add(UploadTokenTTL + time.Minute) }
	grant, err := tokens.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if grant != nil {
		t.Error("expired token validated")
	}
}
