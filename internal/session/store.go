package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

const sessionKeyPrefix = "voice:session:"

// AuthStep is the caller's position in the identity-verification flow.
type AuthStep string

const (
	StepPending           AuthStep = "PENDING"
	StepPhoneVerified     AuthStep = "PHONE_VERIFIED"
	StepIdentityConfirmed AuthStep = "IDENTITY_CONFIRMED"
)

// Method records which resolver produced the customer match bound to a
// session. Fuzzy and email matches are weaker trust and must clear a
// one-time-code challenge before identity confirmation is honored; a
// successful challenge rebinds the session with MethodEmailCode.
type Method string

const (
	MethodPhone     Method = "phone"
	MethodEmail     Method = "email"
	MethodNameDOB   Method = "name_dob"
	MethodEmailCode Method = "email_code"
)

// CustomerSnapshot is a point-in-time copy of the matched customer, not a
// live reference. Enough to greet the caller and scope later data lookups.
type CustomerSnapshot struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
}

// HistoryEntry is one audit record in a session's action log.
type HistoryEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Data      map[string]any `json:"data,omitempty"`
}

// CallSession tracks one live phone call's authentication state across the
// independent tool invocations the voice platform makes during the call.
type CallSession struct {
	CallID             string           `json:"call_id"`
	PhoneNumber        string           `json:"phone_number"`
	CreatedAt          time.Time        `json:"created_at"`
	LastActivity       time.Time        `json:"last_activity"`
	IsAuthenticated    bool             `json:"is_authenticated"`
	AuthenticationStep AuthStep         `json:"authentication_step"`
	Customer           *CustomerSnapshot `json:"customer,omitempty"`
	VerificationMethod Method           `json:"verification_method,omitempty"`
	History            []HistoryEntry   `json:"history,omitempty"`
}

// RequiresCodeChallenge reports whether the session's customer match came
// from a resolver too weak to confirm identity on its own. Phone matches are
// an exact unique-key lookup; everything else needs the emailed one-time
// code first.
func (s *CallSession) RequiresCodeChallenge() bool {
	if s.Customer == nil {
		return false
	}
	return s.VerificationMethod == MethodEmail || s.VerificationMethod == MethodNameDOB
}

// Store manages CallSession records in the KV backend. Every mutating call
// rewrites the whole record with a fresh TTL; the backend has no atomic
// touch-without-overwrite primitive, and last-write-wins per key is the
// accepted concurrency model for a single human caller.
type Store struct {
	kv  KV
	ttl time.Duration
}

// NewStore returns a Store writing sessions with the given sliding TTL.
func NewStore(kv KV, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl}
}

func sessionKey(callID string) string {
	return sessionKeyPrefix + callID
}

// Init creates a fresh PENDING session for callID, replacing any existing
// one.
func (s *Store) Init(ctx context.Context, callID, phoneNumber string) (*CallSession, error) {
	now := time.Now().UTC()
	sess := &CallSession{
		CallID:             callID,
		PhoneNumber:        phoneNumber,
		CreatedAt:          now,
		LastActivity:       now,
		AuthenticationStep: StepPending,
		History:            []HistoryEntry{},
	}

	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}

	log.Printf("[session] initialized call %s", callID)
	return sess, nil
}

// Get returns the session for callID, or nil when none exists. An expired
// session is indistinguishable from one that never started.
func (s *Store) Get(ctx context.Context, callID string) (*CallSession, error) {
	raw, ok, err := s.kv.Get(ctx, sessionKey(callID))
	if err != nil {
		return nil, fmt.Errorf("session read: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var sess CallSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return &sess, nil
}

// GetOrCreate returns the existing session, refreshing its activity stamp
// and TTL. When no session exists it creates one only if a phone number is
// supplied, letting read-only probes stay side-effect free.
func (s *Store) GetOrCreate(ctx context.Context, callID, phoneNumber string) (*CallSession, error) {
	sess, err := s.Get(ctx, callID)
	if err != nil {
		return nil, err
	}

	if sess == nil {
		if phoneNumber == "" {
			return nil, nil
		}
		return s.Init(ctx, callID, phoneNumber)
	}

	sess.LastActivity = time.Now().UTC()
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SetCustomerVerified binds the matched customer to the session and advances
// it to PHONE_VERIFIED. A missing session is a silent no-op: tool calls
// arriving out of order must not fabricate sessions.
func (s *Store) SetCustomerVerified(ctx context.Context, callID string, customer CustomerSnapshot, method Method) error {
	sess, err := s.Get(ctx, callID)
	if err != nil {
		return err
	}
	if sess == nil {
		log.Printf("[session] verify ignored, no session for call %s", callID)
		return nil
	}

	sess.Customer = &customer
	sess.VerificationMethod = method
	sess.AuthenticationStep = StepPhoneVerified
	sess.LastActivity = time.Now().UTC()
	sess.appendHistory("CUSTOMER_VERIFIED", map[string]any{
		"customer_id": customer.ID.String(),
		"method":      string(method),
	})

	if err := s.write(ctx, sess); err != nil {
		return err
	}

	log.Printf("[session] customer verified for call %s via %s: %s", callID, method, customer.Name)
	return nil
}

// SetAuthenticated finalizes or rejects identity confirmation. A rejection
// keeps the session at PHONE_VERIFIED rather than resetting it to PENDING,
// so an alternate verification path can continue without re-collecting the
// phone number.
func (s *Store) SetAuthenticated(ctx context.Context, callID string, confirmed bool) error {
	sess, err := s.Get(ctx, callID)
	if err != nil {
		return err
	}
	if sess == nil {
		log.Printf("[session] authenticate ignored, no session for call %s", callID)
		return nil
	}

	sess.IsAuthenticated = confirmed
	if confirmed {
		sess.AuthenticationStep = StepIdentityConfirmed
	} else {
		sess.AuthenticationStep = StepPhoneVerified
	}
	sess.LastActivity = time.Now().UTC()

	action := "AUTHENTICATED"
	if !confirmed {
		action = "AUTH_REJECTED"
	}
	sess.appendHistory(action, map[string]any{"confirmed": confirmed})

	if err := s.write(ctx, sess); err != nil {
		return err
	}

	log.Printf("[session] call %s authenticated=%v", callID, confirmed)
	return nil
}

// CustomerID returns the snapshotted customer id for callID. It does not
// check IsAuthenticated; authorization decisions belong to the Guard.
func (s *Store) CustomerID(ctx context.Context, callID string) (uuid.UUID, bool, error) {
	sess, err := s.Get(ctx, callID)
	if err != nil {
		return uuid.Nil, false, err
	}
	if sess == nil || sess.Customer == nil {
		return uuid.Nil, false, nil
	}
	return sess.Customer.ID, true, nil
}

// End deletes the session record. Ending an absent session is not an error.
func (s *Store) End(ctx context.Context, callID string) error {
	if err := s.kv.Del(ctx, sessionKey(callID)); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	log.Printf("[session] ended call %s", callID)
	return nil
}

// TTL reports the remaining lifetime of a session record, for diagnostics.
func (s *Store) TTL(ctx context.Context, callID string) (time.Duration, error) {
	return s.kv.TTL(ctx, sessionKey(callID))
}

func (s *Store) write(ctx context.Context, sess *CallSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := s.kv.SetEx(ctx, sessionKey(sess.CallID), string(raw), s.ttl); err != nil {
		return fmt.Errorf("session write: %w", err)
	}
	return nil
}

func (s *CallSession) appendHistory(action string, data map[string]any) {
	s.History = append(s.History, HistoryEntry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Data:      data,
	})
}
