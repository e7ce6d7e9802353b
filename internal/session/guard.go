package session

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Guard error codes surfaced to the voice platform.
const (
	DenyAuthRequired = "authentication_required"
	DenyAuthMismatch = "authentication_mismatch"
)

// Denial describes why a tool call was refused and how to answer it.
type Denial struct {
	Status  int
	Code    string
	Message string
}

// Guard is the single authorization gate in front of every data-access tool.
// Tools must not re-derive authorization from session fields themselves.
type Guard struct {
	store *Store
}

// NewGuard returns a Guard reading from store.
func NewGuard(store *Store) *Guard {
	return &Guard{store: store}
}

// Authorize checks that the call has an authenticated session and, when the
// client asserts a customer id, that it matches the session's bound
// customer. Returns the session on success, or a Denial describing the
// refusal. The error return is reserved for backend failures.
func (g *Guard) Authorize(ctx context.Context, callID, claimedCustomerID string) (*CallSession, *Denial, error) {
	if callID == "" {
		return nil, &Denial{
			Status:  fiber.StatusUnauthorized,
			Code:    DenyAuthRequired,
			Message: "I need to verify your identity first before I can access that information. Please provide your phone number, email, or name and date of birth.",
		}, nil
	}

	sess, err := g.store.Get(ctx, callID)
	if err != nil {
		return nil, nil, err
	}

	if sess == nil || !sess.IsAuthenticated || sess.Customer == nil {
		return nil, &Denial{
			Status:  fiber.StatusUnauthorized,
			Code:    DenyAuthRequired,
			Message: "Your session has expired or you are not authenticated. Please verify your identity first.",
		}, nil
	}

	if claimedCustomerID != "" && claimedCustomerID != sess.Customer.ID.String() {
		log.Printf("[guard] customer id mismatch on call %s: claimed %s, session has %s",
			callID, claimedCustomerID, sess.Customer.ID)
		return nil, &Denial{
			Status:  fiber.StatusForbidden,
			Code:    DenyAuthMismatch,
			Message: "There was an authentication error. Please verify your identity again.",
		}, nil
	}

	return sess, nil, nil
}
