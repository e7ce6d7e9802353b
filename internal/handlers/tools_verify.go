package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/covera/internal/session"
	"github.com/example/covera/internal/verify"
)

func snapshotFromCustomer(result verify.Result) session.CustomerSnapshot {
	c := result.Customer
	phone := c.Phone
	if result.Normalized != "" && strings.HasPrefix(result.Normalized, "+") {
		phone = result.Normalized
	}
	return session.CustomerSnapshot{
		ID:        c.ID,
		Name:      c.DisplayName(),
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     phone,
	}
}

type verifyCustomerRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	CallID      string `json:"callId"`
}

// VerifyCustomer looks the caller up by phone number, the primary
// verification path.
func (h *ToolHandler) VerifyCustomer(c *fiber.Ctx) error {
	var req verifyCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.PhoneNumber == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phoneNumber is required")
	}

	result, err := h.phones.Resolve(req.PhoneNumber)
	if err != nil {
		return err
	}

	switch result.Code {
	case verify.CodeInvalidFormat:
		return c.JSON(fiber.Map{
			"success":             false,
			"error":               result.Code,
			"phoneNumberProvided": req.PhoneNumber,
			"message":             "Could not parse phone number format",
		})
	case verify.CodeIncompleteNumber:
		return c.JSON(fiber.Map{
			"success":             false,
			"error":               result.Code,
			"phoneNumberProvided": req.PhoneNumber,
			"message":             "Phone number is incomplete",
		})
	case verify.CodeNotFound:
		return c.JSON(fiber.Map{
			"success":               false,
			"error":                 result.Code,
			"phoneNumberProvided":   req.PhoneNumber,
			"phoneNumberNormalized": result.Normalized,
			"message":               "No customer account found with this phone number",
		})
	}

	if req.CallID != "" {
		if err := h.sessions.SetCustomerVerified(c.UserContext(), req.CallID, snapshotFromCustomer(result), session.MethodPhone); err != nil {
			return err
		}
	}

	customer := result.Customer
	return c.JSON(fiber.Map{
		"success":       true,
		"customerFound": true,
		"customerId":    customer.ID,
		"customerName":  customer.DisplayName(),
		"firstName":     customer.FirstName,
		"lastName":      customer.LastName,
		"phoneNumber":   result.Normalized,
		"nextStep":      "CONFIRM_IDENTITY",
		"message":       "Customer account located - identity confirmation required",
	})
}

type alternativeVerificationRequest struct {
	Method      string `json:"method"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	CallID      string `json:"callId"`
}

// AlternativeVerification handles the fallback identity paths: email lookup
// or name plus date of birth. Both are weaker trust than a phone match and
// leave the session requiring a code challenge.
func (h *ToolHandler) AlternativeVerification(c *fiber.Ctx) error {
	var req alternativeVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	switch req.Method {
	case "email":
		if req.Email == "" {
			return c.JSON(fiber.Map{
				"success": false,
				"error":   "MISSING_EMAIL",
				"message": "Email address is required for email verification",
			})
		}
		return h.verifyByEmail(c, req)

	case "name_dob":
		if req.FirstName == "" || req.LastName == "" || req.DateOfBirth == "" {
			return c.JSON(fiber.Map{
				"success": false,
				"error":   "MISSING_NAME_DOB",
				"message": "First name, last name, and date of birth are all required for this verification method",
			})
		}
		return h.verifyByNameDOB(c, req)

	default:
		return c.JSON(fiber.Map{
			"success": false,
			"error":   "INVALID_METHOD",
			"message": "Invalid verification method specified",
		})
	}
}

func (h *ToolHandler) verifyByEmail(c *fiber.Ctx, req alternativeVerificationRequest) error {
	result, err := h.emails.Resolve(req.Email)
	if err != nil {
		return err
	}

	if !result.Matched() {
		return c.JSON(fiber.Map{
			"success":       false,
			"error":         result.Code,
			"emailProvided": req.Email,
			"message":       "No customer account found with this email address",
		})
	}

	if req.CallID != "" {
		if err := h.sessions.SetCustomerVerified(c.UserContext(), req.CallID, snapshotFromCustomer(result), session.MethodEmail); err != nil {
			return err
		}
	}

	customer := result.Customer
	return c.JSON(fiber.Map{
		"success":            true,
		"customerFound":      true,
		"customerId":         customer.ID,
		"customerName":       customer.DisplayName(),
		"firstName":          customer.FirstName,
		"lastName":           customer.LastName,
		"email":              customer.Email,
		"phone":              customer.Phone,
		"verificationMethod": "EMAIL",
		"nextStep":           "CONFIRM_IDENTITY",
		"message":            "Customer account located via email - identity confirmation required",
	})
}

func (h *ToolHandler) verifyByNameDOB(c *fiber.Ctx, req alternativeVerificationRequest) error {
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "dateOfBirth must be in YYYY-MM-DD format")
	}

	result, err := h.names.Resolve(req.FirstName, req.LastName, dob)
	if err != nil {
		return err
	}

	switch result.Code {
	case verify.CodeDOBNotFound:
		return c.JSON(fiber.Map{
			"success":     false,
			"error":       result.Code,
			"dateOfBirth": req.DateOfBirth,
			"message":     "No customer account found with this date of birth",
		})
	case verify.CodeNameNotFound:
		return c.JSON(fiber.Map{
			"success":           false,
			"error":             result.Code,
			"firstNameProvided": req.FirstName,
			"lastNameProvided":  req.LastName,
			"dateOfBirth":       req.DateOfBirth,
			"message":           "No customer account found with this name and date of birth combination",
		})
	}

	if req.CallID != "" {
		if err := h.sessions.SetCustomerVerified(c.UserContext(), req.CallID, snapshotFromCustomer(result), session.MethodNameDOB); err != nil {
			return err
		}
	}

	customer := result.Customer
	return c.JSON(fiber.Map{
		"success":            true,
		"customerFound":      true,
		"customerId":         customer.ID,
		"customerName":       customer.DisplayName(),
		"firstName":          customer.FirstName,
		"lastName":           customer.LastName,
		"email":              customer.Email,
		"phone":              customer.Phone,
		"verificationMethod": "NAME_DOB",
		"matchConfidence":    result.Confidence,
		"nextStep":           "CONFIRM_IDENTITY",
		"message":            "Customer account located via name and date of birth - identity confirmation required",
	})
}

type sendVerificationCodeRequest struct {
	Email        string `json:"email"`
	CustomerID   string `json:"customerId"`
	CustomerName string `json:"customerName"`
	CallID       string `json:"callId"`
}

// SendVerificationCode issues a one-time code for the call and emails it to
// the candidate customer's address.
func (h *ToolHandler) SendVerificationCode(c *fiber.Ctx) error {
	var req sendVerificationCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.CallID == "" {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   "MISSING_CALL_ID",
			"message": "Call ID is required for verification",
		})
	}

	if req.Email == "" {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   "MISSING_EMAIL",
			"message": "Email address is required",
		})
	}

	if !h.mailer.Enabled() {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   "EMAIL_NOT_CONFIGURED",
			"message": "Email verification is not available at this time. Please try another verification method.",
		})
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "customerId must be a valid id")
	}

	code, err := h.codes.Issue(c.UserContext(), req.CallID, req.Email, customerID, req.CustomerName)
	if err != nil {
		return err
	}

	if err := h.mailer.SendVerificationCode(req.Email, req.CustomerName, code); err != nil {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   "EMAIL_SEND_FAILED",
			"message": "Failed to send verification email",
		})
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"codeSent":         true,
		"email":            req.Email,
		"expiresInSeconds": int(session.CodeTTL.Seconds()),
		"message": fmt.Sprintf("A 6-character verification code has been sent to %s. Please check your email and read the code to me when you're ready.",
			req.Email),
	})
}

type verifyEmailCodeRequest struct {
	Code   string `json:"code"`
	CallID string `json:"callId"`
}

// VerifyEmailCode checks the caller's spoken code against the outstanding
// challenge and, on success, rebinds the session with code-backed trust.
func (h *ToolHandler) VerifyEmailCode(c *fiber.Ctx) error {
	var req verifyEmailCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.CallID == "" {
		return c.JSON(fiber.Map{
			"success":  false,
			"verified": false,
			"error":    "MISSING_CALL_ID",
			"message":  "Call ID is required for verification",
		})
	}

	if req.Code == "" {
		return c.JSON(fiber.Map{
			"success":  false,
			"verified": false,
			"error":    "MISSING_CODE",
			"message":  "Verification code is required",
		})
	}

	result, err := h.codes.Check(c.UserContext(), req.CallID, req.Code)
	if err != nil {
		return err
	}

	if result.Valid {
		first, last := splitName(result.CustomerName)
		snapshot := session.CustomerSnapshot{
			ID:        result.CustomerID,
			Name:      result.CustomerName,
			FirstName: first,
			LastName:  last,
		}
		if err := h.sessions.SetCustomerVerified(c.UserContext(), req.CallID, snapshot, session.MethodEmailCode); err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success":      true,
			"verified":     true,
			"customerId":   result.CustomerID,
			"customerName": result.CustomerName,
			"email":        result.Email,
			"nextStep":     "CONFIRM_IDENTITY",
			"message": fmt.Sprintf("Email verification successful! I've confirmed your identity via the code sent to %s. Am I speaking with %s?",
				result.Email, result.CustomerName),
		})
	}

	switch result.ErrCode {
	case session.CodeErrExpired:
		return c.JSON(fiber.Map{
			"success":  false,
			"verified": false,
			"error":    result.ErrCode,
			"message":  "The verification code has expired. Would you like me to send a new code?",
		})
	case session.CodeErrMaxAttempts:
		return c.JSON(fiber.Map{
			"success":           false,
			"verified":          false,
			"error":             result.ErrCode,
			"attemptsRemaining": 0,
			"escalate":          true,
			"message":           "Too many incorrect attempts. For your security, I need to transfer you to a representative who can help verify your identity.",
		})
	default:
		plural := "s"
		if result.AttemptsRemaining == 1 {
			plural = ""
		}
		return c.JSON(fiber.Map{
			"success":           false,
			"verified":          false,
			"error":             result.ErrCode,
			"attemptsRemaining": result.AttemptsRemaining,
			"message": fmt.Sprintf("That code doesn't match. You have %d attempt%s remaining. Could you please try again?",
				result.AttemptsRemaining, plural),
		})
	}
}

type confirmIdentityRequest struct {
	Confirmed bool   `json:"confirmed"`
	CallID    string `json:"callId"`
}

// ConfirmIdentity finalizes authentication after the caller confirms they
// are the matched customer. Matches from the fuzzy or bare-email paths must
// have cleared a code challenge first; a denial keeps partial trust so an
// alternate path can continue.
func (h *ToolHandler) ConfirmIdentity(c *fiber.Ctx) error {
	var req confirmIdentityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if !req.Confirmed {
		if req.CallID != "" {
			if err := h.sessions.SetAuthenticated(c.UserContext(), req.CallID, false); err != nil {
				return err
			}
		}
		return c.JSON(fiber.Map{
			"success":       false,
			"authenticated": false,
			"action":        "ESCALATE_TO_HUMAN",
			"reason":        "IDENTITY_MISMATCH",
			"escalate":      true,
			"message":       "Identity not confirmed - customer needs human agent for additional verification",
		})
	}

	if req.CallID != "" {
		sess, err := h.sessions.Get(c.UserContext(), req.CallID)
		if err != nil {
			return err
		}
		if sess != nil && sess.RequiresCodeChallenge() {
			return c.JSON(fiber.Map{
				"success": false,
				"error":   "CODE_REQUIRED",
				"message": "This verification method requires an emailed code before I can confirm your identity. Let me send a verification code to your email on file.",
			})
		}
		if err := h.sessions.SetAuthenticated(c.UserContext(), req.CallID, true); err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"authenticated":     true,
		"action":            "PROCEED_TO_SERVICE",
		"availableServices": []string{"checkClaimStatus", "searchKnowledgeBase", "generalInquiry"},
		"message":           "Identity confirmed - customer authenticated and ready for service",
	})
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
