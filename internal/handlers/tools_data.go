package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/covera/internal/models"
	"github.com/example/covera/internal/session"
)

func denialResponse(c *fiber.Ctx, d *session.Denial) error {
	return c.Status(d.Status).JSON(fiber.Map{
		"success": false,
		"error":   d.Code,
		"message": d.Message,
	})
}

type getClaimStatusRequest struct {
	ClaimNumber string `json:"claimNumber"`
	CustomerID  string `json:"customerId"`
	CallID      string `json:"callId"`
}

// GetClaimStatus reports claim details for the authenticated caller. The
// customer scope comes from the session, never from the request.
func (h *ToolHandler) GetClaimStatus(c *fiber.Ctx) error {
	var req getClaimStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	sess, denial, err := h.guard.Authorize(c.UserContext(), req.CallID, req.CustomerID)
	if err != nil {
		return err
	}
	if denial != nil {
		return denialResponse(c, denial)
	}

	query := h.db.Where("customer_id = ?", sess.Customer.ID).
		Preload("CaseNotes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		})
	if req.ClaimNumber != "" {
		query = query.Where("claim_number = ?", strings.ToUpper(strings.TrimSpace(req.ClaimNumber)))
	}

	var claims []models.Claim
	if err := query.Find(&claims).Error; err != nil {
		return err
	}

	if len(claims) == 0 {
		message := "No claims found for this customer"
		if req.ClaimNumber != "" {
			message = fmt.Sprintf("No claim found with number %s for this customer", req.ClaimNumber)
		}
		return c.JSON(fiber.Map{
			"success":             false,
			"error":               "NO_CLAIMS_FOUND",
			"claimNumberSearched": req.ClaimNumber,
			"totalClaims":         0,
			"suggestion":          "escalate",
			"message":             message,
		})
	}

	if len(claims) > 1 && req.ClaimNumber == "" {
		summaries := make([]fiber.Map, 0, len(claims))
		for i := range claims {
			summaries = append(summaries, claimSummary(&claims[i]))
		}
		return c.JSON(fiber.Map{
			"success":        true,
			"multipleClaims": true,
			"totalClaims":    len(claims),
			"claims":         summaries,
			"message":        "Multiple claims found - customer needs to specify which one",
			"instruction":    "Describe each claim briefly and ask which one they're asking about",
		})
	}

	claim := &claims[0]
	detail := claimSummary(claim)
	detail["success"] = true
	detail["claimFound"] = true
	detail["message"] = "Claim details retrieved successfully"
	if note := claim.LatestCaseNote(); note != nil {
		detail["contextualHint"] = fmt.Sprintf("Latest update (%s): %s", note.Title, note.Body)
	}
	return c.JSON(detail)
}

func claimSummary(claim *models.Claim) fiber.Map {
	summary := fiber.Map{
		"claimNumber":  claim.ClaimNumber,
		"status":       claim.Status,
		"coverageType": claim.CoverageType,
		"description":  claim.Description,
		"amount":       claim.Amount,
	}
	if claim.Amount > 0 {
		summary["amountFormatted"] = fmt.Sprintf("$%.2f", claim.Amount)
	}
	if claim.IncidentDate != nil {
		summary["incidentDate"] = claim.IncidentDate
		summary["incidentDateFormatted"] = claim.IncidentDate.Format("January 2, 2006")
	}
	if note := claim.LatestCaseNote(); note != nil {
		summary["mostRecentNote"] = fiber.Map{
			"title": note.Title,
			"body":  note.Body,
			"date":  note.CreatedAt,
		}
	}
	return summary
}

type searchKnowledgeBaseRequest struct {
	Query  string `json:"query"`
	CallID string `json:"callId"`
}

// SearchKnowledgeBase retrieves the best-matching FAQ articles by keyword
// overlap against title, keywords, and content.
func (h *ToolHandler) SearchKnowledgeBase(c *fiber.Ctx) error {
	var req searchKnowledgeBaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Query) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query is required")
	}

	_, denial, err := h.guard.Authorize(c.UserContext(), req.CallID, "")
	if err != nil {
		return err
	}
	if denial != nil {
		return denialResponse(c, denial)
	}

	var articles []models.KnowledgeArticle
	if err := h.db.Find(&articles).Error; err != nil {
		return err
	}

	ranked := rankArticles(articles, req.Query)
	if len(ranked) == 0 {
		return c.JSON(fiber.Map{
			"success":      false,
			"error":        "NO_RESULTS",
			"query":        req.Query,
			"resultsFound": 0,
			"message":      "No relevant information found in knowledge base",
		})
	}

	top := ranked[0]
	confidence := "low"
	if top.score > 0.8 {
		confidence = "high"
	} else if top.score > 0.6 {
		confidence = "medium"
	}

	additional := make([]fiber.Map, 0, 2)
	for _, r := range ranked[1:min(len(ranked), 3)] {
		additional = append(additional, fiber.Map{"title": r.article.Title, "score": r.score})
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"resultsFound":      len(ranked),
		"query":             req.Query,
		"articleTitle":      top.article.Title,
		"content":           top.article.Content,
		"relevanceScore":    top.score,
		"confidence":        confidence,
		"additionalResults": additional,
		"message":           "Knowledge base information retrieved successfully",
	})
}

type rankedArticle struct {
	article models.KnowledgeArticle
	score   float64
}

// rankArticles scores by the fraction of query terms appearing in the
// article, weighting title and keyword hits above body hits. A stand-in for
// semantic search that behaves sensibly on a few hundred FAQ rows.
func rankArticles(articles []models.KnowledgeArticle, query string) []rankedArticle {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	var ranked []rankedArticle
	for _, a := range articles {
		title := strings.ToLower(a.Title)
		keywords := strings.ToLower(a.Keywords)
		content := strings.ToLower(a.Content)

		var score float64
		for _, term := range terms {
			switch {
			case strings.Contains(title, term) || strings.Contains(keywords, term):
				score += 1.0
			case strings.Contains(content, term):
				score += 0.5
			}
		}
		score /= float64(len(terms))

		if score > 0 {
			ranked = append(ranked, rankedArticle{article: a, score: score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	return ranked
}

type sendUploadLinkRequest struct {
	ClaimNumber string `json:"claimNumber"`
	CustomerID  string `json:"customerId"`
	CallID      string `json:"callId"`
}

// SendUploadLink mints a 24-hour upload token for one of the caller's claims
// and emails the portal URL to their address on file.
func (h *ToolHandler) SendUploadLink(c *fiber.Ctx) error {
	var req sendUploadLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.ClaimNumber == "" {
		return fiber.NewError(fiber.StatusBadRequest, "claimNumber is required")
	}

	sess, denial, err := h.guard.Authorize(c.UserContext(), req.CallID, req.CustomerID)
	if err != nil {
		return err
	}
	if denial != nil {
		return denialResponse(c, denial)
	}

	if !h.mailer.Enabled() {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   "EMAIL_NOT_CONFIGURED",
			"message": "Email service is not available at this time. Please contact support.",
		})
	}

	var claim models.Claim
	err = h.db.Where("customer_id = ? AND claim_number = ?",
		sess.Customer.ID, strings.ToUpper(strings.TrimSpace(req.ClaimNumber))).
		First(&claim).Error
	if err == gorm.ErrRecordNotFound {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   "CLAIM_NOT_FOUND",
			"message": fmt.Sprintf("I couldn't find claim %s on your account", req.ClaimNumber),
		})
	}
	if err != nil {
		return err
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", sess.Customer.ID).Error; err != nil {
		return err
	}

	if customer.Email == "" {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   "NO_EMAIL",
			"message": "I don't have an email address on file for you. Please contact support to update your contact information.",
		})
	}

	token, err := h.tokens.Create(c.UserContext(),
		claim.ID.String(), claim.ClaimNumber,
		customer.ID.String(), customer.DisplayName(), customer.Email)
	if err != nil {
		return err
	}

	uploadURL := fmt.Sprintf("%s/upload/%s", strings.TrimRight(h.cfg.PublicBaseURL, "/"), token)

	if err := h.mailer.SendUploadLink(customer.Email, customer.DisplayName(), claim.ClaimNumber, claim.CoverageType, uploadURL); err != nil {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   "EMAIL_SEND_FAILED",
			"message": "I encountered an error sending the upload link. Please try again or contact support.",
		})
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"linkSent":       true,
		"email":          customer.Email,
		"claimNumber":    claim.ClaimNumber,
		"expiresInHours": int(session.UploadTokenTTL.Hours()),
		"message": fmt.Sprintf("Perfect! I've sent a secure upload link to %s. The link will be valid for 24 hours. You can use it to upload photos, PDFs, or any other documentation for your claim.",
			customer.Email),
	})
}

type endCallRequest struct {
	Reason          string `json:"reason"`
	Summary         string `json:"summary"`
	TransferToAgent bool   `json:"transferToAgent"`
	CallID          string `json:"callId"`
}

// EndCall signals how the platform should wrap up: plain hang-up or a
// transfer to the tier-2 line. Session teardown happens on the end-of-call
// webhook, not here.
func (h *ToolHandler) EndCall(c *fiber.Ctx) error {
	var req endCallRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Reason == "" {
		req.Reason = "completed"
	}

	if req.TransferToAgent || req.Reason == "escalate" {
		return c.JSON(fiber.Map{
			"success":             true,
			"action":              "TRANSFER_CALL",
			"reason":              req.Reason,
			"summary":             req.Summary,
			"transferToHuman":     true,
			"transferDestination": h.cfg.EscalationPhone,
			"message":             "Let me transfer you to one of our representatives who can help you with this. Please hold while I connect you.",
		})
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"action":          "END_CALL",
		"reason":          req.Reason,
		"summary":         req.Summary,
		"transferToHuman": false,
		"message":         "Thank you for calling Covera Insurance. Have a great day!",
	})
}
