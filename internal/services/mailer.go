package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

// Mailer delivers verification codes and upload links to customers.
type Mailer interface {
	// Enabled reports whether outbound email is configured.
	Enabled() bool
	// SendVerificationCode delivers a one-time code.
	SendVerificationCode(to, customerName, code string) error
	// SendUploadLink delivers a secure document-upload URL for a claim.
	SendUploadLink(to, customerName, claimNumber, coverageType, uploadURL string) error
}

// ResendMailer sends through the Resend HTTP API.
type ResendMailer struct {
	apiKey     string
	verifyFrom string
	docsFrom   string
	client     *http.Client
}

// NewResendMailer builds a mailer. An empty API key yields a disabled mailer
// that refuses sends without failing construction.
func NewResendMailer(apiKey, verifyFrom, docsFrom string) *ResendMailer {
	return &ResendMailer{
		apiKey:     apiKey,
		verifyFrom: verifyFrom,
		docsFrom:   docsFrom,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether an API key was configured.
func (m *ResendMailer) Enabled() bool {
	return m.apiKey != ""
}

type resendMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// SendVerificationCode delivers a one-time code, spaced in groups of three
// so it reads naturally over the phone.
func (m *ResendMailer) SendVerificationCode(to, customerName, code string) error {
	formatted := spaceCode(code)

	text := fmt.Sprintf(`Hello %s,

We received a request to verify your identity during a phone call with our customer service.

Your verification code is: %s

This code will expire in 5 minutes and can be used only once.

If you didn't request this code, please disregard this email or contact our support team.`,
		customerName, formatted)

	html := fmt.Sprintf(`<p>Hello %s,</p>
<p>We received a request to verify your identity during a phone call with our customer service.</p>
<p>Your verification code is:</p>
<p style="font-size:32px;font-weight:bold;letter-spacing:6px;font-family:monospace;">%s</p>
<p>This code will expire in 5 minutes and can be used only once.</p>
<p>If you didn't request this code, please disregard this email or contact our support team immediately.</p>`,
		customerName, formatted)

	return m.send(resendMessage{
		From:    m.verifyFrom,
		To:      to,
		Subject: "Your Verification Code - Covera Insurance",
		HTML:    html,
		Text:    text,
	})
}

// SendUploadLink delivers a secure document-upload URL for a claim.
func (m *ResendMailer) SendUploadLink(to, customerName, claimNumber, coverageType, uploadURL string) error {
	if coverageType == "" {
		coverageType = "N/A"
	}

	text := fmt.Sprintf(`Hello %s,

Thank you for contacting us about your claim. We've created a secure upload portal for you to submit your documentation.

Claim Number: %s
Coverage Type: %s

Upload your documents here:
%s

Important: This link will expire in 24 hours for security purposes.`,
		customerName, claimNumber, coverageType, uploadURL)

	html := fmt.Sprintf(`<p>Hello %s,</p>
<p>Thank you for contacting us about your claim. We've created a secure upload portal for you to submit your documentation.</p>
<p><strong>Claim Number:</strong> %s<br><strong>Coverage Type:</strong> %s</p>
<p><a href="%s">Upload Documents</a></p>
<p>If the link doesn't work, copy and paste this URL into your browser:<br>%s</p>
<p>Important: This link will expire in 24 hours for security purposes.</p>`,
		customerName, claimNumber, coverageType, uploadURL, uploadURL)

	return m.send(resendMessage{
		From:    m.docsFrom,
		To:      to,
		Subject: fmt.Sprintf("Upload Documents for Claim %s", claimNumber),
		HTML:    html,
		Text:    text,
	})
}

func (m *ResendMailer) send(msg resendMessage) error {
	if !m.Enabled() {
		log.Println("[mailer] API key not configured, dropping message")
		return fmt.Errorf("mailer not configured")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, resendEndpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		log.Printf("[mailer] send failed: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Printf("[mailer] unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		return fmt.Errorf("resend returned status %d", resp.StatusCode)
	}

	return nil
}

// spaceCode splits a code into groups of three ("AB3H9K" -> "AB3 H9K").
func spaceCode(code string) string {
	var groups []string
	for len(code) > 3 {
		groups = append(groups, code[:3])
		code = code[3:]
	}
	groups = append(groups, code)
	return strings.Join(groups, " ")
}
