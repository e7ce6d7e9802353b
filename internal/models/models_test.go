package models

import (
	"regexp"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Customer{}, &Claim{}, &CaseNote{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCustomerHooksNormalizeAndAssignPolicy(t *testing.T) {
	db := testDB(t)

	customer := Customer{
		FirstName: "Sarah",
		LastName:  "Johnson",
		Phone:     "(555) 123-4567",
		Email:     " Sarah.Johnson@Example.COM ",
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	if customer.Phone != "+15551234567" {
		t.Errorf("phone = %q, want +15551234567", customer.Phone)
	}
	if customer.Email != "sarah.johnson@example.com" {
		t.Errorf("email = %q", customer.Email)
	}
	if customer.FullName != "Sarah Johnson" {
		t.Errorf("full name = %q", customer.FullName)
	}

	policyPattern := regexp.MustCompile(`^POL-[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)
	if !policyPattern.MatchString(customer.PolicyNumber) {
		t.Errorf("policy number %q does not match expected format", customer.PolicyNumber)
	}
}

func TestCustomerRejectsDigitlessPhone(t *testing.T) {
	db := testDB(t)

	customer := Customer{FirstName: "Bad", Phone: "no digits"}
	if err := db.Create(&customer).Error; err == nil {
		t.Error("customer with digitless phone was accepted")
	}
}

func TestClaimNumberAssigned(t *testing.T) {
	db := testDB(t)

	customer := Customer{FirstName: "Sarah", LastName: "Johnson", Phone: "5551234567"}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}

	claim := Claim{CustomerID: customer.ID, CoverageType: "auto"}
	if err := db.Create(&claim).Error; err != nil {
		t.Fatalf("create claim: %v", err)
	}

	claimPattern := regexp.MustCompile(`^CLM-[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)
	if !claimPattern.MatchString(claim.ClaimNumber) {
		t.Errorf("claim number %q does not match expected format", claim.ClaimNumber)
	}

	supplied := Claim{CustomerID: customer.ID, ClaimNumber: "CLM-TEST-KEEP"}
	if err := db.Create(&supplied).Error; err != nil {
		t.Fatalf("create claim with number: %v", err)
	}
	if supplied.ClaimNumber != "CLM-TEST-KEEP" {
		t.Errorf("supplied claim number overwritten to %q", supplied.ClaimNumber)
	}
}

func TestDisplayNameFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		customer Customer
		want     string
	}{
		{"full name wins", Customer{FullName: "Dr. Sarah Johnson", FirstName: "Sarah"}, "Dr. Sarah Johnson"},
		{"joined names", Customer{FirstName: "Sarah", LastName: "Johnson"}, "Sarah Johnson"},
		{"first only", Customer{FirstName: "Sarah"}, "Sarah"},
		{"nothing", Customer{}, "the account holder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.customer.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLatestCaseNote(t *testing.T) {
	claim := Claim{}
	if claim.LatestCaseNote() != nil {
		t.Error("empty claim returned a note")
	}

	claim.CaseNotes = []CaseNote{
		{Title: "first"},
		{Title: "second"},
	}
	note := claim.LatestCaseNote()
	if note == nil || note.Title != "second" {
		t.Errorf("latest note = %+v, want second", note)
	}
}
