package processor

import (
	"account_onboarding/internal/domain"
	"strings"
	"testing"
)

func TestRuleEngine_Evaluate(t *testing.T) {
	tests := []struct {
		name          string
		applicantName string
		zipCode       string
		age           int
		phone         string
		wantOutcome   domain.Outcome
		wantReason    string
		wantRule      string
	}{
		{"underage", "Young Person", "12345", 16, "5551234567", domain.OutcomeAutoReject, "Age below minimum requirement", "minimum_age"},
		{"underage beats every other rule", "Test Fake", "90210", 17, "1234567890", domain.OutcomeAutoReject, "Age below minimum requirement", "minimum_age"},
		{"senior", "Senior Citizen", "12345", 70, "5551234567", domain.OutcomeAutoApprove, "Senior citizen auto-approval", "senior_citizen"},
		{"senior beats high-risk zip", "Good Person", "90210", 70, "5551234567", domain.OutcomeAutoApprove, "Senior citizen auto-approval", "senior_citizen"},
		{"senior at boundary", "Good Person", "12345", 65, "5551234567", domain.OutcomeAutoApprove, "Senior citizen auto-approval", "senior_citizen"},
		{"high-risk beats premium for 90210", "Good Person", "90210", 30, "5551234567", domain.OutcomeAutoReject, "High-risk zip code", "high_risk_zip"},
		{"high-risk zip with plus four", "Good Person", "10001-1234", 30, "5551234567", domain.OutcomeAutoReject, "High-risk zip code", "high_risk_zip"},
		{"high-risk 60601", "Good Person", "60601", 40, "5551234567", domain.OutcomeAutoReject, "High-risk zip code", "high_risk_zip"},
		{"premium zip", "Good Person", "94102", 22, "5551234567", domain.OutcomeAutoApprove, "Premium zip code area", "premium_zip"},
		{"premium zip beats fake phone", "Good Person", "10021-0001", 30, "1234567890", domain.OutcomeAutoApprove, "Premium zip code area", "premium_zip"},
		{"sequential phone", "Good Person", "12345", 30, "1234567890", domain.OutcomeAutoReject, "Invalid phone number pattern", "invalid_phone"},
		{"all zeros phone", "Good Person", "12345", 30, "0000000000", domain.OutcomeAutoReject, "Invalid phone number pattern", "invalid_phone"},
		{"repeated digit phone", "Good Person", "12345", 30, "7777777777", domain.OutcomeAutoReject, "Invalid phone number pattern", "invalid_phone"},
		{"invalid phone beats suspicious name", "Test User", "12345", 30, "1234567890", domain.OutcomeAutoReject, "Invalid phone number pattern", "invalid_phone"},
		{"name contains test", "Test Person", "12345", 30, "5551234567", domain.OutcomeManualReview, "Suspicious name pattern requires review", "suspicious_name"},
		{"name contains fake any case", "Mr FAKEson", "12345", 40, "5551234567", domain.OutcomeManualReview, "Suspicious name pattern requires review", "suspicious_name"},
		{"name too short", "J", "12345", 40, "5551234567", domain.OutcomeManualReview, "Suspicious name pattern requires review", "suspicious_name"},
		{"name without letters", "12 34", "12345", 40, "5551234567", domain.OutcomeManualReview, "Suspicious name pattern requires review", "suspicious_name"},
		{"name with line break", "John\nSmith", "12345", 40, "5551234567", domain.OutcomeManualReview, "Suspicious name pattern requires review", "suspicious_name"},
		{"name with carriage return", "John Smith\r", "12345", 40, "5551234567", domain.OutcomeManualReview, "Suspicious name pattern requires review", "suspicious_name"},
		{"name with tab is fine", "John\tSmith", "12345", 40, "5551234567", domain.OutcomeAutoApprove, "Standard approval criteria met", "standard_approval"},
		{"young adult", "John Smith", "12345", 22, "5551234567", domain.OutcomeManualReview, "Young adult application requires manual review", "young_adult"},
		{"young adult lower bound", "John Smith", "12345", 18, "5551234567", domain.OutcomeManualReview, "Young adult application requires manual review", "young_adult"},
		{"young adult upper bound", "John Smith", "12345", 25, "5551234567", domain.OutcomeManualReview, "Young adult application requires manual review", "young_adult"},
		{"standard approval", "John Smith", "12345", 40, "5551234567", domain.OutcomeAutoApprove, "Standard approval criteria met", "standard_approval"},
		{"standard approval lower bound", "John Smith", "12345", 26, "5551234567", domain.OutcomeAutoApprove, "Standard approval criteria met", "standard_approval"},
		{"standard approval upper bound", "John Smith", "12345", 64, "5551234567", domain.OutcomeAutoApprove, "Standard approval criteria met", "standard_approval"},
	}

	engine := NewRuleEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Evaluate(tt.applicantName, tt.zipCode, tt.age, tt.phone)

			if got.Outcome != tt.wantOutcome {
				t.Errorf("expected outcome %s, got %s", tt.wantOutcome, got.Outcome)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("expected reason %q, got %q", tt.wantReason, got.Reason)
			}
			if got.Rule != tt.wantRule {
				t.Errorf("expected rule %q, got %q", tt.wantRule, got.Rule)
			}
		})
	}
}

func TestRuleEngine_UnderageAlwaysRejected(t *testing.T) {
	engine := NewRuleEngine()
	zips := []string{"12345", "90210", "94102", "10021-1111"}
	phones := []string{"5551234567", "1234567890", "9999999999"}
	names := []string{"John Smith", "Test", "x"}

	for age := -1; age < 18; age++ {
		for _, zip := range zips {
			for _, phone := range phones {
				for _, name := range names {
					got := engine.Evaluate(name, zip, age, phone)
					if got.Outcome != domain.OutcomeAutoReject || !strings.Contains(got.Reason, "minimum requirement") {
						t.Fatalf("age %d zip %s phone %s name %q: expected minimum age rejection, got %+v", age, zip, phone, name, got)
					}
				}
			}
		}
	}
}

func TestRuleEngine_SeniorsApprovedOutsideHighRiskZips(t *testing.T) {
	engine := NewRuleEngine()

	for age := 65; age <= 120; age++ {
		for _, zip := range []string{"12345", "94102", "55555-1234"} {
			got := engine.Evaluate("Jane Roe", zip, age, "5551234567")
			if got.Outcome != domain.OutcomeAutoApprove || !strings.Contains(got.Reason, "Senior citizen") {
				t.Fatalf("age %d zip %s: expected senior approval, got %+v", age, zip, got)
			}
		}
	}
}

func TestRuleEngine_IsDeterministic(t *testing.T) {
	engine := NewRuleEngine()
	first := engine.Evaluate("Test Person", "90210", 30, "1234567890")

	for i := 0; i < 100; i++ {
		if got := engine.Evaluate("Test Person", "90210", 30, "1234567890"); got != first {
			t.Fatalf("expected %+v on every evaluation, got %+v", first, got)
		}
	}
}

func TestRuleEngine_EvaluateRequest(t *testing.T) {
	engine := NewRuleEngine()
	request := domain.NewAccountRequest("Good Person", "90210", 30, "5551234567")

	got := engine.EvaluateRequest(request)

	if got.Outcome != domain.OutcomeAutoReject || got.Reason != "High-risk zip code" {
		t.Errorf("expected high-risk rejection, got %+v", got)
	}
}

func TestRuleEngine_RulesOrder(t *testing.T) {
	want := []string{
		"minimum_age", "senior_citizen", "high_risk_zip", "premium_zip",
		"invalid_phone", "suspicious_name", "young_adult", "standard_approval", "default",
	}

	got := NewRuleEngine().Rules()

	if len(got) != len(want) {
		t.Fatalf("expected %d rules, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rule %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestIsRepeatedDigit(t *testing.T) {
	tests := map[string]bool{
		"1111111111":  true,
		"0000000000":  true,
		"111111111":   false,
		"11111111111": false,
		"1111111112":  false,
		"aaaaaaaaaa":  false,
	}

	for phone, want := range tests {
		if got := isRepeatedDigit(phone); got != want {
			t.Errorf("isRepeatedDigit(%q) = %v, want %v", phone, got, want)
		}
	}
}
