package processor

import (
	"account_onboarding/internal/domain"
	"strings"
	"unicode/utf8"
)

const minimumAge = 18

var (
	highRiskZipCodes = []string{"90210", "10001", "60601"}
	premiumZipCodes  = []string{"94102", "90210", "10021"}
)

// Applicant is the subset of a request the rules look at.
type Applicant struct {
	Name        string
	ZipCode     string
	Age         int
	PhoneNumber string
}

type EligibilityRule struct {
	Name    string
	Matches func(Applicant) bool
	Outcome domain.Outcome
	Reason  string
}

// RuleEngine evaluates the eligibility rules in their fixed order. The first
// matching rule decides; order matters because rules overlap (90210 is both
// high-risk and premium).
type RuleEngine struct {
	rules    []EligibilityRule
	fallback EligibilityRule
}

func NewRuleEngine() *RuleEngine {
	return &RuleEngine{
		rules: []EligibilityRule{
			{
				Name:    "minimum_age",
				Matches: func(a Applicant) bool { return a.Age < minimumAge },
				Outcome: domain.OutcomeAutoReject,
				Reason:  "Age below minimum requirement",
			},
			{
				Name:    "senior_citizen",
				Matches: func(a Applicant) bool { return a.Age >= 65 },
				Outcome: domain.OutcomeAutoApprove,
				Reason:  "Senior citizen auto-approval",
			},
			{
				Name:    "high_risk_zip",
				Matches: func(a Applicant) bool { return hasZipPrefix(a.ZipCode, highRiskZipCodes) },
				Outcome: domain.OutcomeAutoReject,
				Reason:  "High-risk zip code",
			},
			{
				Name:    "premium_zip",
				Matches: func(a Applicant) bool { return hasZipPrefix(a.ZipCode, premiumZipCodes) },
				Outcome: domain.OutcomeAutoApprove,
				Reason:  "Premium zip code area",
			},
			{
				Name:    "invalid_phone",
				Matches: func(a Applicant) bool { return hasInvalidPhonePattern(a.PhoneNumber) },
				Outcome: domain.OutcomeAutoReject,
				Reason:  "Invalid phone number pattern",
			},
			{
				Name:    "suspicious_name",
				Matches: func(a Applicant) bool { return hasSuspiciousNamePattern(a.Name) },
				Outcome: domain.OutcomeManualReview,
				Reason:  "Suspicious name pattern requires review",
			},
			{
				Name:    "young_adult",
				Matches: func(a Applicant) bool { return a.Age >= 18 && a.Age <= 25 },
				Outcome: domain.OutcomeManualReview,
				Reason:  "Young adult application requires manual review",
			},
			{
				Name:    "standard_approval",
				Matches: func(a Applicant) bool { return a.Age > 25 && a.Age < 65 },
				Outcome: domain.OutcomeAutoApprove,
				Reason:  "Standard approval criteria met",
			},
		},
		fallback: EligibilityRule{
			Name:    "default",
			Outcome: domain.OutcomeManualReview,
			Reason:  "Default manual review",
		},
	}
}

func (e *RuleEngine) Evaluate(name, zipCode string, age int, phoneNumber string) domain.Decision {
	applicant := Applicant{Name: name, ZipCode: zipCode, Age: age, PhoneNumber: phoneNumber}

	for _, rule := range e.rules {
		if rule.Matches(applicant) {
			return decisionFor(rule)
		}
	}
	return decisionFor(e.fallback)
}

func (e *RuleEngine) EvaluateRequest(request *domain.AccountRequest) domain.Decision {
	return e.Evaluate(request.Name, request.ZipCode, request.Age, request.PhoneNumber)
}

// Rules returns the rule names in evaluation order, fallback last.
func (e *RuleEngine) Rules() []string {
	names := make([]string, 0, len(e.rules)+1)
	for _, rule := range e.rules {
		names = append(names, rule.Name)
	}
	return append(names, e.fallback.Name)
}

func decisionFor(rule EligibilityRule) domain.Decision {
	return domain.Decision{Outcome: rule.Outcome, Reason: rule.Reason, Rule: rule.Name}
}

// hasZipPrefix matches on the leading five digits so ZIP+4 codes still hit.
func hasZipPrefix(zipCode string, codes []string) bool {
	for _, code := range codes {
		if strings.HasPrefix(zipCode, code) {
			return true
		}
	}
	return false
}

func hasInvalidPhonePattern(phone string) bool {
	return isRepeatedDigit(phone) || phone == "1234567890" || phone == "0000000000"
}

func isRepeatedDigit(phone string) bool {
	if len(phone) != 10 || phone[0] < '0' || phone[0] > '9' {
		return false
	}
	return strings.Count(phone, phone[:1]) == len(phone)
}

// lineTerminators never count as part of a name; a name spanning lines is
// treated like one without letters.
const lineTerminators = "\n\r\u0085\u2028\u2029"

func hasSuspiciousNamePattern(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "test") ||
		strings.Contains(lower, "fake") ||
		utf8.RuneCountInString(name) < 2 ||
		strings.ContainsAny(name, lineTerminators) ||
		!containsASCIILetter(name)
}

func containsASCIILetter(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return false
}
