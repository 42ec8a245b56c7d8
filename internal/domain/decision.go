package domain

type Outcome string

const (
	OutcomeAutoApprove  Outcome = "AUTO_APPROVE"
	OutcomeAutoReject   Outcome = "AUTO_REJECT"
	OutcomeManualReview Outcome = "MANUAL_REVIEW"
)

// Status maps a rule outcome to the terminal account status it produces.
func (o Outcome) Status() AccountStatus {
	switch o {
	case OutcomeAutoApprove:
		return StatusAutoApproved
	case OutcomeAutoReject:
		return StatusAutoRejected
	default:
		return StatusManualReview
	}
}

type Decision struct {
	Outcome Outcome
	Reason  string
	Rule    string
}
