package artifact

// Status is the tri-state outcome of a verification check.
type Status int

const (
	// StatusInconclusive means the check could not run because an input
	// it needs was missing. Never treated as a pass.
	StatusInconclusive Status = iota
	// StatusPass means the check ran and succeeded.
	StatusPass
	// StatusFail means the check ran and found the artifact invalid.
	StatusFail
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "fail"
	case StatusInconclusive:
		return "inconclusive"
	default:
		return "unknown"
	}
}

// VerificationResult records the outcome of one check against one
// artifact file.
type VerificationResult struct {
	Check  string // which check produced this result
	Status Status
	Reason string // populated for fail and inconclusive outcomes
}

// Pass returns a passing result for the named check.
func Pass(check string) *VerificationResult {
	return &VerificationResult{Check: check, Status: StatusPass}
}

// Fail returns a failing result for the named check.
func Fail(check, reason string) *VerificationResult {
	return &VerificationResult{Check: check, Status: StatusFail, Reason: reason}
}

// Inconclusive returns an inconclusive result for the named check.
func Inconclusive(check, reason string) *VerificationResult {
	return &VerificationResult{Check: check, Status: StatusInconclusive, Reason: reason}
}
