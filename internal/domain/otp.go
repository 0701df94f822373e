package domain

import "time"

// OTPTTL is how long a one-time code stays valid after it is issued
const OTPTTL = 300 * time.Second

// OTPLength is the number of digits in a one-time code
const OTPLength = 6

// OTPMaxAttempts is how many guesses one code allows before it is discarded
const OTPMaxAttempts = 5

// OTPIssueLimit caps codes issued per address within OTPIssueWindow
const OTPIssueLimit = 5

// OTPIssueWindow is the period OTPIssueLimit applies to
const OTPIssueWindow = time.Hour

// OneTimeCode is a short-lived password-reset credential keyed by contact
type OneTimeCode struct {
	Contact   string    `json:"contact"`    // Lowercased email the code was issued for
	Code      string    `json:"code"`       // Numeric code
	CreatedAt time.Time `json:"created_at"` // Issue time
	ExpiresAt time.Time `json:"expires_at"` // CreatedAt + OTPTTL
}

// Expired reports whether the code is no longer valid at now
func (c OneTimeCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
