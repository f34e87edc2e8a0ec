package models

import "gbp-verify/pkg/uploads"

// Form-name discriminators understood by the form backend.
const (
	LeadCaptureFormName = "verification-lead-capture"
	DetailsFormName     = "verification-details"
)

// LeadCapture is the phase 1 payload.
type LeadCapture struct {
	LeadID  string
	Contact ContactForm
}

// VerificationDetails is the phase 2 payload: step 2 and step 3 bundled under
// the lead id, plus the token proving phase 1 was accepted.
type VerificationDetails struct {
	LeadID    string
	LeadToken string
	Details   BusinessDetailsForm
	Evidence  EvidenceForm
	Documents []uploads.File
	Photos    []uploads.File
}
