package models

import "strings"

// BusinessType is the wire code the form backend expects for a location type.
type BusinessType string

const (
	BusinessStorefront  BusinessType = "storefront"
	BusinessServiceArea BusinessType = "sab"
	BusinessShared      BusinessType = "shared"
	BusinessHome        BusinessType = "home"
)

// BusinessTypes lists the selectable types in display order.
var BusinessTypes = []BusinessType{BusinessStorefront, BusinessServiceArea, BusinessShared, BusinessHome}

var businessTypeAliases = map[string]BusinessType{
	"storefront":            BusinessStorefront,
	"sab":                   BusinessServiceArea,
	"service-area-business": BusinessServiceArea,
	"shared":                BusinessShared,
	"shared-space":          BusinessShared,
	"home":                  BusinessHome,
	"home-office":           BusinessHome,
}

// ParseBusinessType maps a wire code or its long alias to a BusinessType.
// Unknown input is returned as-is so validation can report it.
func ParseBusinessType(s string) BusinessType {
	if bt, ok := businessTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return bt
	}
	return BusinessType(s)
}

// Label is the option text shown in the business type select.
func (b BusinessType) Label() string {
	switch b {
	case BusinessStorefront:
		return "Storefront - Physical location customers visit"
	case BusinessServiceArea:
		return "Service-Area Business - Go to customers"
	case BusinessShared:
		return "Shared / Co-working Space"
	case BusinessHome:
		return "Home Office"
	}
	return string(b)
}

const (
	Yes = "yes"
	No  = "no"
)

// ContactForm is the phase 1 lead capture form.
type ContactForm struct {
	BusinessName string `form:"businessName" validate:"required,max=200"`
	PhoneNumber  string `form:"phoneNumber" validate:"usphone"`
	Email        string `form:"email" validate:"required,email,max=254"`
	Consent      bool   `form:"consent" validate:"accepted"`
	// Website is the honeypot; real visitors never see it.
	Website string `form:"website" validate:"-"`
}

// Normalize trims whitespace from free-text fields.
func (f *ContactForm) Normalize() {
	f.BusinessName = strings.TrimSpace(f.BusinessName)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)
	f.Email = strings.TrimSpace(f.Email)
}

// BusinessDetailsForm is phase 2, step 2.
type BusinessDetailsForm struct {
	LegalBusinessName string       `form:"legalBusinessName" validate:"required,max=200"`
	ShowAddress       string       `form:"showAddress" validate:"required,oneof=yes no"`
	BusinessType      BusinessType `form:"businessType" validate:"required,oneof=storefront sab shared home"`

	StreetAddress string `form:"streetAddress" validate:"max=200"`
	Unit          string `form:"unit" validate:"max=50"`
	City          string `form:"city" validate:"max=100"`
	State         string `form:"state" validate:"max=50"`
	ZipCode       string `form:"zipCode" validate:"omitempty,max=10"`
	ServiceArea   string `form:"serviceArea" validate:"max=1000"`

	AttemptedVideoVerification string `form:"attemptedVideoVerification" validate:"required,oneof=yes no"`
	PhoneUsedElsewhere         string `form:"phoneUsedElsewhere" validate:"required,oneof=yes no"`
	SubmittedReinstatement     string `form:"submittedReinstatement" validate:"required,oneof=yes no"`
	ReinstatementDetails       string `form:"reinstatementDetails" validate:"max=2000"`
}

// DefaultBusinessDetails returns the pre-selected answers of a fresh step 2 form.
func DefaultBusinessDetails() BusinessDetailsForm {
	return BusinessDetailsForm{
		ShowAddress:                Yes,
		BusinessType:               BusinessStorefront,
		AttemptedVideoVerification: No,
		PhoneUsedElsewhere:         No,
		SubmittedReinstatement:     No,
	}
}

// Normalize trims free-text fields and canonicalizes the business type.
func (f *BusinessDetailsForm) Normalize() {
	f.LegalBusinessName = strings.TrimSpace(f.LegalBusinessName)
	f.BusinessType = ParseBusinessType(string(f.BusinessType))
	f.ShowAddress = strings.ToLower(strings.TrimSpace(f.ShowAddress))
	f.AttemptedVideoVerification = strings.ToLower(strings.TrimSpace(f.AttemptedVideoVerification))
	f.PhoneUsedElsewhere = strings.ToLower(strings.TrimSpace(f.PhoneUsedElsewhere))
	f.SubmittedReinstatement = strings.ToLower(strings.TrimSpace(f.SubmittedReinstatement))
	f.StreetAddress = strings.TrimSpace(f.StreetAddress)
	f.Unit = strings.TrimSpace(f.Unit)
	f.City = strings.TrimSpace(f.City)
	f.State = strings.TrimSpace(f.State)
	f.ZipCode = strings.TrimSpace(f.ZipCode)
	f.ServiceArea = strings.TrimSpace(f.ServiceArea)
	f.ReinstatementDetails = strings.TrimSpace(f.ReinstatementDetails)
}

// EvidenceForm holds the non-file fields of phase 2, step 3.
// Files travel separately through the upload collectors.
type EvidenceForm struct {
	Notes                   string `form:"notes" validate:"max=5000"`
	AccuracyConfirmation    bool   `form:"accuracyConfirmation" validate:"accepted"`
	EligibilityConfirmation bool   `form:"eligibilityConfirmation" validate:"accepted"`
}

// Normalize trims the notes field.
func (f *EvidenceForm) Normalize() {
	f.Notes = strings.TrimSpace(f.Notes)
}
