package wizard

import (
	"sort"

	"gbp-verify/pkg/models"
)

// Field identifies an input by its form name.
type Field string

const (
	FieldBusinessName Field = "businessName"
	FieldPhoneNumber  Field = "phoneNumber"
	FieldEmail        Field = "email"
	FieldConsent      Field = "consent"

	FieldLegalBusinessName          Field = "legalBusinessName"
	FieldShowAddress                Field = "showAddress"
	FieldBusinessType               Field = "businessType"
	FieldStreetAddress              Field = "streetAddress"
	FieldUnit                       Field = "unit"
	FieldCity                       Field = "city"
	FieldState                      Field = "state"
	FieldZipCode                    Field = "zipCode"
	FieldServiceArea                Field = "serviceArea"
	FieldAttemptedVideoVerification Field = "attemptedVideoVerification"
	FieldPhoneUsedElsewhere         Field = "phoneUsedElsewhere"
	FieldSubmittedReinstatement     Field = "submittedReinstatement"
	FieldReinstatementDetails       Field = "reinstatementDetails"

	FieldBusinessDocuments       Field = "businessDocuments"
	FieldSignagePhotos           Field = "signagePhotos"
	FieldNotes                   Field = "notes"
	FieldAccuracyConfirmation    Field = "accuracyConfirmation"
	FieldEligibilityConfirmation Field = "eligibilityConfirmation"
)

// AddressFields make up the physical address block.
var AddressFields = []Field{FieldStreetAddress, FieldUnit, FieldCity, FieldState, FieldZipCode}

// Inputs are the values the visible field set depends on.
type Inputs struct {
	Step                   Step
	BusinessType           models.BusinessType
	ShowAddress            string
	SubmittedReinstatement string
}

// InputsFor derives visibility inputs from a step 2 form.
func InputsFor(step Step, d models.BusinessDetailsForm) Inputs {
	return Inputs{
		Step:                   step,
		BusinessType:           d.BusinessType,
		ShowAddress:            d.ShowAddress,
		SubmittedReinstatement: d.SubmittedReinstatement,
	}
}

// FieldSet is a set of visible fields.
type FieldSet map[Field]bool

// Has reports whether f is visible.
func (s FieldSet) Has(f Field) bool {
	return s[f]
}

// Sorted returns the fields in stable order.
func (s FieldSet) Sorted() []Field {
	out := make([]Field, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s FieldSet) add(fields ...Field) {
	for _, f := range fields {
		s[f] = true
	}
}

// VisibleFields maps the wizard's step and conditional answers to the inputs a
// visitor can see. Hidden fields are neither validated nor submitted.
func VisibleFields(in Inputs) FieldSet {
	set := FieldSet{}
	switch in.Step {
	case StepContact:
		set.add(FieldBusinessName, FieldPhoneNumber, FieldEmail, FieldConsent)
	case StepDetails:
		set.add(FieldLegalBusinessName, FieldShowAddress, FieldBusinessType,
			FieldAttemptedVideoVerification, FieldPhoneUsedElsewhere, FieldSubmittedReinstatement)
		if AddressVisible(in.BusinessType, in.ShowAddress) {
			set.add(AddressFields...)
		}
		if in.BusinessType == models.BusinessServiceArea {
			set.add(FieldServiceArea)
		}
		if in.SubmittedReinstatement == models.Yes {
			set.add(FieldReinstatementDetails)
		}
	case StepEvidence:
		set.add(FieldBusinessDocuments, FieldSignagePhotos, FieldNotes,
			FieldAccuracyConfirmation, FieldEligibilityConfirmation)
	}
	return set
}

// AddressVisible reports whether the physical address block is shown.
func AddressVisible(bt models.BusinessType, showAddress string) bool {
	switch bt {
	case models.BusinessStorefront, models.BusinessShared, models.BusinessHome:
		return true
	}
	return showAddress == models.Yes
}

// SignageExpected reports whether the copy asks for signage photos as
// required rather than encouraged.
func SignageExpected(bt models.BusinessType) bool {
	return bt == models.BusinessStorefront || bt == models.BusinessShared
}

// pruneHidden clears values of step 2 fields that are not visible.
func pruneHidden(d *models.BusinessDetailsForm) {
	visible := VisibleFields(InputsFor(StepDetails, *d))
	if !visible.Has(FieldStreetAddress) {
		d.StreetAddress, d.Unit, d.City, d.State, d.ZipCode = "", "", "", "", ""
	}
	if !visible.Has(FieldServiceArea) {
		d.ServiceArea = ""
	}
	if !visible.Has(FieldReinstatementDetails) {
		d.ReinstatementDetails = ""
	}
}
