package wizard

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"gbp-verify/pkg/models"
)

// phonePattern accepts ten North American digits with optional parentheses
// around the area code and '-', '.' or ' ' separators.
var phonePattern = regexp.MustCompile(`^\(?([0-9]{3})\)?[-. ]?([0-9]{3})[-. ]?([0-9]{4})$`)

var fieldMessages = map[Field]string{
	FieldBusinessName:               "Business name is required",
	FieldPhoneNumber:                "Please enter a valid phone number",
	FieldEmail:                      "Please enter a valid email address",
	FieldConsent:                    "You must agree to be contacted",
	FieldLegalBusinessName:          "Legal business name is required",
	FieldShowAddress:                "Please choose whether to show your address",
	FieldBusinessType:               "Please select your business type",
	FieldAttemptedVideoVerification: "Please answer this question",
	FieldPhoneUsedElsewhere:         "Please answer this question",
	FieldSubmittedReinstatement:     "Please answer this question",
	FieldAccuracyConfirmation:       "You must confirm accuracy",
	FieldEligibilityConfirmation:    "You must confirm eligibility understanding",
}

const (
	msgDocumentsRequired = "Business documents are required"
	msgSignageRequired   = "Signage photos are required for storefront and shared locations"
)

// FieldErrors maps a field to the inline message shown under it.
type FieldErrors map[Field]string

// Get returns the message for f, or "".
func (e FieldErrors) Get(f Field) string {
	return e[f]
}

// Has reports whether f has an error.
func (e FieldErrors) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

func (e FieldErrors) only(visible FieldSet) FieldErrors {
	out := FieldErrors{}
	for f, msg := range e {
		if visible.Has(f) {
			out[f] = msg
		}
	}
	return out
}

// Validator holds the validation schemas of the three input steps.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator with the wizard's custom rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "usphone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "accepted", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
	})
	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// ValidateContact checks the phase 1 form. The honeypot is not part of the
// schema; see IsBot.
func (v *Validator) ValidateContact(f models.ContactForm) FieldErrors {
	return v.check(f)
}

// IsBot reports whether the honeypot field was filled in.
func IsBot(f models.ContactForm) bool {
	return f.Website != ""
}

// ValidateDetails checks step 2. Errors on fields the current answers hide
// are dropped so a toggled-away field never blocks the step.
func (v *Validator) ValidateDetails(f models.BusinessDetailsForm) FieldErrors {
	return v.check(f).only(VisibleFields(InputsFor(StepDetails, f)))
}

// EvidenceCheck is everything step 3 validation looks at.
type EvidenceCheck struct {
	Form         models.EvidenceForm
	Documents    int
	Photos       int
	BusinessType models.BusinessType
	// RequireSignage enforces photos for storefront and shared locations.
	RequireSignage bool
}

// ValidateEvidence checks step 3.
func (v *Validator) ValidateEvidence(c EvidenceCheck) FieldErrors {
	errs := v.check(c.Form)
	if c.Documents == 0 {
		errs[FieldBusinessDocuments] = msgDocumentsRequired
	}
	if c.RequireSignage && SignageExpected(c.BusinessType) && c.Photos == 0 {
		errs[FieldSignagePhotos] = msgSignageRequired
	}
	return errs
}

func (v *Validator) check(s any) FieldErrors {
	errs := FieldErrors{}
	err := v.v.Struct(s)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		panic(fmt.Sprintf("validate %T: %v", s, err))
	}
	for _, fe := range verrs {
		field := Field(fe.Field())
		if errs.Has(field) {
			continue
		}
		errs[field] = message(field, fe)
	}
	return errs
}

func message(field Field, fe validator.FieldError) string {
	if fe.Tag() == "max" {
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	}
	if msg, ok := fieldMessages[field]; ok {
		return msg
	}
	return "This field is invalid"
}
