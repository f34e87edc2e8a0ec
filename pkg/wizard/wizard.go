// Package wizard implements the verification wizard: a four-step flow that
// captures a lead's contact details, then their business details and
// evidence, and hands both halves to a Submitter under one lead id.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gbp-verify/pkg/models"
	"gbp-verify/pkg/uploads"
)

var (
	// ErrWrongStep is returned for an action the current step does not allow.
	ErrWrongStep = errors.New("action not allowed at this step")
	// ErrRestartRequired tells the wizard that phase 1 must be submitted
	// again before phase 2 can be accepted.
	ErrRestartRequired = errors.New("lead capture must be resubmitted")
	// ErrUnknownCategory is returned for an upload category other than
	// documents or photos.
	ErrUnknownCategory = errors.New("unknown upload category")
)

const (
	msgSubmitFailed   = "We couldn't submit your information. Please check your connection and try again."
	msgRestartCapture = "We need to confirm your contact details again before sending your documents. Please resubmit this step."
)

// Outcome classifies what happened to a submitted step.
type Outcome int

const (
	// Accepted means the step passed and the wizard advanced.
	Accepted Outcome = iota
	// Invalid means validation failed; Result.Errors says where.
	Invalid
	// Failed means the backend call failed; the step stays put and can be retried.
	Failed
	// Pending means another submission for this wizard is still in flight.
	Pending
	// Discarded means the honeypot caught a bot; nothing was sent.
	Discarded
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Invalid:
		return "invalid"
	case Failed:
		return "failed"
	case Pending:
		return "pending"
	case Discarded:
		return "discarded"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is returned by every state-changing operation.
type Result struct {
	Outcome Outcome
	Step    Step
	Errors  FieldErrors
	Err     error
}

// Receipt is what the first submission hands back; the second carries it as
// proof that phase 1 was accepted.
type Receipt struct {
	LeadToken string
}

// Submitter sends the two halves of a lead to the form backend.
type Submitter interface {
	SubmitLead(ctx context.Context, lead models.LeadCapture) (Receipt, error)
	SubmitDetails(ctx context.Context, details models.VerificationDetails) error
}

// UploadCategory names one of the two file controls on step 3.
type UploadCategory string

const (
	Documents UploadCategory = UploadCategory(FieldBusinessDocuments)
	Photos    UploadCategory = UploadCategory(FieldSignagePhotos)
)

// ParseUploadCategory validates a category taken from a request.
func ParseUploadCategory(s string) (UploadCategory, error) {
	switch UploadCategory(s) {
	case Documents, Photos:
		return UploadCategory(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Options tune a Wizard.
type Options struct {
	Pacer                Pacer
	RequireSignagePhotos bool
	MaxUploadSize        int64
	MaxFilesPerCategory  int
	// UploadBudget is shared by every wizard's collectors.
	UploadBudget *uploads.Budget
}

// State is a point-in-time copy of a wizard for rendering.
type State struct {
	Step          Step
	LeadID        string
	Transitioning bool
	Submitting    bool
	Flagged       bool

	Contact  models.ContactForm
	Details  models.BusinessDetailsForm
	Evidence models.EvidenceForm

	Documents    []uploads.File
	Photos       []uploads.File
	UploadErrors map[UploadCategory][]string

	Errors  FieldErrors
	Failure string

	RequireSignagePhotos bool
	DocumentOptions      uploads.Options
	PhotoOptions         uploads.Options
}

// Visible returns the fields shown for the current step and answers.
func (s State) Visible() FieldSet {
	return VisibleFields(InputsFor(s.Step, s.Details))
}

// Wizard is one visitor's pass through the flow. It is safe for concurrent
// use; backend calls run outside the lock with Submitting set.
type Wizard struct {
	mu        sync.Mutex
	state     State
	receipt   Receipt
	documents *uploads.Collector
	photos    *uploads.Collector
	submitter Submitter
	validator *Validator
	opts      Options
}

// New creates a wizard at step 1.
func New(leadID string, submitter Submitter, validator *Validator, opts Options) *Wizard {
	if validator == nil {
		validator = NewValidator()
	}
	docOpts := uploads.Options{
		Accept:   ".pdf,.jpg,.jpeg,.png,.webp",
		Multiple: true,
		MaxSize:  opts.MaxUploadSize,
		MaxFiles: opts.MaxFilesPerCategory,
		Budget:   opts.UploadBudget,
	}
	photoOpts := uploads.Options{
		Accept:   "image/*",
		Multiple: true,
		MaxSize:  opts.MaxUploadSize,
		MaxFiles: opts.MaxFilesPerCategory,
		Budget:   opts.UploadBudget,
	}
	return &Wizard{
		state: State{
			Step:                 StepContact,
			LeadID:               leadID,
			Details:              models.DefaultBusinessDetails(),
			UploadErrors:         map[UploadCategory][]string{},
			Errors:               FieldErrors{},
			RequireSignagePhotos: opts.RequireSignagePhotos,
			DocumentOptions:      docOpts,
			PhotoOptions:         photoOpts,
		},
		documents: uploads.NewCollector(docOpts),
		photos:    uploads.NewCollector(photoOpts),
		submitter: submitter,
		validator: validator,
		opts:      opts,
	}
}

// LeadID returns the correlation id shared by both submissions.
func (w *Wizard) LeadID() string {
	return w.state.LeadID
}

// Snapshot copies the current state.
func (w *Wizard) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.state
	s.Documents = w.documents.Files()
	s.Photos = w.photos.Files()
	s.Errors = make(FieldErrors, len(w.state.Errors))
	for k, v := range w.state.Errors {
		s.Errors[k] = v
	}
	s.UploadErrors = make(map[UploadCategory][]string, len(w.state.UploadErrors))
	for k, v := range w.state.UploadErrors {
		s.UploadErrors[k] = append([]string(nil), v...)
	}
	return s
}

// guard checks the step and in-flight flag. Callers hold w.mu.
func (w *Wizard) guard(step Step) (Result, bool) {
	if w.state.Submitting {
		return Result{Outcome: Pending, Step: w.state.Step}, false
	}
	if w.state.Step != step {
		return Result{Outcome: Invalid, Step: w.state.Step, Err: ErrWrongStep}, false
	}
	return Result{}, true
}

// SubmitContact validates phase 1, sends the lead capture and advances to
// step 2 once the backend accepted it and the transition delay has passed.
func (w *Wizard) SubmitContact(ctx context.Context, form models.ContactForm) Result {
	form.Normalize()

	w.mu.Lock()
	if res, ok := w.guard(StepContact); !ok {
		w.mu.Unlock()
		return res
	}
	if IsBot(form) {
		w.state.Flagged = true
		w.mu.Unlock()
		return Result{Outcome: Discarded, Step: StepContact}
	}
	w.state.Contact = form
	w.state.Errors = w.validator.ValidateContact(form)
	if len(w.state.Errors) > 0 {
		res := Result{Outcome: Invalid, Step: StepContact, Errors: w.state.Errors}
		w.mu.Unlock()
		return res
	}
	w.state.Submitting = true
	w.state.Transitioning = true
	w.state.Failure = ""
	lead := models.LeadCapture{LeadID: w.state.LeadID, Contact: form}
	w.mu.Unlock()

	var (
		receipt Receipt
		sent    bool
	)
	err := w.opts.Pacer.Run(ctx, func(ctx context.Context) error {
		r, err := w.submitter.SubmitLead(ctx, lead)
		receipt, sent = r, err == nil
		return err
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Submitting = false
	w.state.Transitioning = false
	// An accepted lead advances even if the wait after it was cut short.
	if err != nil && !sent {
		w.state.Failure = msgSubmitFailed
		return Result{Outcome: Failed, Step: StepContact, Err: err}
	}
	w.receipt = receipt
	w.state.Step = StepDetails
	return Result{Outcome: Accepted, Step: StepDetails}
}

// SubmitDetails validates step 2 locally and advances to step 3. Values of
// fields hidden by the answers are cleared.
func (w *Wizard) SubmitDetails(form models.BusinessDetailsForm) Result {
	form.Normalize()

	w.mu.Lock()
	defer w.mu.Unlock()
	if res, ok := w.guard(StepDetails); !ok {
		return res
	}

	w.state.Details = form
	w.state.Errors = w.validator.ValidateDetails(form)
	if len(w.state.Errors) > 0 {
		return Result{Outcome: Invalid, Step: StepDetails, Errors: w.state.Errors}
	}
	pruneHidden(&w.state.Details)
	w.state.Step = StepEvidence
	return Result{Outcome: Accepted, Step: StepEvidence}
}

func (w *Wizard) collector(category UploadCategory) (*uploads.Collector, error) {
	switch category {
	case Documents:
		return w.documents, nil
	case Photos:
		return w.photos, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
}

// AddUploads adds files to one of the step 3 controls and returns one
// message per rejected file.
func (w *Wizard) AddUploads(category UploadCategory, selections []uploads.Selection) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if res, ok := w.guard(StepEvidence); !ok {
		return nil, guardError(res)
	}
	return w.addUploads(category, selections)
}

func (w *Wizard) addUploads(category UploadCategory, selections []uploads.Selection) ([]string, error) {
	c, err := w.collector(category)
	if err != nil {
		return nil, err
	}
	return w.add(category, c, selections), nil
}

func (w *Wizard) add(category UploadCategory, c *uploads.Collector, selections []uploads.Selection) []string {
	rejections := c.Add(selections...)
	w.state.UploadErrors[category] = rejections
	if c.Len() > 0 {
		delete(w.state.Errors, Field(category))
	}
	return rejections
}

// RemoveUpload drops a previously accepted file.
func (w *Wizard) RemoveUpload(category UploadCategory, index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if res, ok := w.guard(StepEvidence); !ok {
		return guardError(res)
	}
	c, err := w.collector(category)
	if err != nil {
		return err
	}
	if err := c.Remove(index); err != nil {
		return err
	}
	delete(w.state.UploadErrors, category)
	return nil
}

// SubmitEvidence adds any files sent along with the form, validates step 3
// and sends the combined phase 2 payload. It advances to the final step only
// if the backend accepted it.
func (w *Wizard) SubmitEvidence(ctx context.Context, form models.EvidenceForm, documents, photos []uploads.Selection) Result {
	form.Normalize()

	w.mu.Lock()
	if res, ok := w.guard(StepEvidence); !ok {
		w.mu.Unlock()
		return res
	}

	w.state.Evidence = form
	rejected := false
	if len(documents) > 0 {
		rejected = len(w.add(Documents, w.documents, documents)) > 0
	}
	if len(photos) > 0 {
		rejected = len(w.add(Photos, w.photos, photos)) > 0 || rejected
	}

	w.state.Errors = w.validator.ValidateEvidence(EvidenceCheck{
		Form:           form,
		Documents:      w.documents.Len(),
		Photos:         w.photos.Len(),
		BusinessType:   w.state.Details.BusinessType,
		RequireSignage: w.opts.RequireSignagePhotos,
	})
	if len(w.state.Errors) > 0 || rejected {
		res := Result{Outcome: Invalid, Step: StepEvidence, Errors: w.state.Errors}
		w.mu.Unlock()
		return res
	}

	w.state.Submitting = true
	w.state.Failure = ""
	payload := models.VerificationDetails{
		LeadID:    w.state.LeadID,
		LeadToken: w.receipt.LeadToken,
		Details:   w.state.Details,
		Evidence:  form,
		Documents: w.documents.Files(),
		Photos:    w.photos.Files(),
	}
	w.mu.Unlock()

	err := w.submitter.SubmitDetails(ctx, payload)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Submitting = false
	if errors.Is(err, ErrRestartRequired) {
		w.receipt = Receipt{}
		w.state.Step = StepContact
		w.state.Failure = msgRestartCapture
		return Result{Outcome: Failed, Step: StepContact, Err: err}
	}
	if err != nil {
		w.state.Failure = msgSubmitFailed
		return Result{Outcome: Failed, Step: StepEvidence, Err: err}
	}
	w.state.Step = StepComplete
	w.documents.Reset()
	w.photos.Reset()
	return Result{Outcome: Accepted, Step: StepComplete}
}

// DraftDetails stores step 2 input without validating it, so leaving the
// step keeps what was typed.
func (w *Wizard) DraftDetails(form models.BusinessDetailsForm) {
	form.Normalize()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Step == StepDetails && !w.state.Submitting {
		w.state.Details = form
	}
}

// DraftEvidence stores step 3 text input without validating it.
func (w *Wizard) DraftEvidence(form models.EvidenceForm) {
	form.Normalize()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Step == StepEvidence && !w.state.Submitting {
		w.state.Evidence = form
	}
}

// Back moves from step 2 to 1 or from step 3 to 2. Entered data is kept.
func (w *Wizard) Back() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Submitting {
		return Result{Outcome: Pending, Step: w.state.Step}
	}
	switch w.state.Step {
	case StepDetails, StepEvidence:
		w.state.Step--
		w.state.Errors = FieldErrors{}
		w.state.Failure = ""
		return Result{Outcome: Accepted, Step: w.state.Step}
	}
	return Result{Outcome: Invalid, Step: w.state.Step, Err: ErrWrongStep}
}

// Release drops every held file. The wizard stays usable.
func (w *Wizard) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.documents.Reset()
	w.photos.Reset()
}

// ErrSubmissionPending is returned by upload operations while a submission
// is in flight.
var ErrSubmissionPending = errors.New("a submission is already in progress")

func guardError(res Result) error {
	if res.Outcome == Pending {
		return ErrSubmissionPending
	}
	return res.Err
}
