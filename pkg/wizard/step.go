package wizard

// Step is a wizard screen. Steps 1-3 collect input; step 4 is terminal.
type Step int

const (
	StepContact  Step = 1
	StepDetails  Step = 2
	StepEvidence Step = 3
	StepComplete Step = 4
)

// inputSteps is the number of steps shown in the progress bar.
const inputSteps = 3

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	return s >= StepContact && s <= StepComplete
}

// Title is the heading shown above the step.
func (s Step) Title() string {
	switch s {
	case StepContact:
		return "Let's get you verified"
	case StepDetails:
		return "Your business location"
	case StepEvidence:
		return "Proof for verification"
	case StepComplete:
		return "Thanks, your verification details were received"
	}
	return ""
}

// Subtitle is the line under the heading.
func (s Step) Subtitle() string {
	switch s {
	case StepContact:
		return "Let's start with your basic business information"
	case StepDetails:
		return "Tell us about your business location and verification history"
	case StepEvidence:
		return "Upload documents to complete your verification request"
	}
	return ""
}

// Section names the step in the progress header.
func (s Step) Section() string {
	switch s {
	case StepContact:
		return "Contact Information"
	case StepDetails:
		return "Business Details"
	case StepEvidence:
		return "Verification Documents"
	}
	return ""
}

// Progress returns "Step N of 3" or "Complete".
func (s Step) Progress() string {
	switch {
	case s <= StepContact:
		return "Step 1 of 3"
	case s == StepDetails:
		return "Step 2 of 3"
	case s == StepEvidence:
		return "Step 3 of 3"
	}
	return "Complete"
}

// Percent is the progress bar fill.
func (s Step) Percent() int {
	if s >= StepComplete {
		return 100
	}
	return int(s) * 100 / inputSteps
}
