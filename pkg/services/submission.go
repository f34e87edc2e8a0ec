package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gbp-verify/pkg/clients/formbackend"
	"gbp-verify/pkg/config"
	"gbp-verify/pkg/models"
	"gbp-verify/pkg/utils"
	"gbp-verify/pkg/wizard"
)

type submissionServiceImpl struct {
	formClient formbackend.Client
	tokens     *TokenIssuer
	timeout    time.Duration
}

// NewSubmissionService creates the wizard's submitter: it posts both phases
// to the form backend and ties them together with a lead token.
func NewSubmissionService(
	formClient formbackend.Client,
	tokens *TokenIssuer,
	config *config.Config,
) wizard.Submitter {
	return &submissionServiceImpl{
		formClient: formClient,
		tokens:     tokens,
		timeout:    config.SubmitTimeout,
	}
}

// SubmitLead posts the lead capture and returns a receipt for phase 2.
func (s *submissionServiceImpl) SubmitLead(ctx context.Context, lead models.LeadCapture) (wizard.Receipt, error) {
	phoneHash := utils.HashPhone(lead.Contact.PhoneNumber)
	log.Printf("Processing lead capture %s (%s)", lead.LeadID, phoneHash)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.formClient.SubmitLeadCapture(ctx, lead); err != nil {
		log.Printf("Error submitting lead capture %s (%s): %v", lead.LeadID, phoneHash, err)
		return wizard.Receipt{}, err
	}

	token, err := s.tokens.Issue(lead.LeadID)
	if err != nil {
		log.Printf("Error issuing lead token for %s: %v", lead.LeadID, err)
		return wizard.Receipt{}, fmt.Errorf("error issuing receipt: %w", err)
	}
	return wizard.Receipt{LeadToken: token}, nil
}

// SubmitDetails checks the receipt from phase 1, then posts the combined
// business details and evidence.
func (s *submissionServiceImpl) SubmitDetails(ctx context.Context, details models.VerificationDetails) error {
	if err := s.tokens.Verify(details.LeadToken, details.LeadID); err != nil {
		log.Printf("Refusing verification details for %s: %v", details.LeadID, err)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.formClient.SubmitVerificationDetails(ctx, details); err != nil {
		log.Printf("Error submitting verification details %s: %v", details.LeadID, err)
		return err
	}
	log.Printf("Completed verification request %s (%s)", details.LeadID, details.Details.BusinessType)
	return nil
}
