package formbackend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"gbp-verify/pkg/models"
)

// Client defines the interface for posting wizard submissions to the form backend
type Client interface {
	SubmitLeadCapture(ctx context.Context, lead models.LeadCapture) error
	SubmitVerificationDetails(ctx context.Context, details models.VerificationDetails) error
}

// StatusError is a non-2xx answer from the form backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("form backend returned %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether retrying may help.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
}

// IsTransient classifies an error returned by Client.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return err != nil && !errors.Is(err, context.Canceled)
}

// Options tune retries.
type Options struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type clientImpl struct {
	endpoint   string
	httpClient *http.Client
	opts       Options
}

// NewClient creates a new form backend client posting to endpoint
func NewClient(endpoint string, httpClient *http.Client, opts Options) Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = 250 * time.Millisecond
	}
	if opts.MaxInterval == 0 {
		opts.MaxInterval = 2 * time.Second
	}
	return &clientImpl{
		endpoint:   endpoint,
		httpClient: httpClient,
		opts:       opts,
	}
}

func (c *clientImpl) SubmitLeadCapture(ctx context.Context, lead models.LeadCapture) error {
	body := EncodeLeadCapture(lead).Encode()
	if err := c.post(ctx, "application/x-www-form-urlencoded", []byte(body)); err != nil {
		return fmt.Errorf("error submitting lead capture: %w", err)
	}
	log.Printf("Submitted lead capture %s", lead.LeadID)
	return nil
}

func (c *clientImpl) SubmitVerificationDetails(ctx context.Context, details models.VerificationDetails) error {
	body, contentType, err := EncodeVerificationDetails(details)
	if err != nil {
		return fmt.Errorf("error encoding verification details: %w", err)
	}
	if err := c.post(ctx, contentType, body); err != nil {
		return fmt.Errorf("error submitting verification details: %w", err)
	}
	log.Printf("Submitted verification details %s (%d documents, %d photos)",
		details.LeadID, len(details.Documents), len(details.Photos))
	return nil
}

// post sends body, retrying transient failures with exponential backoff.
// Callers bound the total time through ctx.
func (c *clientImpl) post(ctx context.Context, contentType string, body []byte) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.MaxInterval = c.opts.MaxInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := c.postOnce(ctx, contentType, body)
		if err == nil {
			return struct{}{}, nil
		}
		if !IsTransient(err) || ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		log.Printf("Form backend attempt %d failed: %v", attempt, err)
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.opts.MaxAttempts))
	return err
}

func (c *clientImpl) postOnce(ctx context.Context, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("error creating request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/html,application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error posting form: %w", err)
	}
	defer resp.Body.Close()

	// Only success or failure matters; the body is kept for diagnostics.
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	return nil
}
