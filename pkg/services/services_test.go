package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gbp-verify/pkg/config"
	"gbp-verify/pkg/models"
	"gbp-verify/pkg/uploads"
	"gbp-verify/pkg/wizard"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeFormClient struct {
	leads    []models.LeadCapture
	details  []models.VerificationDetails
	leadErr  error
	deadline bool
}

func (f *fakeFormClient) SubmitLeadCapture(ctx context.Context, lead models.LeadCapture) error {
	_, f.deadline = ctx.Deadline()
	if f.leadErr != nil {
		return f.leadErr
	}
	f.leads = append(f.leads, lead)
	return nil
}

func (f *fakeFormClient) SubmitVerificationDetails(ctx context.Context, details models.VerificationDetails) error {
	f.details = append(f.details, details)
	return nil
}

func newTestService(client *fakeFormClient) wizard.Submitter {
	return NewSubmissionService(client, NewTokenIssuer(testSecret, time.Hour), &config.Config{SubmitTimeout: time.Second})
}

func TestLeadTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	token, err := issuer.Issue("lead_1")
	require.NoError(t, err)

	assert.NoError(t, issuer.Verify(token, "lead_1"))
}

func TestLeadTokenRefusals(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	token, err := issuer.Issue("lead_1")
	require.NoError(t, err)

	other := NewTokenIssuer("ffffffffffffffffffffffffffffffff", time.Hour)
	forged, err := other.Issue("lead_1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		leadID string
	}{
		{"missing", "", "lead_1"},
		{"other lead", token, "lead_2"},
		{"wrong key", forged, "lead_1"},
		{"garbage", "not.a.token", "lead_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := issuer.Verify(tt.token, tt.leadID)
			assert.ErrorIs(t, err, ErrInvalidReceipt)
			assert.ErrorIs(t, err, wizard.ErrRestartRequired)
		})
	}
}

func TestLeadTokenExpires(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	token, err := issuer.Issue("lead_1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	err = issuer.Verify(token, "lead_1")
	assert.ErrorIs(t, err, ErrInvalidReceipt)
	assert.ErrorContains(t, err, "expired")
}

func TestSubmitLeadIssuesReceipt(t *testing.T) {
	client := &fakeFormClient{}
	svc := newTestService(client)

	receipt, err := svc.SubmitLead(context.Background(), models.LeadCapture{LeadID: "lead_1"})

	require.NoError(t, err)
	assert.NotEmpty(t, receipt.LeadToken)
	assert.Len(t, client.leads, 1)
	assert.True(t, client.deadline)
}

func TestSubmitLeadFailureHasNoReceipt(t *testing.T) {
	boom := errors.New("backend down")
	svc := newTestService(&fakeFormClient{leadErr: boom})

	receipt, err := svc.SubmitLead(context.Background(), models.LeadCapture{LeadID: "lead_1"})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, receipt.LeadToken)
}

func TestSubmitDetailsRequiresReceipt(t *testing.T) {
	client := &fakeFormClient{}
	svc := newTestService(client)

	receipt, err := svc.SubmitLead(context.Background(), models.LeadCapture{LeadID: "lead_1"})
	require.NoError(t, err)

	err = svc.SubmitDetails(context.Background(), models.VerificationDetails{LeadID: "lead_1", LeadToken: "forged"})
	assert.ErrorIs(t, err, wizard.ErrRestartRequired)
	assert.Empty(t, client.details)

	err = svc.SubmitDetails(context.Background(), models.VerificationDetails{LeadID: "lead_1", LeadToken: receipt.LeadToken})
	require.NoError(t, err)
	assert.Len(t, client.details, 1)
}

func newTestStore(ttl time.Duration) *SessionStore {
	n := 0
	return NewSessionStore(func() (*wizard.Wizard, error) {
		n++
		return wizard.New("lead_"+string(rune('a'+n)), nil, nil, wizard.Options{}), nil
	}, ttl)
}

func TestSessionStoreCreateAndGet(t *testing.T) {
	store := newTestStore(time.Hour)

	s, err := store.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	got, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s.Wizard, got.Wizard)

	_, err = store.Get("unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreExpiry(t *testing.T) {
	store := newTestStore(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	s, err := store.Create()
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = store.Get(s.ID)
	require.NoError(t, err, "access slides the expiry")

	now = now.Add(45 * time.Second)
	_, err = store.Get(s.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStoreSweep(t *testing.T) {
	store := newTestStore(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, err := store.Create()
	require.NoError(t, err)
	now = now.Add(50 * time.Second)
	fresh, err := store.Create()
	require.NoError(t, err)

	now = now.Add(20 * time.Second)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
	_, err = store.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestSessionStoreDelete(t *testing.T) {
	store := newTestStore(time.Hour)
	s, err := store.Create()
	require.NoError(t, err)

	store.Delete(s.ID)

	_, err = store.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreFactoryError(t *testing.T) {
	boom := errors.New("no entropy")
	store := NewSessionStore(func() (*wizard.Wizard, error) { return nil, boom }, time.Hour)

	_, err := store.Create()
	assert.ErrorIs(t, err, boom)
}

func TestSessionStoreRunStops(t *testing.T) {
	store := newTestStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Run(ctx, time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSessionStoreReleasesUploads(t *testing.T) {
	pdf := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")
	budget := uploads.NewBudget(1 << 20)
	store := NewSessionStore(func() (*wizard.Wizard, error) {
		return wizard.New("lead_1", newTestService(&fakeFormClient{}), nil, wizard.Options{UploadBudget: budget}), nil
	}, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	atEvidence := func() *Session {
		s, err := store.Create()
		require.NoError(t, err)
		w := s.Wizard
		require.Equal(t, wizard.Accepted, w.SubmitContact(context.Background(), models.ContactForm{
			BusinessName: "Acme Co", PhoneNumber: "5551234567", Email: "a@acme.com", Consent: true,
		}).Outcome)
		d := models.DefaultBusinessDetails()
		d.LegalBusinessName = "Acme Company LLC"
		d.StreetAddress, d.City, d.State, d.ZipCode = "1 Main St", "Springfield", "IL", "62701"
		require.Equal(t, wizard.Accepted, w.SubmitDetails(d).Outcome)
		rejections, err := w.AddUploads(wizard.Documents, []uploads.Selection{{
			Name: "license.pdf",
			Size: int64(len(pdf)),
			Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(pdf)), nil },
		}})
		require.NoError(t, err)
		require.Empty(t, rejections)
		return s
	}

	deleted := atEvidence()
	assert.Equal(t, int64(len(pdf)), budget.Used())
	store.Delete(deleted.ID)
	assert.Equal(t, int64(0), budget.Used())

	atEvidence()
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, int64(0), budget.Used())
}
