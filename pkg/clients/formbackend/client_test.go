package formbackend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gbp-verify/pkg/models"
	"gbp-verify/pkg/uploads"
)

func testLead() models.LeadCapture {
	return models.LeadCapture{
		LeadID: "lead_1700000000000_abcdefghi",
		Contact: models.ContactForm{
			BusinessName: "Acme Co",
			PhoneNumber:  "(555) 123-4567",
			Email:        "a@acme.com",
			Consent:      true,
		},
	}
}

func testDetails() models.VerificationDetails {
	return models.VerificationDetails{
		LeadID:    "lead_1700000000000_abcdefghi",
		LeadToken: "signed-token",
		Details: models.BusinessDetailsForm{
			LegalBusinessName:          "Acme Company LLC",
			ShowAddress:                models.Yes,
			BusinessType:               models.BusinessStorefront,
			StreetAddress:              "1 Main St",
			City:                       "Springfield",
			State:                      "IL",
			ZipCode:                    "62701",
			AttemptedVideoVerification: models.No,
			PhoneUsedElsewhere:         models.No,
			SubmittedReinstatement:     models.No,
		},
		Evidence: models.EvidenceForm{
			AccuracyConfirmation:    true,
			EligibilityConfirmation: true,
		},
		Documents: []uploads.File{{Name: "license.pdf", Size: 9, ContentType: "application/pdf", Data: []byte("%PDF-1.4\n")}},
		Photos:    []uploads.File{{Name: "sign.png", Size: 3, ContentType: "image/png", Data: []byte("png")}},
	}
}

func fastOptions(attempts uint) Options {
	return Options{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestSubmitLeadCapture(t *testing.T) {
	var got http.Header
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), fastOptions(1))
	err := c.SubmitLeadCapture(context.Background(), testLead())

	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", got.Get("Content-Type"))
	assert.Equal(t, []string{models.LeadCaptureFormName}, form["form-name"])
	assert.Equal(t, []string{"lead_1700000000000_abcdefghi"}, form["lead-id"])
	assert.Equal(t, []string{"Acme Co"}, form["business-name"])
	assert.Equal(t, []string{"(555) 123-4567"}, form["phone-number"])
	assert.Equal(t, []string{"a@acme.com"}, form["email"])
	assert.Equal(t, []string{"true"}, form["consent"])
}

func TestSubmitVerificationDetails(t *testing.T) {
	var values map[string][]string
	files := map[string]string{}
	types := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		values = r.MultipartForm.Value
		for name, headers := range r.MultipartForm.File {
			f, err := headers[0].Open()
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			f.Close()
			files[name] = headers[0].Filename + ":" + string(data)
			types[name] = headers[0].Header.Get("Content-Type")
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), fastOptions(1))
	err := c.SubmitVerificationDetails(context.Background(), testDetails())

	require.NoError(t, err)
	assert.Equal(t, []string{models.DetailsFormName}, values["form-name"])
	assert.Equal(t, []string{"signed-token"}, values["lead-token"])
	assert.Equal(t, []string{"storefront"}, values["business-type"])
	assert.Equal(t, []string{"1 Main St"}, values["street-address"])
	assert.Equal(t, []string{"true"}, values["eligibility-confirmation"])
	assert.NotContains(t, values, "unit")
	assert.NotContains(t, values, "service-area")
	assert.NotContains(t, values, "reinstatement-details")
	assert.NotContains(t, values, "notes")
	assert.Equal(t, "license.pdf:%PDF-1.4\n", files["business-document-0"])
	assert.Equal(t, "sign.png:png", files["signage-photo-0"])
	assert.Equal(t, "application/pdf", types["business-document-0"])
	assert.Equal(t, "image/png", types["signage-photo-0"])
}

func TestEncodeVerificationDetailsFieldOrder(t *testing.T) {
	body, contentType, err := EncodeVerificationDetails(testDetails())
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	r := multipart.NewReader(bytes.NewReader(body), params["boundary"])

	var names []string
	for {
		p, err := r.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, p.FormName())
	}

	assert.Equal(t, []string{
		"form-name", "lead-id", "lead-token", "legal-business-name", "show-address", "business-type",
		"street-address", "city", "state", "zip-code",
		"attempted-video-verification", "phone-used-elsewhere", "submitted-reinstatement",
		"business-document-0", "signage-photo-0",
		"accuracy-confirmation", "eligibility-confirmation",
	}, names)
}

func TestEncodeStripsControlCharactersFromFilenames(t *testing.T) {
	d := testDetails()
	d.Documents[0].Name = "license\r\nX-Injected: 1\x00.pdf"

	body, contentType, err := EncodeVerificationDetails(d)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "\r\nX-Injected")

	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	r := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		p, err := r.NextPart()
		if errors.Is(err, io.EOF) {
			t.Fatal("document part not found")
		}
		require.NoError(t, err)
		if p.FormName() == "business-document-0" {
			assert.Equal(t, "licenseX-Injected: 1.pdf", p.FileName())
			assert.Empty(t, p.Header.Get("X-Injected"))
			return
		}
	}
}

func TestRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), fastOptions(3))
	err := c.SubmitLeadCapture(context.Background(), testLead())

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), fastOptions(2))
	err := c.SubmitLeadCapture(context.Background(), testLead())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad form", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), fastOptions(3))
	err := c.SubmitVerificationDetails(context.Background(), testDetails())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "bad form")
	assert.False(t, IsTransient(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, srv.Client(), fastOptions(3))
	err := c.SubmitLeadCapture(ctx, testLead())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&StatusError{StatusCode: 500}))
	assert.True(t, IsTransient(&StatusError{StatusCode: 429}))
	assert.False(t, IsTransient(&StatusError{StatusCode: 404}))
	assert.True(t, IsTransient(errors.New("connection reset")))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(nil))
}
