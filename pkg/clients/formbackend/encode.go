package formbackend

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"gbp-verify/pkg/models"
	"gbp-verify/pkg/uploads"
)

// EncodeLeadCapture builds the URL-encoded phase 1 body.
func EncodeLeadCapture(lead models.LeadCapture) url.Values {
	v := url.Values{}
	v.Set("form-name", models.LeadCaptureFormName)
	v.Set("lead-id", lead.LeadID)
	v.Set("business-name", lead.Contact.BusinessName)
	v.Set("phone-number", lead.Contact.PhoneNumber)
	v.Set("email", lead.Contact.Email)
	v.Set("consent", strconv.FormatBool(lead.Contact.Consent))
	return v
}

// EncodeVerificationDetails builds the multipart phase 2 body and returns it
// with its content type. Optional fields are only written when non-empty.
func EncodeVerificationDetails(d models.VerificationDetails) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw := fieldWriter{w: w}

	fw.field("form-name", models.DetailsFormName)
	fw.field("lead-id", d.LeadID)
	fw.optional("lead-token", d.LeadToken)
	fw.field("legal-business-name", d.Details.LegalBusinessName)
	fw.field("show-address", d.Details.ShowAddress)
	fw.field("business-type", string(d.Details.BusinessType))
	fw.optional("street-address", d.Details.StreetAddress)
	fw.optional("unit", d.Details.Unit)
	fw.optional("city", d.Details.City)
	fw.optional("state", d.Details.State)
	fw.optional("zip-code", d.Details.ZipCode)
	fw.optional("service-area", d.Details.ServiceArea)
	fw.field("attempted-video-verification", d.Details.AttemptedVideoVerification)
	fw.field("phone-used-elsewhere", d.Details.PhoneUsedElsewhere)
	fw.field("submitted-reinstatement", d.Details.SubmittedReinstatement)
	fw.optional("reinstatement-details", d.Details.ReinstatementDetails)
	for i, f := range d.Documents {
		fw.file(fmt.Sprintf("business-document-%d", i), f)
	}
	for i, f := range d.Photos {
		fw.file(fmt.Sprintf("signage-photo-%d", i), f)
	}
	fw.optional("notes", d.Evidence.Notes)
	fw.field("accuracy-confirmation", strconv.FormatBool(d.Evidence.AccuracyConfirmation))
	fw.field("eligibility-confirmation", strconv.FormatBool(d.Evidence.EligibilityConfirmation))

	if fw.err != nil {
		return nil, "", fw.err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// fieldWriter keeps the first error so the encoder reads top to bottom.
type fieldWriter struct {
	w   *multipart.Writer
	err error
}

func (fw *fieldWriter) field(name, value string) {
	if fw.err != nil {
		return
	}
	if err := fw.w.WriteField(name, value); err != nil {
		fw.err = fmt.Errorf("write field %s: %w", name, err)
	}
}

func (fw *fieldWriter) optional(name, value string) {
	if value != "" {
		fw.field(name, value)
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// headerSafe drops control characters, which could otherwise split the part
// header.
func headerSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func (fw *fieldWriter) file(name string, f uploads.File) {
	if fw.err != nil {
		return
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(headerSafe(name)), quoteEscaper.Replace(headerSafe(f.Name))))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := fw.w.CreatePart(h)
	if err != nil {
		fw.err = fmt.Errorf("create part %s: %w", name, err)
		return
	}
	if _, err := part.Write(f.Data); err != nil {
		fw.err = fmt.Errorf("write part %s: %w", name, err)
	}
}
