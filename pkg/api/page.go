package api

import (
	"gbp-verify/pkg/config"
	"gbp-verify/pkg/models"
	"gbp-verify/pkg/uploads"
	"gbp-verify/pkg/wizard"
)

// Page is the data every view renders from.
type Page struct {
	Title string
	State wizard.State

	Visible         wizard.FieldSet
	BusinessTypes   []models.BusinessType
	SignageExpected bool
	DocumentUpload  UploadView
	PhotoUpload     UploadView

	GtagID           string
	ConversionSendTo string
	// Conversion fires the ads conversion event on success views.
	Conversion       bool
	SupportPhone     string
}

// UploadView describes one file control on step 3.
type UploadView struct {
	Category   wizard.UploadCategory
	Label      string
	Help       string
	Options    uploads.Options
	Files      []uploads.File
	Rejections []string
	Error      string
}

func newPage(cfg *config.Config, title string) Page {
	return Page{
		Title:            title,
		BusinessTypes:    models.BusinessTypes,
		GtagID:           cfg.GtagID,
		ConversionSendTo: cfg.ConversionSendTo,
		Conversion:       true,
		SupportPhone:     cfg.SupportPhone,
	}
}

func wizardPage(cfg *config.Config, title string, s wizard.State) Page {
	p := newPage(cfg, title)
	p.State = s
	p.Visible = s.Visible()
	p.SignageExpected = wizard.SignageExpected(s.Details.BusinessType)

	p.DocumentUpload = UploadView{
		Category:   wizard.Documents,
		Label:      "Business documents *",
		Help:       "Upload LLC/DBA, business license, or a recent utility bill that matches your listing name.",
		Options:    s.DocumentOptions,
		Files:      s.Documents,
		Rejections: s.UploadErrors[wizard.Documents],
		Error:      s.Errors.Get(wizard.FieldBusinessDocuments),
	}
	p.PhotoUpload = UploadView{
		Category:   wizard.Photos,
		Label:      "Signage / vehicle photos (optional but encouraged)",
		Help:       "Upload photos of branded vehicle, tools, or storage area if available.",
		Options:    s.PhotoOptions,
		Files:      s.Photos,
		Rejections: s.UploadErrors[wizard.Photos],
		Error:      s.Errors.Get(wizard.FieldSignagePhotos),
	}
	if p.SignageExpected {
		p.PhotoUpload.Help = "Upload clear photos of your business signage."
		if s.RequireSignagePhotos {
			p.PhotoUpload.Label = "Signage photos *"
		} else {
			p.PhotoUpload.Label = "Signage photos (recommended for storefront/shared)"
		}
	}
	return p
}
