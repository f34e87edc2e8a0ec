package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gbp-verify/pkg/config"
	"gbp-verify/pkg/models"
	"gbp-verify/pkg/services"
	"gbp-verify/pkg/uploads"
	"gbp-verify/pkg/wizard"
)

// Handlers contains all HTTP handlers for the site
type Handlers struct {
	sessions *services.SessionStore
	cfg      *config.Config
}

// NewHandlers creates a new Handlers instance
func NewHandlers(sessions *services.SessionStore, cfg *config.Config) *Handlers {
	return &Handlers{
		sessions: sessions,
		cfg:      cfg,
	}
}

// Register wires every route onto r. submit guards the routes that reach the
// form backend or accept files.
func (h *Handlers) Register(r gin.IRouter, submit ...gin.HandlerFunc) {
	r.GET("/", h.Landing)
	r.GET("/health", h.HealthCheck)
	r.GET("/thank-you", h.ThankYou)
	r.GET("/received", h.Received)

	v := r.Group("/verify")
	v.GET("", h.ShowWizard)
	v.GET("/visibility", h.Visibility)
	v.POST("/details", h.SubmitDetails)
	v.POST("/back", h.Back)
	v.POST("/reset", h.Reset)

	sv := v.Group("", submit...)
	sv.POST("/contact", h.SubmitContact)
	sv.POST("/evidence", h.SubmitEvidence)
	sv.POST("/uploads/:category", h.AddUploads)
	sv.POST("/uploads/:category/:index/delete", h.RemoveUpload)
}

// HealthCheck handler for monitoring
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Landing renders the marketing page with the wizard embedded.
func (h *Handlers) Landing(c *gin.Context) {
	session, err := h.session(c)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.HTML(http.StatusOK, "landing.html", wizardPage(h.cfg, "", session.Wizard.Snapshot()))
}

// ShowWizard renders the wizard at its current step.
func (h *Handlers) ShowWizard(c *gin.Context) {
	session, err := h.session(c)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	h.render(c, http.StatusOK, session.Wizard)
}

// ThankYou is the standalone confirmation page; it fires the conversion event.
func (h *Handlers) ThankYou(c *gin.Context) {
	c.HTML(http.StatusOK, "thank-you.html", newPage(h.cfg, "Thank you"))
}

// Received looks like the thank-you page but records no conversion. Discarded
// submissions land here.
func (h *Handlers) Received(c *gin.Context) {
	page := newPage(h.cfg, "Thank you")
	page.Conversion = false
	c.HTML(http.StatusOK, "thank-you.html", page)
}

// Visibility reports which step 2 fields a set of answers shows.
func (h *Handlers) Visibility(c *gin.Context) {
	step := wizard.StepDetails
	if raw := c.Query("step"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !wizard.Step(n).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid step"})
			return
		}
		step = wizard.Step(n)
	}
	bt := models.ParseBusinessType(c.Query("businessType"))
	set := wizard.VisibleFields(wizard.Inputs{
		Step:                   step,
		BusinessType:           bt,
		ShowAddress:            c.Query("showAddress"),
		SubmittedReinstatement: c.Query("submittedReinstatement"),
	})
	c.JSON(http.StatusOK, gin.H{
		"visible":         set.Sorted(),
		"signageExpected": wizard.SignageExpected(bt),
	})
}

// SubmitContact handles phase 1.
func (h *Handlers) SubmitContact(c *gin.Context) {
	session, ok := h.postSession(c)
	if !ok {
		return
	}
	var form models.ContactForm
	if !h.bind(c, &form) {
		return
	}
	res := session.Wizard.SubmitContact(c.Request.Context(), form)
	h.respond(c, session, res)
}

// SubmitDetails handles step 2.
func (h *Handlers) SubmitDetails(c *gin.Context) {
	session, ok := h.postSession(c)
	if !ok {
		return
	}
	var form models.BusinessDetailsForm
	if !h.bind(c, &form) {
		return
	}
	h.respond(c, session, session.Wizard.SubmitDetails(form))
}

// SubmitEvidence handles step 3 and sends phase 2.
func (h *Handlers) SubmitEvidence(c *gin.Context) {
	session, ok := h.postSession(c)
	if !ok {
		return
	}
	h.limitBody(c)
	var form models.EvidenceForm
	if !h.bind(c, &form) {
		return
	}
	documents, photos := h.selections(c, wizard.Documents), h.selections(c, wizard.Photos)
	res := session.Wizard.SubmitEvidence(c.Request.Context(), form, documents, photos)
	h.respond(c, session, res)
}

// Back returns to the previous step, keeping what was typed on this one.
func (h *Handlers) Back(c *gin.Context) {
	session, ok := h.postSession(c)
	if !ok {
		return
	}
	w := session.Wizard
	switch w.Snapshot().Step {
	case wizard.StepDetails:
		var form models.BusinessDetailsForm
		if c.ShouldBind(&form) == nil {
			w.DraftDetails(form)
		}
	case wizard.StepEvidence:
		h.limitBody(c)
		var form models.EvidenceForm
		if c.ShouldBind(&form) == nil {
			w.DraftEvidence(form)
		}
	}
	h.respond(c, session, w.Back())
}

// Reset drops the session so the next visit starts over.
func (h *Handlers) Reset(c *gin.Context) {
	if id, err := c.Cookie(h.cfg.SessionCookieName); err == nil {
		h.sessions.Delete(id)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.SessionCookieName, "", -1, "/", "", h.cfg.SecureCookies, true)
	c.Redirect(http.StatusSeeOther, "/")
}

// AddUploads adds files to one step 3 control.
func (h *Handlers) AddUploads(c *gin.Context) {
	session, ok := h.postSession(c)
	if !ok {
		return
	}
	category, err := wizard.ParseUploadCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown upload category"})
		return
	}
	h.limitBody(c)

	var form models.EvidenceForm
	if c.ShouldBind(&form) == nil {
		session.Wizard.DraftEvidence(form)
	}
	// Files picked in the other control ride along and are kept too.
	for _, cat := range []wizard.UploadCategory{category, other(category)} {
		selected := h.selections(c, cat)
		if cat != category && len(selected) == 0 {
			continue
		}
		rejections, err := session.Wizard.AddUploads(cat, selected)
		if err != nil {
			h.uploadError(c, err)
			return
		}
		if len(rejections) > 0 {
			log.Printf("Rejected %d %s file(s) for lead %s", len(rejections), cat, session.Wizard.LeadID())
		}
	}
	c.Redirect(http.StatusSeeOther, "/verify")
}

func other(category wizard.UploadCategory) wizard.UploadCategory {
	if category == wizard.Documents {
		return wizard.Photos
	}
	return wizard.Documents
}

// RemoveUpload drops one accepted file.
func (h *Handlers) RemoveUpload(c *gin.Context) {
	session, ok := h.postSession(c)
	if !ok {
		return
	}
	category, err := wizard.ParseUploadCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown upload category"})
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file index"})
		return
	}
	h.limitBody(c)

	var form models.EvidenceForm
	if c.ShouldBind(&form) == nil {
		session.Wizard.DraftEvidence(form)
	}
	if err := session.Wizard.RemoveUpload(category, index); err != nil {
		h.uploadError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/verify")
}

// session returns the visitor's session, starting one when the cookie is
// missing or stale.
func (h *Handlers) session(c *gin.Context) (*services.Session, error) {
	if id, err := c.Cookie(h.cfg.SessionCookieName); err == nil {
		if session, err := h.sessions.Get(id); err == nil {
			return session, nil
		}
	}
	session, err := h.sessions.Create()
	if err != nil {
		return nil, err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.SessionCookieName, session.ID, int(h.cfg.SessionTTL.Seconds()), "/", "", h.cfg.SecureCookies, true)
	return session, nil
}

// postSession is session for form posts: a post without a live session starts
// over at step 1 instead of acting on a fresh wizard.
func (h *Handlers) postSession(c *gin.Context) (*services.Session, bool) {
	id, err := c.Cookie(h.cfg.SessionCookieName)
	if err == nil {
		session, err := h.sessions.Get(id)
		if err == nil {
			return session, true
		}
		log.Printf("Session lookup failed: %v", err)
	}
	c.Redirect(http.StatusSeeOther, "/verify")
	return nil, false
}

func (h *Handlers) sessionError(c *gin.Context, err error) {
	log.Printf("Error starting session: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start verification"})
}

func (h *Handlers) bind(c *gin.Context, form any) bool {
	if err := c.ShouldBind(form); err != nil {
		log.Printf("Error binding form: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form submission"})
		return false
	}
	return true
}

// limitBody caps a request that may carry files.
func (h *Handlers) limitBody(c *gin.Context) {
	files := int64(h.cfg.MaxFilesPerCategory) * 2
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize*files+1<<20)
}

func (h *Handlers) selections(c *gin.Context, category wizard.UploadCategory) []uploads.Selection {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return uploads.FromHeaders(form.File[string(category)])
}

func (h *Handlers) uploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wizard.ErrSubmissionPending):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "A submission is already in progress"})
	case errors.Is(err, wizard.ErrWrongStep):
		c.Redirect(http.StatusSeeOther, "/verify")
	case errors.Is(err, uploads.ErrNoSuchFile):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
	default:
		log.Printf("Error handling upload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not process upload"})
	}
}

// respond turns a wizard result into a redirect or a re-rendered step.
func (h *Handlers) respond(c *gin.Context, session *services.Session, res wizard.Result) {
	switch res.Outcome {
	case wizard.Accepted:
		c.Redirect(http.StatusSeeOther, "/verify")
	case wizard.Discarded:
		log.Printf("Discarded honeypot submission for lead %s", session.Wizard.LeadID())
		c.Redirect(http.StatusSeeOther, "/received")
	case wizard.Invalid:
		if errors.Is(res.Err, wizard.ErrWrongStep) {
			c.Redirect(http.StatusSeeOther, "/verify")
			return
		}
		h.render(c, http.StatusUnprocessableEntity, session.Wizard)
	case wizard.Pending:
		h.render(c, http.StatusTooManyRequests, session.Wizard)
	case wizard.Failed:
		log.Printf("Submission failed for lead %s: %v", session.Wizard.LeadID(), res.Err)
		h.render(c, http.StatusBadGateway, session.Wizard)
	}
}

func (h *Handlers) render(c *gin.Context, status int, w *wizard.Wizard) {
	s := w.Snapshot()
	c.HTML(status, "verify.html", wizardPage(h.cfg, s.Step.Section(), s))
}
