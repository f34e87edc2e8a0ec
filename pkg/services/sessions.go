package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"gbp-verify/pkg/config"
	"gbp-verify/pkg/uploads"
	"gbp-verify/pkg/wizard"
)

var (
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionNotFound = errors.New("session not found")
)

// WizardFactory starts a fresh wizard for a new session.
type WizardFactory func() (*wizard.Wizard, error)

// NewWizardFactory starts wizards configured from cfg, each under a fresh
// lead id. All of them draw uploads from one memory budget.
func NewWizardFactory(submitter wizard.Submitter, cfg *config.Config) WizardFactory {
	validator := wizard.NewValidator()
	budget := uploads.NewBudget(cfg.UploadMemoryLimit)
	opts := wizard.Options{
		Pacer:                wizard.Pacer{Minimum: cfg.TransitionDelay},
		RequireSignagePhotos: cfg.RequireSignagePhotos,
		MaxUploadSize:        cfg.MaxUploadSize,
		MaxFilesPerCategory:  cfg.MaxFilesPerCategory,
		UploadBudget:         budget,
	}
	return func() (*wizard.Wizard, error) {
		leadID, err := wizard.NewLeadID(time.Now(), nil)
		if err != nil {
			return nil, err
		}
		return wizard.New(leadID, submitter, validator, opts), nil
	}
}

// Session is one visitor's wizard, addressed by the session cookie.
type Session struct {
	ID        string
	Wizard    *wizard.Wizard
	ExpiresAt time.Time
}

// SessionStore keeps wizard sessions in memory. Every access slides the
// expiry forward.
type SessionStore struct {
	newWizard WizardFactory
	sessions  map[string]*Session
	mu        sync.RWMutex
	ttl       time.Duration
	now       func() time.Time
}

func NewSessionStore(newWizard WizardFactory, ttl time.Duration) *SessionStore {
	return &SessionStore{
		newWizard: newWizard,
		sessions:  make(map[string]*Session),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Create starts a new session with a fresh wizard.
func (s *SessionStore) Create() (*Session, error) {
	w, err := s.newWizard()
	if err != nil {
		return nil, fmt.Errorf("error creating wizard: %w", err)
	}
	session := &Session{
		ID:     uuid.NewString(),
		Wizard: w,
	}

	s.mu.Lock()
	session.ExpiresAt = s.now().Add(s.ttl)
	s.sessions[session.ID] = session
	s.mu.Unlock()

	log.Printf("Started session for lead %s", w.LeadID())
	return session, nil
}

// Get returns a live session and extends its expiry.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	now := s.now()
	if now.After(session.ExpiresAt) {
		delete(s.sessions, id)
		session.Wizard.Release()
		return nil, ErrSessionExpired
	}
	session.ExpiresAt = now.Add(s.ttl)
	return session, nil
}

// Delete drops a session and the files it holds.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	session, exists := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if exists {
		session.Wizard.Release()
	}
}

// Len reports the number of stored sessions, expired ones included until the
// next sweep.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
			session.Wizard.Release()
			removed++
		}
	}
	return removed
}

// Run sweeps on every interval until ctx is cancelled.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("Swept %d expired sessions", n)
			}
		}
	}
}
