package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/bus"
)

var (
	ErrInvalidCredential          = errors.New("invalid password")
	ErrSessionEstablishmentFailed = errors.New("failed to establish session")
	ErrRefreshFailed              = errors.New("failed to refresh session")
)

// RemoteSession is what the manager observes about the provider's session.
type RemoteSession struct {
	UserID string
}

// Provider is the remote auth backend as consumed by the manager.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (RemoteSession, error)
	Refresh(ctx context.Context) (RemoteSession, error)
	SessionPresent() bool
	SignOut(ctx context.Context) error
}

// Config carries the fixed admin credentials. PasswordHash is a bcrypt hash
// and takes precedence over Password; the plaintext Password is still needed
// for the refresh fallback re-authentication.
type Config struct {
	Email        string
	Password     string
	PasswordHash string
	TTL          time.Duration
}

// Manager reconciles two sources of truth: the local session slot (which
// decides whether the admin UI unlocks) and the provider session (which
// decides whether writes against the backend succeed). The local slot wins
// for UI gating; the provider is consulted lazily.
type Manager struct {
	store    SlotStore
	provider Provider
	events   *bus.Bus
	cfg      Config
	now      func() time.Time

	mu sync.Mutex
	// Remote-truth bookkeeping for EffectiveAuth. Conceptually the session
	// decays from fresh to stale as time passes without a remote check;
	// staleness is resolved lazily by RemoteSessionValid or Refresh.
	remoteChecked bool
	remoteValid   bool
}

func NewManager(store SlotStore, provider Provider, events *bus.Bus, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Manager{
		store:    store,
		provider: provider,
		events:   events,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Authenticate checks the supplied password against the fixed admin secret
// and, on match, performs the remote sign-in exchange. The provider is never
// contacted for a wrong password.
func (m *Manager) Authenticate(ctx context.Context, password string) error {
	if !m.secretMatches(password) {
		return ErrInvalidCredential
	}

	remote, err := m.provider.SignInWithPassword(ctx, m.cfg.Email, password)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionEstablishmentFailed, err)
	}

	now := m.now()
	record := Record{
		Authenticated: true,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.cfg.TTL),
		RemoteUserID:  remote.UserID,
	}
	if err := m.store.Save(ctx, record); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionEstablishmentFailed, err)
	}

	m.mu.Lock()
	m.remoteChecked = true
	m.remoteValid = true
	m.mu.Unlock()

	m.events.Publish(bus.AuthUpdated)
	return nil
}

// IsAuthenticated reads only the local slot and never contacts the provider,
// so it is cheap enough for every request-path check. It can report true
// while the remote session has independently died; RemoteSessionValid is the
// explicit check for that. An expired slot is deleted as a side effect.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	record, err := m.store.Load(ctx)
	if err != nil {
		log.Printf("session: slot read failed: %v", err)
		return false
	}
	if record == nil {
		return false
	}
	if !m.now().Before(record.ExpiresAt) {
		if err := m.store.Delete(ctx); err != nil {
			log.Printf("session: expired slot delete failed: %v", err)
		}
		m.events.Publish(bus.AuthUpdated)
		return false
	}
	return record.Authenticated
}

// RemoteSessionValid reports whether the provider still holds a live
// session. Returns false immediately when not locally authenticated. This is
// the expensive check; callers use it sparingly, never on every request.
func (m *Manager) RemoteSessionValid(ctx context.Context) bool {
	if !m.IsAuthenticated(ctx) {
		return false
	}
	present := m.provider.SessionPresent()

	m.mu.Lock()
	m.remoteChecked = true
	m.remoteValid = present
	m.mu.Unlock()

	return present
}

// EffectiveAuth combines both sources of truth: locally valid AND the remote
// session either assumed valid or never checked since the last transition.
// The staleness window between remote death and the next explicit check is a
// documented property of this design, not an accident.
func (m *Manager) EffectiveAuth(ctx context.Context) bool {
	if !m.IsAuthenticated(ctx) {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remoteValid || !m.remoteChecked
}

// Refresh renews the provider session, falling back to a full
// re-authentication with the fixed admin credentials when the refresh grant
// fails. It updates the slot's CreatedAt and remote user id but never
// ExpiresAt: the 24h window is governed only by Authenticate and Extend.
// On total failure the existing slot is left untouched; it may still be
// within its window even if the provider was briefly unreachable.
func (m *Manager) Refresh(ctx context.Context) error {
	if !m.IsAuthenticated(ctx) {
		return ErrRefreshFailed
	}

	remote, err := m.provider.Refresh(ctx)
	if err != nil {
		log.Printf("session: provider refresh failed, re-authenticating: %v", err)
		if m.cfg.Password == "" {
			return fmt.Errorf("%w: no plaintext credential for re-authentication", ErrRefreshFailed)
		}
		remote, err = m.provider.SignInWithPassword(ctx, m.cfg.Email, m.cfg.Password)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		}
	}

	record, loadErr := m.store.Load(ctx)
	if loadErr != nil || record == nil {
		return fmt.Errorf("%w: session slot unavailable", ErrRefreshFailed)
	}
	record.CreatedAt = m.now()
	record.RemoteUserID = remote.UserID
	if err := m.store.Save(ctx, *record); err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	m.mu.Lock()
	m.remoteChecked = true
	m.remoteValid = true
	m.mu.Unlock()

	return nil
}

// Extend rewrites the slot with a fresh 24h window, preserving the remote
// user id, without contacting the provider. A no-op when unauthenticated.
func (m *Manager) Extend(ctx context.Context) error {
	record, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("extend session: %w", err)
	}
	if record == nil || !record.Valid(m.now()) {
		return nil
	}

	now := m.now()
	record.CreatedAt = now
	record.ExpiresAt = now.Add(m.cfg.TTL)
	if err := m.store.Save(ctx, *record); err != nil {
		return fmt.Errorf("extend session: %w", err)
	}
	return nil
}

// Logout signs out remotely on a best-effort basis and deletes the local
// slot unconditionally. The owner must always be able to lock the admin
// surface, network or not.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.provider.SignOut(ctx); err != nil {
		log.Printf("session: remote sign-out failed (continuing): %v", err)
	}
	if err := m.store.Delete(ctx); err != nil {
		log.Printf("session: slot delete failed: %v", err)
	}

	m.mu.Lock()
	m.remoteChecked = false
	m.remoteValid = false
	m.mu.Unlock()

	m.events.Publish(bus.AuthUpdated)
}

// RemoteUserID returns the signed-in remote user's id, or an error when
// there is no locally valid session or no live provider session. This is the
// gate resume uploads go through.
func (m *Manager) RemoteUserID(ctx context.Context) (string, error) {
	if !m.IsAuthenticated(ctx) {
		return "", errors.New("not authenticated")
	}
	if !m.provider.SessionPresent() {
		return "", errors.New("no active remote session")
	}
	record, err := m.store.Load(ctx)
	if err != nil || record == nil {
		return "", errors.New("session slot unavailable")
	}
	return record.RemoteUserID, nil
}

// Current returns a copy of the slot for status displays, nil when absent.
func (m *Manager) Current(ctx context.Context) *Record {
	record, err := m.store.Load(ctx)
	if err != nil || record == nil {
		return nil
	}
	return record
}

func (m *Manager) secretMatches(password string) bool {
	if m.cfg.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(m.cfg.PasswordHash), []byte(password)) == nil
	}
	if m.cfg.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(m.cfg.Password), []byte(password)) == 1
}
