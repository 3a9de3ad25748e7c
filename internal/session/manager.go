package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vcompra/cartsync/internal/account"
	"github.com/vcompra/cartsync/internal/auth"
	"github.com/vcompra/cartsync/internal/common"
	"github.com/vcompra/cartsync/internal/logging"
	"github.com/vcompra/cartsync/internal/models"
)

// State is the session lifecycle state.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Manager owns one caller's session. It is an explicit object with a
// caller-owned lifecycle; nothing here is process-global. Safe for
// concurrent use.
type Manager struct {
	accounts *account.Service
	sessions Store
	secret   []byte
	validity time.Duration
	log      logging.Logger

	mu      sync.Mutex
	state   State
	current *models.UserAccount // always sanitized
	token   string
}

func NewManager(accounts *account.Service, sessions Store, tokenSecret []byte, tokenValidity time.Duration, log logging.Logger) *Manager {
	return &Manager{
		accounts: accounts,
		sessions: sessions,
		secret:   tokenSecret,
		validity: tokenValidity,
		log:      log,
		state:    StateAnonymous,
	}
}

// Register creates an account and, on success, authenticates the
// session. Store errors (duplicate identity, validation) surface
// unchanged and leave the session anonymous.
func (m *Manager) Register(ctx context.Context, username, email string, password []byte) (*models.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateAuthenticating

	user, err := m.accounts.Register(ctx, username, email, password)
	if err != nil {
		m.state = StateAnonymous
		return nil, err
	}

	return m.establish(ctx, user)
}

// Login authenticates by email and password. Unknown email and wrong
// password both surface common.ErrInvalidCredential, so a caller cannot
// probe which accounts exist.
func (m *Manager) Login(ctx context.Context, email string, password []byte) (*models.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateAuthenticating

	user, err := m.accounts.Login(ctx, email, password)
	if err != nil {
		m.state = StateAnonymous
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrInvalidCredential) {
			return nil, common.ErrInvalidCredential
		}
		return nil, err
	}

	return m.establish(ctx, user)
}

// Logout drops the token and identity and clears the persisted session
// document. Purely local, no store round-trip beyond the session file.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateAnonymous
	m.current = nil
	m.token = ""

	return m.sessions.Clear(ctx)
}

// Bootstrap restores a previously persisted session. A missing
// document, a malformed token, or a vanished account all downgrade to
// anonymous instead of failing: a corrupt session must never crash
// startup. Any token that fails signature verification, legacy
// unsigned ones as well as expired or foreign-signed HS256 ones, is
// accepted once here only, after the claimed account is re-checked
// against the store, and is immediately replaced with a signed token.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.sessions.Load(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			m.resetToAnonymous(ctx)
			return nil
		}
		return err
	}

	if !doc.IsAuthenticated || doc.Token == "" {
		m.resetToAnonymous(ctx)
		return nil
	}

	claims, err := auth.VerifyToken(doc.Token, m.secret)
	if err != nil {
		// Structural fallback for anything VerifyToken rejects: v1
		// unsigned tokens, expired ones, and signed tokens whose
		// signature no longer checks out (rotated secret) all land
		// here. The claims are untrusted until the identity is proved
		// to still exist in the store.
		legacy, legacyErr := auth.ParseLegacyClaims(doc.Token)
		if legacyErr != nil {
			m.log.Warn(ctx, "discarding stale session", "reason", err.Error())
			m.resetToAnonymous(ctx)
			return nil
		}
		claims = legacy
	}

	user, err := m.accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		m.log.Warn(ctx, "discarding session for unknown account", "user", claims.UserID)
		m.resetToAnonymous(ctx)
		return nil
	}

	// Re-issue so legacy tokens get upgraded and expiry is pushed out.
	if _, err := m.establish(ctx, user); err != nil {
		m.resetToAnonymous(ctx)
		return nil
	}

	m.log.Info(ctx, "session restored", "user", user.ID)
	return nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns a sanitized snapshot of the authenticated identity.
func (m *Manager) Current() (*models.UserAccount, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated || m.current == nil {
		return nil, false
	}
	c := *m.current
	return &c, true
}

// Token returns the held session token, or "" while anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// RequireIdentity returns the authenticated account id, or
// common.ErrUnauthenticated. The reconciliation engine gates every
// operation on it before touching the vault.
func (m *Manager) RequireIdentity() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated || m.current == nil {
		return "", common.ErrUnauthenticated
	}
	return m.current.ID, nil
}

// NoteSync refreshes the cached identity snapshot after a successful
// vault write and re-persists the session document.
func (m *Manager) NoteSync(ctx context.Context, syncedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAuthenticated || m.current == nil {
		return
	}
	t := syncedAt
	m.current.LastSync = &t
	if err := m.persist(ctx); err != nil {
		m.log.Warn(ctx, "persisting session after sync failed", "error", err.Error())
	}
}

// SyncState derives the current synchronization view.
func (m *Manager) SyncState(hasLocalData bool) models.SyncState {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := models.SyncState{HasLocalData: hasLocalData}
	if m.state == StateAuthenticated && m.current != nil {
		st.LastSync = m.current.LastSync
	}
	return st
}

// establish mints a token for user and moves the session to
// authenticated. Caller holds m.mu.
func (m *Manager) establish(ctx context.Context, user *models.UserAccount) (*models.UserAccount, error) {
	token, err := auth.GenerateToken(user, m.secret, m.validity)
	if err != nil {
		m.state = StateAnonymous
		return nil, err
	}

	m.state = StateAuthenticated
	m.current = user.Sanitized()
	m.token = token

	if err := m.persist(ctx); err != nil {
		m.log.Warn(ctx, "persisting session failed", "error", err.Error())
	}

	c := *m.current
	return &c, nil
}

// persist writes the session document. Caller holds m.mu.
func (m *Manager) persist(ctx context.Context) error {
	return m.sessions.Save(ctx, &models.SessionDoc{
		IsAuthenticated: true,
		CurrentUser:     m.current,
		Token:           m.token,
	})
}

// resetToAnonymous clears in-memory and persisted state. Caller holds
// m.mu.
func (m *Manager) resetToAnonymous(ctx context.Context) {
	m.state = StateAnonymous
	m.current = nil
	m.token = ""
	if err := m.sessions.Clear(ctx); err != nil {
		m.log.Warn(ctx, "clearing session store failed", "error", err.Error())
	}
}
