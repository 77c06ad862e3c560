package session

import (
	"context"
	"sync"

	"github.com/patric-chuzhbe/studytrack/internal/logger"
	"github.com/patric-chuzhbe/studytrack/internal/models"
	"github.com/patric-chuzhbe/studytrack/internal/sessionfile"
)

type authAPI interface {
	Register(ctx context.Context, request models.RegisterRequest) error
	Login(ctx context.Context, request models.LoginRequest) (*models.LoginResponse, error)
}

type sessionKeeper interface {
	Load(key string, value interface{}) bool
	Save(key string, value interface{}) error
	Clear(key string) error
}

// Manager mediates between the command surface, the backend auth endpoints
// and the persisted session store. It is the only writer of the session.
type Manager struct {
	mu      sync.Mutex
	api     authAPI
	store   sessionKeeper
	current Session

	// lastSeq numbers the session-mutating operations. A login response is
	// applied only when its sequence is still the latest issued, so the
	// last-issued operation wins over a slower, earlier one.
	lastSeq uint64
}

// NewManager builds a Manager and restores the session from the persisted
// store. A missing or undecodable key leaves the session signed out; no
// network round-trip happens here — token validity is the backend's call on
// the first authenticated request.
func NewManager(api authAPI, store sessionKeeper) *Manager {
	manager := &Manager{
		api:   api,
		store: store,
	}

	usr := models.User{}
	token := ""
	if store.Load(sessionfile.UserKey, &usr) && store.Load(sessionfile.TokenKey, &token) {
		manager.current = New(usr, token)
	}

	return manager
}

// Current returns a snapshot of the session.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current
}

// Register creates a new account. It never establishes a session, whatever
// the backend responds with: callers wanting a signed-in state after
// registration must call Login next.
func (m *Manager) Register(ctx context.Context, username, email, password string) error {
	err := m.api.Register(ctx, models.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return newAuthError(err)
	}

	return nil
}

// Login exchanges credentials for a session. On success the session is
// replaced wholesale and both store keys are persisted; on failure the
// session is left untouched and an *AuthError is returned. A response
// superseded by a newer Login or Logout is discarded.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	seq := m.nextSeq()

	response, err := m.api.Login(ctx, models.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return newAuthError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.lastSeq {
		logger.Log.Debugln("Discarding a superseded login response", "seq", seq, "lastSeq", m.lastSeq)
		return nil
	}

	m.current = New(response.User, response.Token)

	if err := m.store.Save(sessionfile.UserKey, response.User); err != nil {
		logger.Log.Debugln("Error persisting the session user: ", err)
	}
	if err := m.store.Save(sessionfile.TokenKey, response.Token); err != nil {
		logger.Log.Debugln("Error persisting the session token: ", err)
	}

	return nil
}

// Logout clears the session and both persisted keys. It always succeeds,
// also when nothing was signed in; store failures are logged, not surfaced.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSeq++
	m.current = Empty()

	if err := m.store.Clear(sessionfile.UserKey); err != nil {
		logger.Log.Debugln("Error clearing the persisted user: ", err)
	}
	if err := m.store.Clear(sessionfile.TokenKey); err != nil {
		logger.Log.Debugln("Error clearing the persisted token: ", err)
	}
}

func (m *Manager) nextSeq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSeq++

	return m.lastSeq
}
