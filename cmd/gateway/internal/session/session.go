package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Muhsin-Gun/aurora/pkg/config"
	"github.com/Muhsin-Gun/aurora/pkg/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
)

// roleCapabilities is the server-side permission table. Capabilities are
// fixed at login; the role a client claims later never widens them.
var roleCapabilities = map[models.Role][]models.Capability{
	models.RoleClient: {
		models.CapViewMarket,
		models.CapRequestAnalysis,
		models.CapRequestVideo,
	},
	models.RoleEmployee: {
		models.CapViewMarket,
		models.CapRequestAnalysis,
	},
	models.RoleAdmin: {
		models.CapViewMarket,
		models.CapRequestAnalysis,
		models.CapRequestVideo,
		models.CapManageAccounts,
	},
}

// Session binds a bearer token to a fabricated demo user and the
// capability set resolved from its role.
type Session struct {
	Token        string
	User         models.User
	capabilities map[models.Capability]bool
}

// Can reports whether the session holds a capability.
func (s *Session) Can(cap models.Capability) bool {
	return s.capabilities[cap]
}

// Manager keeps demo sessions in memory. Nothing survives a restart.
type Manager struct {
	cfg      config.SessionConfig
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(cfg config.SessionConfig) *Manager {
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Login fabricates a demo user for any non-empty credentials. There is no
// account store; the only rejection is an empty email or password.
func (m *Manager) Login(email, password string, role models.Role) (*Session, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}
	caps, ok := roleCapabilities[role]
	if !ok {
		role = models.RoleClient
		caps = roleCapabilities[role]
	}

	capSet := make(map[models.Capability]bool, len(caps))
	for _, c := range caps {
		capSet[c] = true
	}

	sess := &Session{
		Token: uuid.NewString(),
		User: models.User{
			ID:      uuid.NewString(),
			Email:   email,
			Name:    displayName(email),
			Role:    role,
			Balance: m.cfg.DemoBalance,
			Equity:  m.cfg.DemoEquity,
		},
		capabilities: capSet,
	}

	m.mu.Lock()
	m.sessions[sess.Token] = sess
	m.mu.Unlock()

	return sess, nil
}

// Get resolves a bearer token to its session.
func (m *Manager) Get(token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Logout discards the session. Unknown tokens are not an error; logout is
// idempotent.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func displayName(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return email
	}
	return local
}
