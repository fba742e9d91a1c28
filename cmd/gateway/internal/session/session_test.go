package session_test

import (
	"errors"
	"testing"

	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/session"
	"github.com/Muhsin-Gun/aurora/pkg/config"
	"github.com/Muhsin-Gun/aurora/pkg/models"
)

func newManager() *session.Manager {
	return session.NewManager(config.SessionConfig{DemoBalance: 250000, DemoEquity: 250000})
}

func TestLogin_FabricatesDemoUser(t *testing.T) {
	m := newManager()

	sess, err := m.Login("trader@example.com", "hunter2", models.RoleClient)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if sess.Token == "" {
		t.Errorf("Expected a session token")
	}
	if sess.User.Email != "trader@example.com" {
		t.Errorf("Expected email to round-trip, got %s", sess.User.Email)
	}
	if sess.User.Name != "trader" {
		t.Errorf("Expected display name from email local part, got %s", sess.User.Name)
	}
	if sess.User.Balance != 250000 || sess.User.Equity != 250000 {
		t.Errorf("Expected demo balance/equity, got %.2f/%.2f", sess.User.Balance, sess.User.Equity)
	}
}

func TestLogin_EmptyCredentialsRejected(t *testing.T) {
	m := newManager()

	cases := []struct{ email, password string }{
		{"", "pw"},
		{"a@b.com", ""},
		{"  ", "pw"},
	}
	for _, tc := range cases {
		if _, err := m.Login(tc.email, tc.password, models.RoleClient); !errors.Is(err, session.ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q) should reject empty credentials, got %v", tc.email, tc.password, err)
		}
	}
}

func TestLogin_UnknownRoleFallsBackToClient(t *testing.T) {
	m := newManager()

	sess, err := m.Login("a@b.com", "pw", models.Role("SUPERUSER"))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if sess.User.Role != models.RoleClient {
		t.Errorf("Unknown role should resolve to CLIENT, got %s", sess.User.Role)
	}
	if sess.Can(models.CapManageAccounts) {
		t.Errorf("Fallback client session must not manage accounts")
	}
}

func TestCapabilities_ResolvedServerSide(t *testing.T) {
	m := newManager()

	client, _ := m.Login("c@x.com", "pw", models.RoleClient)
	employee, _ := m.Login("e@x.com", "pw", models.RoleEmployee)
	admin, _ := m.Login("a@x.com", "pw", models.RoleAdmin)

	if !client.Can(models.CapRequestVideo) {
		t.Errorf("Client should hold video capability")
	}
	if employee.Can(models.CapRequestVideo) {
		t.Errorf("Employee should not hold video capability")
	}
	if !employee.Can(models.CapRequestAnalysis) {
		t.Errorf("Employee should hold analysis capability")
	}
	if !admin.Can(models.CapManageAccounts) {
		t.Errorf("Admin should hold account management capability")
	}
	if client.Can(models.CapManageAccounts) {
		t.Errorf("Client should not hold account management capability")
	}
}

func TestGet_ResolvesIssuedToken(t *testing.T) {
	m := newManager()

	sess, _ := m.Login("a@b.com", "pw", models.RoleClient)

	got, err := m.Get(sess.Token)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.User.ID != sess.User.ID {
		t.Errorf("Token resolved to a different session")
	}

	if _, err := m.Get("no-such-token"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Unknown token should return ErrSessionNotFound, got %v", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	m := newManager()

	sess, _ := m.Login("a@b.com", "pw", models.RoleClient)

	m.Logout(sess.Token)
	m.Logout(sess.Token) // Second logout is a no-op

	if _, err := m.Get(sess.Token); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Session should be gone after logout")
	}
}
