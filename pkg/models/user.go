package models

// Role is the coarse account type assigned at login.
type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

// Capability is a single permission granted to a session. Capabilities are
// resolved server-side from the role when the session is created; clients
// cannot change them afterwards.
type Capability string

const (
	CapViewMarket      Capability = "market.view"
	CapRequestAnalysis Capability = "content.analysis"
	CapRequestVideo    Capability = "content.video"
	CapManageAccounts  Capability = "accounts.manage"
)

// User is a demo account fabricated at login. It lives only for the
// session; nothing is persisted.
type User struct {
	ID      string  `json:"id"`
	Email   string  `json:"email"`
	Name    string  `json:"name"`
	Role    Role    `json:"role"`
	Balance float64 `json:"balance"`
	Equity  float64 `json:"equity"`
}
