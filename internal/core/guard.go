package core

import "protospace/internal/models"

// Decision is the ownership guard verdict.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Authorize allows mutation only by the authenticated owner of an existing record.
func Authorize(identity Identity, p *models.Prototype) Decision {
	if p == nil || !identity.Authenticated() {
		return Deny
	}
	if p.UserID != identity.UserID {
		return Deny
	}
	return Allow
}
