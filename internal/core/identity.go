// Package core implements the prototype mutation and authorization protocol:
// field merging, validation, the ownership guard and the create, update,
// delete and comment entry points built on them.
package core

import "strings"

// Identity is the acting user of a request. The zero value is anonymous.
type Identity struct {
	UserID string
}

// Anonymous returns the identity of an unauthenticated requester.
func Anonymous() Identity {
	return Identity{}
}

// AuthenticatedAs returns the identity of one signed-in user.
func AuthenticatedAs(userID string) Identity {
	return Identity{UserID: strings.TrimSpace(userID)}
}

// Authenticated reports whether the identity belongs to a signed-in user.
func (i Identity) Authenticated() bool {
	return strings.TrimSpace(i.UserID) != ""
}
