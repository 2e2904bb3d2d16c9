// Package format renders CLI output for prototypes, comments and users.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"protospace/internal/api"
)

// Formatter abstracts output formatting.
type Formatter interface {
	Write(w io.Writer, payload any) error
}

// JSONFormatter writes one JSON document per payload.
type JSONFormatter struct {
	Indent string
}

// Write writes payload to w.
func (f JSONFormatter) Write(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	if f.Indent != "" {
		enc.SetIndent("", f.Indent)
	}
	return enc.Encode(payload)
}

// Time renders timestamps in UTC RFC 3339.
func Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// PrototypeLine renders one listing row.
func PrototypeLine(p api.Prototype) string {
	owner := p.OwnerName
	if owner == "" {
		owner = p.UserID
	}
	return fmt.Sprintf("%s  %s - %s (by %s)", p.ID, oneLine(p.Title), oneLine(p.CatchCopy), owner)
}

// PrototypeDetail renders a prototype and its comments, oldest first.
func PrototypeDetail(d api.PrototypeDetail) string {
	lines := []string{
		"id: " + d.ID,
		"title: " + d.Title,
		"owner: " + ownerLabel(d.Prototype),
		"catch_copy: " + d.CatchCopy,
		"concept: " + d.Concept,
		"image: " + d.ImageURL,
		"created_at: " + Time(d.CreatedAt),
		"updated_at: " + Time(d.UpdatedAt),
	}
	if len(d.Comments) == 0 {
		return strings.Join(lines, "\n")
	}
	lines = append(lines, "comments:")
	for _, c := range d.Comments {
		author := c.AuthorName
		if author == "" {
			author = c.UserID
		}
		lines = append(lines, fmt.Sprintf("  - %s: %s", author, oneLine(c.Text)))
	}
	return strings.Join(lines, "\n")
}

// UserLine renders one user row.
func UserLine(u api.User) string {
	parts := []string{u.ID, u.Name}
	if u.Occupation != "" {
		parts = append(parts, u.Occupation)
	}
	if u.Position != "" {
		parts = append(parts, u.Position)
	}
	return strings.Join(parts, "\t")
}

func ownerLabel(p api.Prototype) string {
	if p.OwnerName == "" {
		return p.UserID
	}
	return p.OwnerName + " (" + p.UserID + ")"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
