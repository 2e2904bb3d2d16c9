package core

import (
	"strings"
	"unicode"
)

// Violations lists the fields that failed validation, in report order.
type Violations []Field

// Has reports whether field is among the violations.
func (v Violations) Has(field Field) bool {
	for _, f := range v {
		if f == field {
			return true
		}
	}
	return false
}

// Strings returns the violated field names.
func (v Violations) Strings() []string {
	out := make([]string, 0, len(v))
	for _, f := range v {
		out = append(out, string(f))
	}
	return out
}

// ValidatePrototype checks every required field of a candidate and reports
// all violations at once. A new image must also sniff as an allowed format.
func ValidatePrototype(c Candidate) Violations {
	var violations Violations
	for _, field := range prototypeFields {
		if prototypeFieldBlank(c, field) {
			violations = append(violations, field)
		}
	}
	return violations
}

// ValidateComment checks comment text.
func ValidateComment(text string) Violations {
	if isBlank(text) {
		return Violations{FieldText}
	}
	return nil
}

func prototypeFieldBlank(c Candidate, field Field) bool {
	switch field {
	case FieldTitle:
		return isBlank(c.Title)
	case FieldCatchCopy:
		return isBlank(c.CatchCopy)
	case FieldConcept:
		return isBlank(c.Concept)
	case FieldImage:
		if c.Upload != nil {
			return c.Upload.Empty() || !c.Upload.Acceptable()
		}
		return !c.Image.Present()
	}
	return false
}

// isBlank treats whitespace-only text as empty.
func isBlank(value string) bool {
	return strings.TrimFunc(value, unicode.IsSpace) == ""
}
