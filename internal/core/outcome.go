package core

// OutcomeKind classifies how a submission ended.
type OutcomeKind string

const (
	OutcomeCommitted OutcomeKind = "committed"
	OutcomeDenied    OutcomeKind = "denied"
	OutcomeRejected  OutcomeKind = "rejected"
)

// View names a page a request is redirected to or re-rendered with.
type View string

const (
	ViewListing  View = "listing"
	ViewDetail   View = "detail"
	ViewSignIn   View = "sign_in"
	ViewNewForm  View = "new"
	ViewEditForm View = "edit"

	// ViewDefault is the neutral landing page used for every denial.
	ViewDefault = ViewListing
)

// Outcome is the result of one submission. Exactly one of Redirect and
// Render is set.
type Outcome struct {
	Kind     OutcomeKind
	Redirect View
	Render   View

	// PrototypeID identifies the record the redirect or render refers to.
	PrototypeID string

	// Form and Violations are set for rejected prototype submissions.
	Form       FormEcho
	Violations Violations

	// Err is the taxonomy error for denied and rejected outcomes.
	Err error
}

// Committed reports whether the submission was persisted.
func (o Outcome) Committed() bool {
	return o.Kind == OutcomeCommitted
}

func committed(redirect View, prototypeID string) Outcome {
	return Outcome{Kind: OutcomeCommitted, Redirect: redirect, PrototypeID: prototypeID}
}

func denied(redirect View, err error) Outcome {
	return Outcome{Kind: OutcomeDenied, Redirect: redirect, Err: err}
}

func rejected(render View, prototypeID string, form FormEcho, violations Violations) Outcome {
	return Outcome{
		Kind:        OutcomeRejected,
		Render:      render,
		PrototypeID: prototypeID,
		Form:        form,
		Violations:  violations,
		Err:         &ValidationError{Violations: violations},
	}
}
