package core

import "protospace/internal/models"

// Field names a user-mutable field.
type Field string

const (
	FieldTitle     Field = "title"
	FieldCatchCopy Field = "catch_copy"
	FieldConcept   Field = "concept"
	FieldImage     Field = "image"
	FieldText      Field = "text"
)

// prototypeFields is the allow-list of prototype fields in report order.
var prototypeFields = []Field{FieldTitle, FieldCatchCopy, FieldConcept, FieldImage}

// Upload is a newly submitted image payload.
type Upload struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Empty reports whether the payload has no bytes.
func (u Upload) Empty() bool {
	return len(u.Data) == 0
}

// PrototypeFields is a partial prototype submission. Absent fields keep the
// stored value; present fields replace it verbatim, empty included.
type PrototypeFields struct {
	Title     Optional[string]
	CatchCopy Optional[string]
	Concept   Optional[string]
	Image     Optional[Upload]
}

// FieldsFromValues builds the text part of a submission from a form-style
// value map. Keys outside the allow-list are ignored, so ownership can never
// be supplied this way. A key that is present with an empty value is present-empty.
func FieldsFromValues(values map[string][]string) PrototypeFields {
	var fields PrototypeFields
	if v, ok := firstValue(values, FieldTitle); ok {
		fields.Title = Some(v)
	}
	if v, ok := firstValue(values, FieldCatchCopy); ok {
		fields.CatchCopy = Some(v)
	}
	if v, ok := firstValue(values, FieldConcept); ok {
		fields.Concept = Some(v)
	}
	return fields
}

func firstValue(values map[string][]string, field Field) (string, bool) {
	raw, ok := values[string(field)]
	if !ok {
		return "", false
	}
	if len(raw) == 0 {
		return "", true
	}
	return raw[0], true
}

// Candidate is a merged, not yet committed prototype.
type Candidate struct {
	Title     string
	CatchCopy string
	Concept   string

	// Image is the stored image carried forward when no upload was submitted.
	Image models.Image
	// Upload is set when the submission replaced the image.
	Upload *Upload
}

// Merge resolves a partial submission against the stored record.
func Merge(stored models.Prototype, fields PrototypeFields) Candidate {
	candidate := Candidate{
		Title:     fields.Title.Or(stored.Title),
		CatchCopy: fields.CatchCopy.Or(stored.CatchCopy),
		Concept:   fields.Concept.Or(stored.Concept),
		Image:     stored.Image,
	}
	if upload, ok := fields.Image.Get(); ok {
		u := upload
		candidate.Upload = &u
		candidate.Image = models.Image{}
	}
	return candidate
}

// FormEcho holds the text fields re-presented after a rejected submission.
// The image is never echoed.
type FormEcho struct {
	Title     string `json:"title"`
	CatchCopy string `json:"catch_copy"`
	Concept   string `json:"concept"`
}

func echoOf(c Candidate) FormEcho {
	return FormEcho{Title: c.Title, CatchCopy: c.CatchCopy, Concept: c.Concept}
}

// EchoOf returns the text fields of a stored prototype for form pre-fill.
func EchoOf(p models.Prototype) FormEcho {
	return FormEcho{Title: p.Title, CatchCopy: p.CatchCopy, Concept: p.Concept}
}
