package auth

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Registration is a sign-up submission.
type Registration struct {
	Email                string `json:"email" validate:"required,email,max=254"`
	Password             string `json:"password" validate:"required,min=6,maxbytes=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	Name                 string `json:"name" validate:"required,max=50"`
	Profile              string `json:"profile" validate:"required"`
	Occupation           string `json:"occupation" validate:"required"`
	Position             string `json:"position" validate:"required"`
}

// FieldErrors maps a json field name to a human-readable message.
type FieldErrors map[string]string

// RegistrationError reports every invalid field of a sign-up submission.
type RegistrationError struct {
	Fields FieldErrors

	emailTaken bool
}

// EmailTaken reports whether the only problem is an already registered email.
func (e *RegistrationError) EmailTaken() bool {
	return e != nil && e.emailTaken
}

func (e *RegistrationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "registration invalid"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, e.Fields[name]))
	}
	return "registration invalid: " + strings.Join(parts, "; ")
}

// Messages returns the field messages in stable order.
func (e *RegistrationError) Messages() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, humanFieldName(name)+" "+e.Fields[name])
	}
	return out
}

// RegistrationValidator checks sign-up submissions. Uniqueness of the email
// is checked by the caller against the user store.
type RegistrationValidator struct {
	validate *validator.Validate
}

// NewRegistrationValidator returns a validator that reports json field names.
func NewRegistrationValidator() *RegistrationValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// bcrypt only accepts inputs up to MaxPasswordBytes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return &RegistrationValidator{validate: v}
}

// Validate normalizes reg in place and returns a *RegistrationError when any
// field is invalid. Whitespace-only values count as missing.
func (v *RegistrationValidator) Validate(reg *Registration) error {
	if reg == nil {
		return fmt.Errorf("registration is required")
	}
	reg.Email = NormalizeEmail(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Profile = strings.TrimSpace(reg.Profile)
	reg.Occupation = strings.TrimSpace(reg.Occupation)
	reg.Position = strings.TrimSpace(reg.Position)

	err := v.validate.Struct(reg)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := FieldErrors{}
	for _, fe := range validationErrors {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &RegistrationError{Fields: fields}
}

// Taken builds the error for an email that is already registered.
func Taken() *RegistrationError {
	return &RegistrationError{Fields: FieldErrors{"email": "has already been taken"}, emailTaken: true}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "can't be blank"
	case "email":
		return "is invalid"
	case "min":
		return fmt.Sprintf("is too short (minimum is %s characters)", fe.Param())
	case "max":
		return fmt.Sprintf("is too long (maximum is %s characters)", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("is too long (maximum is %s bytes)", fe.Param())
	case "eqfield":
		return "doesn't match Password"
	default:
		return fmt.Sprintf("is invalid (%s)", fe.Tag())
	}
}

func humanFieldName(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
