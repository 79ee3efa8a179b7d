package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks feed inputs against their `validate` struct tags.
type Validator struct {
	cli *validator.Validate
}

// ValidationError represents an error encountered during validation of a struct field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the set of validation failures for one input. It implements
// error so it can travel through the feed operations unchanged.
type Errors []ValidationError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// An Option configures a Validator.
type Option func(*validator.Validate)

// WithAlias registers tag as shorthand for the given validation tags, for
// example WithAlias("reaction", "oneof=LIKE LOVE").
func WithAlias(tag, tags string) Option {
	return func(v *validator.Validate) {
		v.RegisterAlias(tag, tags)
	}
}

// fieldName reports fields by their JSON name so the errors line up with
// the request bodies clients send.
func fieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func (v *Validator) formatError(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: fe.Error(),
		})
	}
	return out
}

// ValidateStruct validates the provided struct and returns the failures, if any.
func (v *Validator) ValidateStruct(s any) []ValidationError {
	if err := v.cli.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Check is ValidateStruct returning an error: nil when s is valid, Errors otherwise.
func (v *Validator) Check(s any) error {
	if errs := v.ValidateStruct(s); len(errs) > 0 {
		return Errors(errs)
	}
	return nil
}

// New initializes and returns a new instance of the Validator.
func New(opts ...Option) *Validator {
	cli := validator.New(validator.WithRequiredStructEnabled())
	cli.RegisterTagNameFunc(fieldName)
	for _, opt := range opts {
		opt(cli)
	}
	return &Validator{cli: cli}
}
