package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their YAML key.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tags first, then each section's own rules.
// All section errors are reported together.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	var errs []error
	if err := cfg.Database.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.State.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Archive.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.API.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// formatValidationErrors renders one line per field: "logging.level: must
// be one of DEBUG INFO WARN ERROR (oneof)".
func formatValidationErrors(verrs validator.ValidationErrors) error {
	lines := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		msg := fmt.Sprintf("invalid value %v", fe.Value())
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "oneof":
			msg = "must be one of " + fe.Param()
		case "gt":
			msg = "must be greater than " + fe.Param()
		case "gte", "min":
			msg = "must be at least " + fe.Param()
		case "lte", "max":
			msg = "must be at most " + fe.Param()
		}
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", field, msg, fe.Tag()))
	}
	return errors.New(strings.Join(lines, "; "))
}
