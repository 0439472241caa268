// Package validate holds ozzo-validation helpers shared by the services.
package validate

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/moonshine/internal/apperr"
)

// Struct validates structPtr and returns an apperr validation error on failure.
func Struct(structPtr any, fields ...*validation.FieldRules) error {
	return wrap(validation.ValidateStruct(structPtr, fields...))
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		return apperr.Validation("%s", strings.TrimSuffix(errs.Error(), "."))
	}
	var ie validation.InternalError
	if errors.As(err, &ie) {
		return fmt.Errorf("validate: %w", err)
	}
	return apperr.Validation("%s", err.Error())
}

// IntBetween checks that an int or *int lies in [lo, hi]. Nil pointers pass.
// Unlike validation.Min it does not skip zero.
func IntBetween(lo, hi int) validation.Rule {
	return validation.By(func(value any) error {
		v, isNil := validation.Indirect(value)
		if isNil {
			return nil
		}
		n, ok := v.(int)
		if !ok {
			return fmt.Errorf("must be an integer")
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	})
}

// FloatBetween checks that a float64 or *float64 lies in [lo, hi]. Nil pointers pass.
func FloatBetween(lo, hi float64) validation.Rule {
	return validation.By(func(value any) error {
		v, isNil := validation.Indirect(value)
		if isNil {
			return nil
		}
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("must be a number")
		}
		if f < lo || f > hi || f != f {
			return fmt.Errorf("must be between %g and %g", lo, hi)
		}
		return nil
	})
}

// OneOf is validation.In over a string vocabulary.
func OneOf(vocab []string) validation.Rule {
	vals := make([]any, len(vocab))
	for i, v := range vocab {
		vals[i] = v
	}
	return validation.In(vals...).Error("must be one of: " + strings.Join(vocab, ", "))
}
