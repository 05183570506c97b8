package dataerr

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Validator checks decoded records at the ingestion boundary and reports the
// first violation as a classified error. Field names in errors are the JSON
// names of the input.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator keyed on json tags.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Check validates s. A failed "required" rule yields MissingField, any other
// rule MalformedValue.
func (v *Validator) Check(ctx context.Context, input Input, record string, s any) error {
	err := v.v.StructCtx(ctx, s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Internal(err, "validate "+string(input))
	}

	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	if fe.Tag() == "required" {
		return Missing(input, record, field)
	}
	reason := fmt.Sprintf("violates %s", fe.Tag())
	if fe.Param() != "" {
		reason += "=" + fe.Param()
	}
	return Malformed(input, record, field, reason)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
