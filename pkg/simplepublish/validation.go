package simplepublish

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Register the slug rule once; it cannot fail for a valid tag name.
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsValidSlug(fl.Field().String())
	})
	return v
}

// validateRequest checks a request DTO and returns an ErrValidation error
// whose details map each failing field to the rule it broke.
func validateRequest(op string, req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(op, ErrValidation, err.Error(), nil)
	}
	details := make(map[string]any, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldName(fe)
		details[name] = fe.Tag()
		fields = append(fields, name)
	}
	return newError(op, ErrValidation, "invalid fields: "+strings.Join(fields, ", "), details)
}

func invalid(op, field, rule string) error {
	return newError(op, ErrValidation, "invalid fields: "+field, map[string]any{field: rule})
}

// fieldName converts a namespaced Go field into snake_case, e.g.
// CreateContentRequest.MediaItemID -> media_item_id.
func fieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	var b strings.Builder
	for i, r := range ns {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && ns[i-1] != '.' && !(ns[i-1] >= 'A' && ns[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
