package simplepublish

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by a service wraps exactly one of these.
var (
	// ErrNotFound indicates the record does not exist, belongs to another
	// creator, or was soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a slug collision within the applicable scope.
	ErrConflict = errors.New("conflict")

	// ErrVersionConflict indicates the caller updated a stale version.
	ErrVersionConflict = errors.New("version conflict")

	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrBusinessLogic indicates a well-formed request that breaks a
	// lifecycle rule.
	ErrBusinessLogic = errors.New("business rule violated")

	// ErrMediaNotReady indicates publish was gated on media processing.
	// errors.Is(ErrMediaNotReady, ErrBusinessLogic) holds.
	ErrMediaNotReady = fmt.Errorf("%w: media not ready", ErrBusinessLogic)

	// ErrForbidden indicates the actor lacks authorization for the scope.
	ErrForbidden = errors.New("forbidden")

	// ErrInternal hides unexpected failures from callers.
	ErrInternal = errors.New("internal error")
)

// Repository-level sentinels. Services translate these before returning.
var (
	// ErrRecordNotFound is returned by repositories on a miss.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned by repositories on a unique constraint hit.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStaleVersion is returned by repositories when a versioned update
	// matched no row.
	ErrStaleVersion = errors.New("stale version")

	// ErrValueTooLong is returned by repositories when a value exceeds its
	// column width.
	ErrValueTooLong = errors.New("value too long")

	// ErrObjectMissing is returned by a MediaStore when the key is absent.
	ErrObjectMissing = errors.New("object missing from storage")
)

// Error is the single error type crossing the service boundary.
type Error struct {
	Op      string
	Kind    error
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(op string, kind error, msg string, details map[string]any) *Error {
	return &Error{Op: op, Kind: kind, Message: msg, Details: details}
}

// DetailsOf returns the structured context attached to err, if any.
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// HTTPStatus maps an error to a transport status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrBusinessLogic):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Code maps an error to a stable machine-readable code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrMediaNotReady):
		return "media_not_ready"
	case errors.Is(err, ErrBusinessLogic):
		return "business_logic_error"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal_error"
	}
}
