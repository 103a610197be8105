package accounts

import "errors"

// Error codes attached to field validation failures.  These travel back to
// the caller in the {"error": ..., "code": ..., "field": ...} JSON shape so
// frontends can highlight the offending field.
const (
	ErrCodeMissingField     = "missing_field"
	ErrCodeInvalidUsername  = "invalid_username"
	ErrCodeInvalidEmail     = "invalid_email"
	ErrCodeInvalidPhone     = "invalid_phone"
	ErrCodeNotMobile        = "not_mobile"
	ErrCodeWeakPassword     = "weak_password"
	ErrCodePasswordMismatch = "password_mismatch"
	ErrCodeUsernameTaken    = "username_taken"
	ErrCodeEmailExists      = "email_exists"
	ErrCodeEmailNotFound    = "email_not_found"
	ErrCodeInvalidCreds     = "invalid_credentials"
	ErrCodeInvalidLanguage  = "invalid_language"
	ErrCodeInvalidGender    = "invalid_gender"
	ErrCodeInvalidDate      = "invalid_date"
)

// ErrTokenInvalid is returned when a pending-action token cannot be resolved:
// unknown key, expired entry, or a flow mismatch.  Callers treat all three
// identically (soft failure) so they share one sentinel.
var ErrTokenInvalid = errors.New("invalid or expired token")

// AuthError is a field-level validation or authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// FieldErrors accumulates per-field validation errors during form binding.
// A form is valid iff its FieldErrors is empty.
type FieldErrors []*AuthError

func (fe FieldErrors) Empty() bool { return len(fe) == 0 }

// Has reports whether any error was recorded against the given field
func (fe FieldErrors) Has(field string) bool {
	for _, e := range fe {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Get returns the first error recorded against the given field, or nil
func (fe FieldErrors) Get(field string) *AuthError {
	for _, e := range fe {
		if e.Field == field {
			return e
		}
	}
	return nil
}

func (fe *FieldErrors) add(code, message, field string) {
	*fe = append(*fe, NewAuthError(code, message, field))
}
