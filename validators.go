package accounts

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Username rules: starts with a letter, body is letters/digits, at most one
// _ or - separator before a trailing letter/digit run.
var usernameRegex = regexp.MustCompile(`^[a-z]+[a-z0-9]+[_-]?[a-z0-9]+$`)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var digitsOnlyRegex = regexp.MustCompile(`^[0-9]+$`)

// Regional alias domains that all resolve to the same canonical mailbox.
// Rewritten before syntactic validation so the canonical form is what gets
// stored and checked for duplicates.
var emailAliasDomains = map[string]bool{
	"ya.ru":      true,
	"yandex.by":  true,
	"yandex.com": true,
	"yandex.kz":  true,
	"yandex.ua":  true,
}

const canonicalEmailDomain = "yandex.ru"

// NormalizeMobileNumber validates a digits-only phone number and returns it
// in canonical +<digits> form.  Numbers whose carrier type is not mobile
// (e.g. landlines) are rejected.
func NormalizeMobileNumber(input string) (string, *AuthError) {
	input = strings.TrimSpace(input)
	if !digitsOnlyRegex.MatchString(input) {
		return "", NewAuthError(ErrCodeInvalidPhone, "Invalid mobile phone number", "phone")
	}

	num, err := phonenumbers.Parse("+"+input, "")
	if err != nil {
		return "", NewAuthError(ErrCodeInvalidPhone, "Invalid mobile phone number", "phone")
	}

	switch phonenumbers.GetNumberType(num) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE, phonenumbers.PAGER:
		return "+" + input, nil
	default:
		return "", NewAuthError(ErrCodeNotMobile, "Invalid mobile phone number", "phone")
	}
}

// NormalizeUsername lowercases and trims the input and checks it against the
// username pattern
func NormalizeUsername(input string) (string, *AuthError) {
	username := strings.ToLower(strings.TrimSpace(input))
	if !usernameRegex.MatchString(username) {
		return "", NewAuthError(ErrCodeInvalidUsername,
			"Enter a valid username. This value may contain only English letters, numbers, and _ - characters. Username should not begin with a number.",
			"username")
	}
	return username, nil
}

// NormalizeEmail lowercases and trims the input, rewrites known alias
// domains to the canonical domain, then validates the syntax.
func NormalizeEmail(input string) (string, *AuthError) {
	email := strings.ToLower(strings.TrimSpace(input))

	if at := strings.LastIndex(email, "@"); at >= 0 {
		local, domain := email[:at], email[at+1:]
		if emailAliasDomains[domain] {
			email = local + "@" + canonicalEmailDomain
		}
	}

	if !emailRegex.MatchString(email) {
		return "", NewAuthError(ErrCodeInvalidEmail, "Enter a valid email address.", "email")
	}
	return email, nil
}

// ValidatePassword rejects passwords containing anything outside the
// printable ASCII range.  Everything else passes through untouched.
func ValidatePassword(input string) *AuthError {
	if input == "" {
		return NewAuthError(ErrCodeMissingField, "Password is required", "password")
	}
	for _, r := range input {
		if r < 0x20 || r > 0x7e {
			return NewAuthError(ErrCodeWeakPassword,
				"Password may contain only printable ASCII characters", "password")
		}
	}
	return nil
}

// CheckUsernameAvailable performs a case-insensitive existence check against
// the user store
func CheckUsernameAvailable(store UserStore, username string) *AuthError {
	username = strings.ToLower(strings.TrimSpace(username))
	if _, err := store.GetAccountByUsername(username); err == nil {
		return NewAuthError(ErrCodeUsernameTaken, "A user with that username already exists.", "username")
	}
	return nil
}

// CheckEmailAvailable performs a case-insensitive existence check against
// the user store, normalizing alias domains first
func CheckEmailAvailable(store UserStore, email string) *AuthError {
	email, authErr := NormalizeEmail(email)
	if authErr != nil {
		return authErr
	}
	if _, err := store.GetAccountByEmail(email); err == nil {
		return NewAuthError(ErrCodeEmailExists, "User with this email already exists.", "email")
	}
	return nil
}

// CheckEmailExists is the inverse of CheckEmailAvailable, used by the
// forgot-password form
func CheckEmailExists(store UserStore, email string) *AuthError {
	email, authErr := NormalizeEmail(email)
	if authErr != nil {
		return authErr
	}
	if _, err := store.GetAccountByEmail(email); err != nil {
		return NewAuthError(ErrCodeEmailNotFound, "User with this email address does not exist.", "email")
	}
	return nil
}
