package validate

/*
				Calliper Input Validation
	Pure accept/reject classification for usernames, emails and passwords.
	These functions never mutate their input and never panic; they return a
	Result with a short, user-facing reason on rejection.
*/

import (
	"regexp"
	"strings"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 30
	EmailMaxLength    = 254
	PasswordMinLength = 8
	PasswordMaxLength = 128
)

// Result is the outcome of a single validation. Reason is only set when
// Valid is false.
type Result struct {
	Valid  bool
	Reason string
}

func ok() Result {
	return Result{Valid: true}
}

func reject(reason string) Result {
	return Result{Valid: false, Reason: reason}
}

// reservedUsernames can never be claimed, compared case-insensitively
var reservedUsernames = map[string]struct{}{
	"admin": {}, "administrator": {}, "root": {}, "system": {},
	"api": {}, "www": {}, "mail": {}, "ftp": {},
	"null": {}, "undefined": {}, "true": {}, "false": {},
	"delete": {}, "remove": {}, "update": {}, "create": {},
	"login": {}, "logout": {}, "register": {}, "profile": {},
	"settings": {}, "config": {}, "error": {},
}

var (
	usernamePattern     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	usernameEdgePattern = regexp.MustCompile(`^[_-]|[_-]$`)
	emailPattern        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	emailUnsafeChars    = regexp.MustCompile(`[<>'"\\]`)
	multiWhitespace     = regexp.MustCompile(`\s{2,}`)
)

// Username accepts 3-30 characters of [a-zA-Z0-9_-] that do not start or
// end with _ or -, are not reserved and trip no injection rule.
func Username(username string) Result {
	if username == "" {
		return reject("Username is required")
	}

	trimmed := strings.TrimSpace(username)

	if len(trimmed) < UsernameMinLength {
		return reject("Username must be at least 3 characters")
	}
	if len(trimmed) > UsernameMaxLength {
		return reject("Username cannot exceed 30 characters")
	}

	if !usernamePattern.MatchString(trimmed) {
		return reject("Username may only contain letters, numbers, underscores (_) and hyphens (-)")
	}

	if usernameEdgePattern.MatchString(trimmed) {
		return reject("Username cannot start or end with an underscore or hyphen")
	}

	if _, reserved := reservedUsernames[strings.ToLower(trimmed)]; reserved {
		return reject("This username is not available")
	}

	if ContainsDangerous(trimmed) {
		return reject("Username is not valid")
	}

	return ok()
}

// Email accepts a basic local@domain.tld shape up to 254 characters with no
// quoting characters, no doubled whitespace and no injection patterns.
func Email(email string) Result {
	if email == "" {
		return reject("Email is required")
	}

	trimmed := strings.TrimSpace(email)

	if len(trimmed) > EmailMaxLength {
		return reject("Email is too long")
	}

	if !emailPattern.MatchString(trimmed) {
		return reject("Email format is not valid")
	}

	if emailUnsafeChars.MatchString(trimmed) {
		return reject("Email contains invalid characters")
	}

	if ContainsDangerous(trimmed) {
		return reject("Email is not valid")
	}

	if multiWhitespace.MatchString(trimmed) {
		return reject("Email is not valid")
	}

	return ok()
}

// Password accepts 8-128 printable ASCII characters. With requireComplexity
// it additionally demands an uppercase letter, a lowercase letter and a
// digit.
func Password(password string, requireComplexity bool) Result {
	if password == "" {
		return reject("Password is required")
	}

	if len(password) < PasswordMinLength {
		return reject("Password must be at least 8 characters")
	}
	if len(password) > PasswordMaxLength {
		return reject("Password is too long (maximum 128 characters)")
	}

	if requireComplexity {
		var hasUpper, hasLower, hasDigit bool
		for _, r := range password {
			switch {
			case r >= 'A' && r <= 'Z':
				hasUpper = true
			case r >= 'a' && r <= 'z':
				hasLower = true
			case r >= '0' && r <= '9':
				hasDigit = true
			}
		}
		if !hasUpper {
			return reject("Password must contain at least one uppercase letter (A-Z)")
		}
		if !hasLower {
			return reject("Password must contain at least one lowercase letter (a-z)")
		}
		if !hasDigit {
			return reject("Password must contain at least one number (0-9)")
		}
	}

	for _, r := range password {
		if r < 0x20 || r > 0x7E {
			return reject("Password may only contain printable ASCII characters")
		}
	}

	return ok()
}
