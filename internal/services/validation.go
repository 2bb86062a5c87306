package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minNameLength     = 2
	minPasswordLength = 6
	// bcrypt ignores everything past 72 bytes
	maxPasswordBytes = 72
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lower-cases an email. Registration, login and
// updates all go through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type fieldErrors map[string]string

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func (f fieldErrors) name(name string) {
	switch name = strings.TrimSpace(name); {
	case name == "":
		f["name"] = "Name is required"
	case utf8.RuneCountInString(name) < minNameLength:
		f["name"] = "Name must be at least 2 characters"
	}
}

func (f fieldErrors) email(email string) {
	switch {
	case email == "":
		f["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		f["email"] = "Invalid email format"
	}
}

func (f fieldErrors) password(field, password string) {
	switch {
	case password == "":
		f[field] = "Password is required"
	case utf8.RuneCountInString(password) < minPasswordLength:
		f[field] = "Password must be at least 6 characters"
	case len(password) > maxPasswordBytes:
		f[field] = "Password must be at most 72 bytes"
	}
}
