package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go-contact-api/pkg/apierror"
)

const (
	maxRegisterNameLength = 200
	maxAdminNameLength    = 255
	maxEmailLength        = 255
	minPasswordLength     = 6
	// bcrypt only looks at the first 72 bytes.
	maxPasswordLength = 72
	passwordSymbols   = "@$!%*#?&_"
)

func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}

	return addr.Name == "" && addr.Address == email && strings.Contains(addr.Address, "@")
}

// strongPassword requires at least one lower case letter, one upper case
// letter, one digit and one symbol, with nothing outside those classes.
func strongPassword(password string) bool {
	var lower, upper, digit, symbol bool

	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		default:
			return false
		}
	}

	return lower && upper && digit && symbol
}

func checkName(fields apierror.FieldErrors, name string, max int) {
	switch {
	case name == "":
		fields.Add("name", "The name field is required.")
	case utf8.RuneCountInString(name) > max:
		fields.Add("name", fmt.Sprintf("The name may not be greater than %d characters.", max))
	}
}

func checkEmailFormat(fields apierror.FieldErrors, email string) bool {
	switch {
	case email == "":
		fields.Add("email", "The email field is required.")
		return false
	case !validEmail(email):
		fields.Add("email", "The email must be a valid email address.")
		return false
	}
	return true
}

func checkPasswordLength(fields apierror.FieldErrors, password string) bool {
	switch {
	case password == "":
		fields.Add("password", "The password field is required.")
		return false
	case utf8.RuneCountInString(password) < minPasswordLength:
		fields.Add("password", "The password must be at least 6 characters.")
		return false
	case len(password) > maxPasswordLength:
		fields.Add("password", "The password may not be greater than 72 bytes.")
		return false
	}
	return true
}
