package email

import (
	"strings"
	"unicode"
)

// Normalize trims surrounding whitespace and lower-cases the domain part of an
// address. The local part keeps its case, matching how mail servers treat it.
func Normalize(address string) string {
	address = strings.TrimSpace(address)
	at := strings.LastIndexByte(address, '@')
	if at <= 0 {
		return address
	}
	return address[:at] + "@" + strings.ToLower(address[at+1:])
}

// DeriveNameFromEmail guesses first and last name from the local part, used
// when an account is created without names (bootstrap admin, CLI).
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "Usuario", ""
	}

	first := capitalize(parts[0])
	last := ""
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
