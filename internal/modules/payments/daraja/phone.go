package daraja

import (
	"errors"
	"strings"
)

var ErrInvalidPhone = errors.New("daraja: invalid phone number")

// NormalizePhone converts a Kenyan MSISDN into the 254XXXXXXXXX form the
// gateway requires. Accepted inputs: "+2547...", "2547...", "07...", "01...",
// "7..." and "1...", with spaces and dashes ignored.
func NormalizePhone(raw string) (string, error) {
	s := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	s = strings.TrimPrefix(s, "+")

	switch {
	case strings.HasPrefix(s, "254"):
		// already international
	case strings.HasPrefix(s, "0"):
		s = "254" + s[1:]
	case strings.HasPrefix(s, "7") || strings.HasPrefix(s, "1"):
		s = "254" + s
	default:
		return "", ErrInvalidPhone
	}

	if len(s) != 12 {
		return "", ErrInvalidPhone
	}
	if !strings.HasPrefix(s, "2547") && !strings.HasPrefix(s, "2541") {
		return "", ErrInvalidPhone
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return s, nil
}
