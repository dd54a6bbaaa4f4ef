package auth

import "strings"

// MaskPhone hides the middle of a phone number for display:
// "+998901234567" -> "+998***4567". Inputs shorter than 8 characters are
// returned unchanged.
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return phone
	}
	return phone[:4] + "***" + phone[len(phone)-4:]
}

// FormatPhone normalizes raw user input to the +998XXXXXXXXX form used as
// the canonical phone format. Unrecognized shapes keep their digits with a
// leading plus.
func FormatPhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "998") && len(digits) == 12:
		return "+" + digits
	case len(digits) == 9:
		return "+998" + digits
	case digits == "":
		return ""
	default:
		return "+" + digits
	}
}
