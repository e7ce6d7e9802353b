package utils

import "strings"

// NormalizePhone reduces a caller-supplied phone number to canonical E.164-ish
// form. Returns the empty string when no digits are present.
//
// Callers frequently speak numbers with punctuation ("(555) 123-4567") or a
// leading trunk digit ("1-555-123-4567"); both collapse to the same canonical
// value so directory lookups can use exact matching.
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	d := digits.String()
	if d == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "+") {
		return "+" + d
	}

	if len(d) == 11 && strings.HasPrefix(d, "1") {
		return "+" + d
	}

	if len(d) == 10 {
		return "+1" + d
	}

	return "+" + d
}

// DigitCount returns the number of decimal digits in s.
func DigitCount(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}

// NormalizeEmail lowercases an address and strips ALL whitespace. Voice
// transcription tends to insert spaces inside spoken addresses
// ("jacob n palmer@gmail.com"), so interior whitespace is removed too.
func NormalizeEmail(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(lowered), "")
}

// NormalizeName lowercases a name and collapses runs of whitespace to a
// single space.
func NormalizeName(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(lowered), " ")
}
