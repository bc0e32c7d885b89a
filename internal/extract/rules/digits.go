package rules

import (
	"regexp"
	"strings"
)

// Digit-run extractors. The three patterns overlap by construction — a
// single long run in an utterance may satisfy more than one of them. The
// caller disambiguates by transaction type; the extractors themselves never
// guess which field a run belongs to.
var (
	phonePattern   = regexp.MustCompile(`\b(0\d{9,12}|\d{9,12})\b`)
	accountPattern = regexp.MustCompile(`\b(\d{10,16})\b`)
	meterPattern   = regexp.MustCompile(`\b(\d{11,12})\b`)
)

// ExtractPhoneNumber returns the first phone-shaped digit run in text,
// normalised with a leading zero. Returns "" when none is found.
func ExtractPhoneNumber(text string) string {
	m := phonePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	phone := m[1]
	if !strings.HasPrefix(phone, "0") {
		phone = "0" + phone
	}
	return phone
}

// ExtractAccountNumber returns the first 10–16 digit run in text, or "".
func ExtractAccountNumber(text string) string {
	m := accountPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractMeterNumber returns the first 11–12 digit run in text, or "".
// PLN meter numbers are 11 or 12 digits.
func ExtractMeterNumber(text string) string {
	m := meterPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractDigits strips everything but digits from text. Used by the
// correction value grammar, where the whole utterance is the field value.
func ExtractDigits(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
