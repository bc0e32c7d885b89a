package rules

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jingga-app/jingga/internal/lexicon"
)

// Amount grammar, in priority order:
//
//  1. numeral + ribu/rb/k     → ×1 000
//  2. numeral + juta/jt       → ×1 000 000
//  3. separator-grouped run   → separators stripped ("1.230.500" → 1230500)
//  4. plain run of ≥4 digits  → verbatim
//  5. spoken amount words     → closed table in the lexicon
//
// The numeral in forms 1 and 2 accepts a decimal comma or point ("2,5jt").
var (
	ribuPattern    = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:ribu|rb|k)\b`)
	jutaPattern    = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:juta|jt)\b`)
	groupedPattern = regexp.MustCompile(`\b\d{1,3}(?:[.,]\d{3})+\b`)
	plainPattern   = regexp.MustCompile(`\b\d{4,}\b`)
)

// wordPatterns holds the spoken-amount table compiled to whitespace-tolerant
// patterns ("dua puluh ribu" matches "duapuluh ribu" as STT splits vary).
var wordPatterns = func() []struct {
	re    *regexp.Regexp
	value int64
} {
	words := lexicon.AmountWords()
	out := make([]struct {
		re    *regexp.Regexp
		value int64
	}, len(words))
	for i, w := range words {
		expr := `(?i)` + strings.Join(strings.Fields(w.Phrase), `\s*`)
		out[i].re = regexp.MustCompile(expr)
		out[i].value = w.Value
	}
	return out
}()

// ParseAmount extracts a rupiah amount from utterance text, returning the
// value as a plain digit string. The second return is false when no grammar
// form matches.
func ParseAmount(text string) (string, bool) {
	if m := ribuPattern.FindStringSubmatch(text); m != nil {
		return scaled(m[1], 1_000), true
	}
	if m := jutaPattern.FindStringSubmatch(text); m != nil {
		return scaled(m[1], 1_000_000), true
	}
	if m := groupedPattern.FindString(text); m != "" {
		stripped := strings.NewReplacer(".", "", ",", "").Replace(m)
		return stripped, true
	}
	if m := plainPattern.FindString(text); m != "" {
		return m, true
	}
	for _, w := range wordPatterns {
		if w.re.MatchString(text) {
			return strconv.FormatInt(w.value, 10), true
		}
	}
	return "", false
}

// scaled parses a numeral that may carry a decimal comma and multiplies it
// by factor, rounding to the nearest rupiah.
func scaled(numeral string, factor float64) string {
	f, err := strconv.ParseFloat(strings.ReplaceAll(numeral, ",", "."), 64)
	if err != nil {
		return ""
	}
	return strconv.FormatInt(int64(math.Round(f*factor)), 10)
}
