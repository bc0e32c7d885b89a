package dialogue

import "strings"

// Keyword is the pre-extraction classification of an utterance in the
// confirmation and correction states.
type Keyword int

const (
	// KeywordNone means the utterance matched no keyword set.
	KeywordNone Keyword = iota

	// KeywordCorrection rejects the read-back and opens a correction session.
	KeywordCorrection

	// KeywordCancel aborts the whole transaction.
	KeywordCancel

	// KeywordConfirm accepts the read-back.
	KeywordConfirm
)

// The three keyword sets. Matching is case-insensitive substring search, so
// short multi-purpose words ("ya") match inside longer ones; the check order
// in ClassifyKeyword keeps correction and cancel ahead of confirmation so a
// rejection is never swallowed by an embedded "ya" or "ok".
var (
	correctionWords = []string{"salah", "koreksi", "ganti"}
	cancelWords     = []string{"batal", "ulangi", "cancel", "tidak"}
	confirmWords    = []string{"konfirmasi", "confirm", "ya", "oke", "ok", "lanjut", "benar", "betul"}
)

// ClassifyKeyword classifies text against the three keyword sets in fixed
// priority order: correction, cancel, confirm. Returns KeywordNone when no
// set matches.
func ClassifyKeyword(text string) Keyword {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return KeywordNone
	}
	if containsAny(lower, correctionWords) {
		return KeywordCorrection
	}
	if containsAny(lower, cancelWords) {
		return KeywordCancel
	}
	if containsAny(lower, confirmWords) {
		return KeywordConfirm
	}
	return KeywordNone
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
