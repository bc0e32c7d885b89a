package lexicon

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// FuzzyOption configures a [FuzzyResolver].
type FuzzyOption func(*FuzzyResolver)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched name to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) FuzzyOption {
	return func(r *FuzzyResolver) {
		r.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the resolver falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) FuzzyOption {
	return func(r *FuzzyResolver) {
		r.fuzzyThreshold = threshold
	}
}

// FuzzyResolver resolves misheard bank, e-wallet, and provider names against
// a closed list when exact substring matching fails. STT output for brand
// names is noisy ("mandi ri", "sea bank"); the resolver combines Double
// Metaphone phonetic candidate filtering with Jaro-Winkler ranking so such
// variants still land on a canonical list entry.
//
// Exact matches always win — callers try [FindBank] / [FindEwallet] first
// and only fall back here. FuzzyResolver is read-only after construction and
// safe for concurrent use.
type FuzzyResolver struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewFuzzyResolver returns a resolver configured with the supplied options.
func NewFuzzyResolver(opts ...FuzzyOption) *FuzzyResolver {
	r := &FuzzyResolver{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve finds the entry from names most similar to the spoken text.
// Returns the canonical name and true on a confident match, or ("", false)
// when nothing clears the thresholds.
//
// text may be a whole utterance; each word and each adjacent word pair is
// tried as a candidate so "top up ke sopi pay" still resolves SHOPEEPAY.
func (r *FuzzyResolver) Resolve(text string, names []string) (string, bool) {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(tokens) == 0 || len(names) == 0 {
		return "", false
	}

	var (
		bestName  string
		bestScore float64
	)
	consider := func(candidate string) {
		name, score, ok := r.match(candidate, names)
		if ok && score > bestScore {
			bestName, bestScore = name, score
		}
	}

	for i, tok := range tokens {
		consider(tok)
		if i+1 < len(tokens) {
			consider(tok + " " + tokens[i+1])
		}
	}

	return bestName, bestName != ""
}

// match scores a single candidate word or word pair against all names.
func (r *FuzzyResolver) match(word string, names []string) (string, float64, bool) {
	wordTokens := strings.Fields(word)
	inputCodes := phoneticCodes(wordTokens)

	var (
		bestName     string
		bestScore    float64
		bestPhonetic bool
	)

	for _, name := range names {
		nameLower := strings.ToLower(name)
		nameTokens := strings.Fields(nameLower)

		phonetic := codesOverlap(inputCodes, phoneticCodes(nameTokens))
		score := bestSimilarity(wordTokens, nameTokens, word, nameLower)

		switch {
		case phonetic && score >= r.phoneticThreshold:
			if !bestPhonetic || score > bestScore {
				bestName, bestScore, bestPhonetic = name, score, true
			}
		case !phonetic && !bestPhonetic && score >= r.fuzzyThreshold && score > bestScore:
			bestName, bestScore = name, score
		}
	}

	if bestName == "" {
		return "", 0, false
	}
	return bestName, bestScore, true
}

// phoneticCodes returns the union of Double Metaphone codes for tokens.
func phoneticCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestSimilarity computes the highest Jaro-Winkler score between the input
// and the name: full strings, space-stripped strings, and the best pairwise
// token score. Space-stripping matters for split compounds ("sea bank").
func bestSimilarity(inputTokens, nameTokens []string, inputFull, nameFull string) float64 {
	score := matchr.JaroWinkler(inputFull, nameFull, false)

	if len(inputTokens) > 1 || len(nameTokens) > 1 {
		c1 := strings.Join(inputTokens, "")
		c2 := strings.Join(nameTokens, "")
		if s := matchr.JaroWinkler(c1, c2, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, nt := range nameTokens {
			if s := matchr.JaroWinkler(it, nt, false); s > score {
				score = s
			}
		}
	}
	return score
}
