// Package rules implements the deterministic, pattern-based field extractor.
//
// The parser classifies an utterance into a transaction type by keyword
// (first match wins over a fixed order), then runs only the entity
// extractors relevant to that type. It never errors on unrecognisable
// input — it returns an unclassified [extract.Result] so the dialogue engine
// can defer to the semantic fallback.
package rules

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jingga-app/jingga/internal/extract"
	"github.com/jingga-app/jingga/internal/lexicon"
	"github.com/jingga-app/jingga/internal/validate"
	"github.com/jingga-app/jingga/pkg/types"
)

// defaultGramDivisor approximates the rupiah price of one gram of gold,
// used to estimate grams when the user states only an amount. A rough
// heuristic, deliberately configurable rather than a business constant.
const defaultGramDivisor = 1_000_000

// gramsPattern matches an explicit gram statement ("2 gram", "2,5 gr").
var gramsPattern = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*(?:gram|gr)\b`)

// Compile-time check that *Parser satisfies [extract.Extractor].
var _ extract.Extractor = (*Parser)(nil)

// Option configures a [Parser].
type Option func(*Parser)

// WithGramDivisor overrides the rupiah-per-gram divisor used for gold gram
// estimation. The default is 1 000 000.
func WithGramDivisor(divisor int64) Option {
	return func(p *Parser) {
		if divisor > 0 {
			p.gramDivisor = divisor
		}
	}
}

// Parser is the rule-based field extractor. It is read-only after
// construction and safe for concurrent use.
type Parser struct {
	gramDivisor int64
}

// NewParser returns a Parser with the supplied options applied.
func NewParser(opts ...Option) *Parser {
	p := &Parser{gramDivisor: defaultGramDivisor}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Extract classifies text and populates a draft with every field its type's
// extractors can find. Returns an unclassified result when no transaction
// keyword matches or when classification succeeds but not a single field
// could be extracted — in both cases the semantic fallback sees the
// utterance instead.
//
// convCtx is ignored: cross-turn continuation is the merger's concern, not
// the rule parser's. The error return is always nil; it exists to satisfy
// [extract.Extractor].
func (p *Parser) Extract(_ context.Context, text string, _ *types.Context) (extract.Result, error) {
	t := classify(text)
	if t == "" {
		return extract.Unclassified(), nil
	}

	draft := types.NewDraft(t)
	switch t {
	case types.TypeTransfer:
		setIf(draft, types.FieldAmount, parseAmountOrEmpty(text))
		setIf(draft, types.FieldBank, lexicon.FindBank(text))
		setIf(draft, types.FieldAccountNumber, ExtractAccountNumber(text))

	case types.TypeEwallet:
		setIf(draft, types.FieldAmount, parseAmountOrEmpty(text))
		setIf(draft, types.FieldEwallet, lexicon.FindEwallet(text))
		setIf(draft, types.FieldPhoneNumber, ExtractPhoneNumber(text))

	case types.TypePulsa:
		setIf(draft, types.FieldAmount, parseAmountOrEmpty(text))
		phone := ExtractPhoneNumber(text)
		setIf(draft, types.FieldPhoneNumber, phone)
		// Only a recognised prefix sets the provider here; the TELKOMSEL
		// default is applied by the validator once the draft completes.
		if phone != "" {
			setIf(draft, types.FieldProvider, lexicon.ProviderForPhone(phone))
		}

	case types.TypeToken:
		setIf(draft, types.FieldAmount, parseAmountOrEmpty(text))
		setIf(draft, types.FieldMeterNumber, ExtractMeterNumber(text))

	case types.TypeGold:
		amount := parseAmountOrEmpty(text)
		setIf(draft, types.FieldAmount, amount)
		grams := extractGrams(text)
		if grams == "" && amount != "" {
			grams = p.estimateGrams(amount)
		}
		setIf(draft, types.FieldGrams, grams)
	}

	if len(draft.Fields) == 0 {
		return extract.Unclassified(), nil
	}

	validate.Evaluate(draft)
	return extract.Classified(draft), nil
}

// classify determines the transaction type by keyword, first match wins.
// The order is fixed; "transfer 100rb buat beli pulsa" is a transfer.
func classify(text string) types.TransactionType {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "transfer") || strings.Contains(lower, "kirim"):
		return types.TypeTransfer
	case hasTopUpIntent(lower) && lexicon.FindEwallet(text) != "":
		return types.TypeEwallet
	case strings.Contains(lower, "pulsa") || strings.Contains(lower, "paket data"):
		return types.TypePulsa
	case strings.Contains(lower, "emas") || strings.Contains(lower, "gold"):
		return types.TypeGold
	case strings.Contains(lower, "token") || strings.Contains(lower, "listrik") || strings.Contains(lower, "pln"):
		return types.TypeToken
	}
	return ""
}

// hasTopUpIntent reports whether the utterance carries a top-up verb.
// The verb alone never classifies; an e-wallet name must co-occur.
func hasTopUpIntent(lower string) bool {
	return strings.Contains(lower, "top up") ||
		strings.Contains(lower, "topup") ||
		strings.Contains(lower, "isi")
}

// extractGrams returns an explicitly stated gram quantity, or "".
func extractGrams(text string) string {
	m := gramsPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], ",", ".")
}

// estimateGrams derives grams from a rupiah amount via the configured
// divisor.
func (p *Parser) estimateGrams(amount string) string {
	n, err := strconv.ParseInt(amount, 10, 64)
	if err != nil {
		return ""
	}
	return strconv.FormatInt(int64(math.Round(float64(n)/float64(p.gramDivisor))), 10)
}

func parseAmountOrEmpty(text string) string {
	amount, ok := ParseAmount(text)
	if !ok {
		return ""
	}
	return amount
}

func setIf(d *types.Draft, f types.FieldName, v string) {
	if v != "" {
		d.Set(f, v)
	}
}
