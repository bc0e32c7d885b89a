package dialogue

import (
	"regexp"
	"strings"

	"github.com/jingga-app/jingga/internal/extract/rules"
	"github.com/jingga-app/jingga/internal/lexicon"
	"github.com/jingga-app/jingga/pkg/types"
)

// Session is the transient correction sub-state entered after a confirmation
// is rejected. While TargetField is empty the session is in "which field"
// mode; once set it awaits one utterance supplying the replacement value.
type Session struct {
	TargetField types.FieldName
}

// Selecting reports whether the session is still waiting for the user to
// name the wrong field.
func (s *Session) Selecting() bool {
	return s.TargetField == ""
}

// fieldKeywords maps spoken field references to draft fields, per type.
// Order matters: the first matching keyword wins, so for transfer "nomor"
// resolves to the account number, not the amount.
var fieldKeywords = map[types.TransactionType][]struct {
	word  string
	field types.FieldName
}{
	types.TypeTransfer: {
		{"bank", types.FieldBank},
		{"rekening", types.FieldAccountNumber},
		{"nomor", types.FieldAccountNumber},
		{"nominal", types.FieldAmount},
		{"jumlah", types.FieldAmount},
	},
	types.TypeEwallet: {
		{"wallet", types.FieldEwallet},
		{"ewallet", types.FieldEwallet},
		{"hp", types.FieldPhoneNumber},
		{"nomor", types.FieldPhoneNumber},
		{"telepon", types.FieldPhoneNumber},
		{"nominal", types.FieldAmount},
		{"jumlah", types.FieldAmount},
	},
	types.TypePulsa: {
		{"provider", types.FieldProvider},
		{"hp", types.FieldPhoneNumber},
		{"nomor", types.FieldPhoneNumber},
		{"telepon", types.FieldPhoneNumber},
		{"nominal", types.FieldAmount},
		{"jumlah", types.FieldAmount},
	},
	types.TypeGold: {
		{"gram", types.FieldGrams},
		{"nominal", types.FieldAmount},
		{"jumlah", types.FieldAmount},
	},
	types.TypeToken: {
		{"meter", types.FieldMeterNumber},
		{"nominal", types.FieldAmount},
		{"jumlah", types.FieldAmount},
	},
	types.TypeSedekah: {
		{"nominal", types.FieldAmount},
		{"jumlah", types.FieldAmount},
	},
}

// SelectField resolves which field the user wants to correct from their
// utterance, using the per-type keyword table. Returns false when no keyword
// matches; the caller re-issues the "which field" prompt rather than
// guessing.
func SelectField(t types.TransactionType, text string) (types.FieldName, bool) {
	lower := strings.ToLower(text)
	for _, kw := range fieldKeywords[t] {
		if strings.Contains(lower, kw.word) {
			return kw.field, true
		}
	}
	return "", false
}

// Correction value name tables. These carry the display casing used in
// confirmation read-back, which differs from the extraction lexicon's
// all-caps canonical forms. First match wins.
var (
	bankValues = []struct{ word, canonical string }{
		{"bca", "BCA"}, {"bni", "BNI"}, {"bri", "BRI"},
		{"mandiri", "Mandiri"}, {"cimb", "CIMB"}, {"danamon", "Danamon"},
		{"permata", "Permata"}, {"btn", "BTN"}, {"ocbc", "OCBC"},
		{"maybank", "Maybank"}, {"panin", "Panin"}, {"mega", "Mega"},
		{"bukopin", "Bukopin"}, {"sinarmas", "Sinarmas"},
	}
	ewalletValues = []struct{ word, canonical string }{
		{"gopay", "GoPay"}, {"ovo", "OVO"}, {"dana", "Dana"},
		{"shopeepay", "ShopeePay"}, {"shopee", "ShopeePay"},
		{"linkaja", "LinkAja"},
	}
	providerValues = []struct{ word, canonical string }{
		{"telkomsel", "Telkomsel"}, {"xl", "XL"}, {"indosat", "Indosat"},
		{"tri", "Tri"}, {"three", "Tri"}, {"smartfren", "Smartfren"},
		{"axis", "Axis"},
	}
)

var gramsValuePattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// Resolver parses replacement values in a correction session using
// field-specific grammars. The fuzzy resolver catches misheard entity names
// that the substring tables miss ("mandiri" heard as "man diri").
type Resolver struct {
	fuzzy *lexicon.FuzzyResolver
}

// NewResolver returns a correction value resolver. fuzzy may be nil to
// disable phonetic fallback.
func NewResolver(fuzzy *lexicon.FuzzyResolver) *Resolver {
	return &Resolver{fuzzy: fuzzy}
}

// ParseValue extracts the replacement value for field from one finalized
// utterance. Returns false when nothing parseable is found; the caller
// re-prompts for the same field without discarding the session.
func (r *Resolver) ParseValue(field types.FieldName, text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return "", false
	}

	switch field {
	case types.FieldBank:
		if v, ok := matchValue(lower, bankValues); ok {
			return v, true
		}
		if r.fuzzy != nil {
			if v, ok := r.fuzzy.Resolve(lower, lexicon.Banks); ok {
				return v, true
			}
		}
		// Unrecognised bank names pass through verbatim.
		return strings.ToUpper(lower), true

	case types.FieldEwallet:
		if v, ok := matchValue(lower, ewalletValues); ok {
			return v, true
		}
		if r.fuzzy != nil {
			if v, ok := r.fuzzy.Resolve(lower, lexicon.Ewallets); ok {
				return v, true
			}
		}
		return "", false

	case types.FieldProvider:
		if v, ok := matchValue(lower, providerValues); ok {
			return v, true
		}
		if r.fuzzy != nil {
			if v, ok := r.fuzzy.Resolve(lower, lexicon.Providers); ok {
				return v, true
			}
		}
		return "", false

	case types.FieldAmount:
		if v, ok := rules.ParseAmount(lower); ok {
			return v, true
		}
		if digits := rules.ExtractDigits(lower); digits != "" {
			return digits, true
		}
		return "", false

	case types.FieldAccountNumber, types.FieldPhoneNumber, types.FieldMeterNumber:
		if digits := rules.ExtractDigits(lower); digits != "" {
			return digits, true
		}
		return "", false

	case types.FieldGrams:
		if m := gramsValuePattern.FindString(lower); m != "" {
			return strings.ReplaceAll(m, ",", "."), true
		}
		return "", false
	}

	return "", false
}

func matchValue(lower string, table []struct{ word, canonical string }) (string, bool) {
	for _, entry := range table {
		if strings.Contains(lower, entry.word) {
			return entry.canonical, true
		}
	}
	return "", false
}
