// Package lexicon holds the closed Indonesian vocabulary used by the
// rule-based extractor and the correction resolver: bank and e-wallet name
// lists, mobile-provider prefix tables, spoken amount words, and the keyword
// sets that steer the dialogue.
//
// Everything in this package is a static lookup table with a thin matching
// function on top. Keeping lists here rather than inline in the parsers
// makes each list unit-testable on its own and keeps localisation in one
// place.
package lexicon

import "strings"

// Banks is the closed list of recognised Indonesian bank names, uppercase.
// Multi-word entries appear before their substrings would match (the
// matchers scan in order, longest alias first).
var Banks = []string{
	"CIMB NIAGA", "OCBC NISP", "STANDARD CHARTERED", "BANK JAGO",
	"NEO COMMERCE", "ALLO BANK", "LINE BANK", "MOTION BANKING",
	"BCA", "MANDIRI", "BNI", "BRI", "CIMB", "PERMATA", "DANAMON",
	"MEGA", "BTN", "BTPN", "JENIUS", "OCBC", "HSBC", "MAYBANK",
	"UOB", "PANIN", "BUKOPIN", "SINARMAS", "BSI", "MUAMALAT",
	"COMMONWEALTH", "CITIBANK", "DBS", "SEABANK", "NOBU",
	"SUPERBANK", "BNC", "DIGIBANK",
}

// Ewallets is the closed list of recognised e-wallet names, uppercase.
var Ewallets = []string{
	"GOPAYLATER", "GOPAY", "OVO", "DANA", "SHOPEEPAY", "LINKAJA",
	"ISAKU", "SAKUKU", "DOKU", "PAYPRO", "KREDIVO", "AKULAKU",
	"BLUEPAY", "TRUEMONEY", "YUKK", "ASTRAPAY",
}

// ewalletAliases maps spoken two-word variants to their canonical names.
// STT frequently splits compound brand names.
var ewalletAliases = map[string]string{
	"GO PAY":     "GOPAY",
	"GO-PAY":     "GOPAY",
	"SHOPEE PAY": "SHOPEEPAY",
	"LINK AJA":   "LINKAJA",
}

// Providers is the closed list of mobile providers, uppercase.
var Providers = []string{
	"TELKOMSEL", "INDOSAT", "XL", "AXIS", "TRI", "SMARTFREN",
}

// providerPrefixes maps each provider to its 4-digit phone number prefixes.
var providerPrefixes = map[string][]string{
	"TELKOMSEL": {"0811", "0812", "0813", "0821", "0822", "0823", "0851", "0852", "0853"},
	"INDOSAT":   {"0814", "0815", "0816", "0855", "0856", "0857", "0858"},
	"XL":        {"0817", "0818", "0819", "0859", "0877", "0878"},
	"AXIS":      {"0831", "0832", "0833", "0838"},
	"TRI":       {"0895", "0896", "0897", "0898", "0899"},
	"SMARTFREN": {"0881", "0882", "0883", "0884", "0885", "0886", "0887", "0888", "0889"},
}

// DefaultProvider is assumed when a pulsa phone number carries an unknown
// prefix. Applied only when a draft is judged complete, not at extraction.
const DefaultProvider = "TELKOMSEL"

// amountWords maps spoken Indonesian amount phrases to their rupiah value.
// This is the last-resort amount grammar; numeric forms are parsed first.
// Phrases are matched with flexible whitespace by the amount parser.
var amountWords = []struct {
	Phrase string
	Value  int64
}{
	{"seratus ribu", 100_000},
	{"dua ratus ribu", 200_000},
	{"tiga ratus ribu", 300_000},
	{"empat ratus ribu", 400_000},
	{"lima ratus ribu", 500_000},
	{"enam ratus ribu", 600_000},
	{"tujuh ratus ribu", 700_000},
	{"delapan ratus ribu", 800_000},
	{"sembilan ratus ribu", 900_000},
	{"satu juta", 1_000_000},
	{"dua juta", 2_000_000},
	{"lima juta", 5_000_000},
	{"sepuluh ribu", 10_000},
	{"dua puluh ribu", 20_000},
	{"lima puluh ribu", 50_000},
}

// AmountWords returns the spoken amount table in match order.
func AmountWords() []struct {
	Phrase string
	Value  int64
} {
	return amountWords
}

// FindBank returns the canonical bank name contained in text, or "" when
// none of the closed list matches. Matching is case-insensitive substring
// search; multi-word names are tried before their single-word substrings.
func FindBank(text string) string {
	upper := strings.ToUpper(text)
	for _, bank := range Banks {
		if strings.Contains(upper, bank) {
			return bank
		}
	}
	return ""
}

// FindEwallet returns the canonical e-wallet name contained in text, or ""
// when none matches. Two-word spoken aliases ("GO PAY") are normalised to
// their canonical form before lookup.
func FindEwallet(text string) string {
	upper := strings.ToUpper(text)
	for _, w := range Ewallets {
		if strings.Contains(upper, w) {
			return w
		}
	}
	for alias, canonical := range ewalletAliases {
		if strings.Contains(upper, alias) {
			return canonical
		}
	}
	return ""
}

// FindProvider returns the provider name contained in text, or "".
func FindProvider(text string) string {
	upper := strings.ToUpper(text)
	for _, p := range Providers {
		if strings.Contains(upper, p) {
			return p
		}
	}
	return ""
}

// ProviderForPhone derives the mobile provider from the 4-digit prefix of
// phone. Returns "" when the prefix is not in the table — callers decide
// whether to fall back to [DefaultProvider].
func ProviderForPhone(phone string) string {
	if len(phone) < 4 {
		return ""
	}
	prefix := phone[:4]
	for provider, prefixes := range providerPrefixes {
		for _, p := range prefixes {
			if p == prefix {
				return provider
			}
		}
	}
	return ""
}
