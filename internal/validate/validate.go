// Package validate holds the required-field schema for every transaction
// type and the completeness check that turns a set of populated fields into
// a missing-field list plus the follow-up question eliciting them.
//
// The schema is closed and authoritative: both the rule-based and the
// semantic extraction paths run their drafts through [Evaluate] so that
// completeness is judged in exactly one place.
package validate

import (
	"regexp"

	"github.com/jingga-app/jingga/internal/lexicon"
	"github.com/jingga-app/jingga/pkg/types"
)

// requiredFields lists each type's required slots in prompt-priority order.
// gold is special-cased in [Missing]: it is satisfied by either amount or
// grams.
var requiredFields = map[types.TransactionType][]types.FieldName{
	types.TypeTransfer: {types.FieldAmount, types.FieldBank, types.FieldAccountNumber},
	types.TypeEwallet:  {types.FieldAmount, types.FieldEwallet, types.FieldPhoneNumber},
	types.TypePulsa:    {types.FieldAmount, types.FieldPhoneNumber},
	types.TypeGold:     {types.FieldAmount},
	types.TypeToken:    {types.FieldAmount, types.FieldMeterNumber},
	types.TypeSedekah:  {types.FieldAmount},
}

// Required returns the required-field list for t in prompt-priority order.
// The returned slice must not be mutated.
func Required(t types.TransactionType) []types.FieldName {
	return requiredFields[t]
}

// Missing computes which required fields of t are absent from fields.
func Missing(t types.TransactionType, fields map[types.FieldName]string) []types.FieldName {
	if t == types.TypeGold {
		// Either denomination satisfies a gold purchase.
		if fields[types.FieldAmount] != "" || fields[types.FieldGrams] != "" {
			return nil
		}
		return []types.FieldName{types.FieldAmount}
	}

	var missing []types.FieldName
	for _, f := range requiredFields[t] {
		if fields[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Prompt selects the Indonesian follow-up question for the given gap.
// Returns "" when missing is empty. The per-type priority is fixed: joint
// phrasings are preferred when they apply, then single-field questions in
// schema order.
func Prompt(t types.TransactionType, missing []types.FieldName) string {
	if len(missing) == 0 {
		return ""
	}

	has := func(f types.FieldName) bool {
		for _, m := range missing {
			if m == f {
				return true
			}
		}
		return false
	}

	switch t {
	case types.TypeTransfer:
		switch {
		case has(types.FieldAmount):
			return "Nominalnya berapa?"
		case has(types.FieldBank) && has(types.FieldAccountNumber):
			return "Ke bank apa dan nomor rekening berapa?"
		case has(types.FieldBank):
			return "Ke bank apa?"
		case has(types.FieldAccountNumber):
			return "Nomor rekeningnya berapa?"
		}
	case types.TypeEwallet:
		switch {
		case has(types.FieldAmount) && has(types.FieldPhoneNumber):
			return "Nominal berapa dan ke nomor HP berapa?"
		case has(types.FieldAmount):
			return "Nominal berapa?"
		case has(types.FieldPhoneNumber):
			return "Ke nomor HP berapa?"
		case has(types.FieldEwallet):
			return "E-wallet apa?"
		}
	case types.TypePulsa:
		switch {
		case has(types.FieldPhoneNumber):
			return "Ke nomor HP berapa?"
		case has(types.FieldAmount):
			return "Nominal berapa?"
		}
	case types.TypeToken:
		switch {
		case has(types.FieldMeterNumber):
			return "Nomor meter PLN-nya berapa?"
		case has(types.FieldAmount):
			return "Nominal berapa?"
		}
	case types.TypeGold, types.TypeSedekah:
		if has(types.FieldAmount) {
			return "Nominal berapa?"
		}
	}
	return "Ada data yang masih kurang. Bisa sebutkan lagi?"
}

// Evaluate recomputes d's MissingFields, Prompt, and Complete flag from its
// populated fields.
//
// For pulsa drafts judged complete, a missing provider is filled in here:
// from the phone prefix when recognised, otherwise [lexicon.DefaultProvider].
// The default is applied only at this point, never at extraction time, so an
// incomplete draft does not carry a guessed provider across turns.
func Evaluate(d *types.Draft) {
	if d == nil || d.Type == "" {
		return
	}

	d.MissingFields = Missing(d.Type, d.Fields)
	d.Complete = len(d.MissingFields) == 0
	d.Prompt = Prompt(d.Type, d.MissingFields)

	if d.Complete && d.Type == types.TypePulsa {
		if _, ok := d.Field(types.FieldProvider); !ok {
			phone, _ := d.Field(types.FieldPhoneNumber)
			provider := lexicon.ProviderForPhone(phone)
			if provider == "" {
				provider = lexicon.DefaultProvider
			}
			d.Set(types.FieldProvider, provider)
		}
	}
}

// phonePattern is the Indonesian mobile number shape: optional +62/62/0
// country form, a leading 8, a non-zero second digit, then 7–10 more digits.
var phonePattern = regexp.MustCompile(`^(\+62|62|0)8[1-9][0-9]{7,10}$`)

// PhoneNumber reports whether s is a plausible Indonesian mobile number.
func PhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}
