// Package types defines the shared transaction types used across all Jingga
// packages.
//
// These types form the lingua franca between the extractors, the dialogue
// engine, the gateway, and the payment boundary. They are intentionally
// minimal — each package defines its own domain types, but cross-cutting data
// structures live here to avoid circular imports.
package types

import "time"

// TransactionType identifies what kind of financial transaction the user is
// building. The set is closed: new types require a schema entry in the
// validate package and an enablement entry in the configuration.
type TransactionType string

const (
	// TypeTransfer is an interbank transfer to an account number.
	TypeTransfer TransactionType = "transfer"

	// TypeEwallet is an e-wallet top-up (GoPay, OVO, DANA, ...).
	TypeEwallet TransactionType = "ewallet"

	// TypePulsa is a mobile-credit purchase. The provider field is derived
	// from the phone number prefix, never asked for.
	TypePulsa TransactionType = "pulsa"

	// TypeGold is a digital gold purchase, denominated in rupiah or grams.
	TypeGold TransactionType = "gold"

	// TypeToken is a PLN prepaid electricity token purchase.
	TypeToken TransactionType = "token"

	// TypeSedekah is a donation. Present in configuration but gated off by
	// default; extraction results of a disabled type are rejected.
	TypeSedekah TransactionType = "sedekah"
)

// AllTypes lists every recognised transaction type in display order.
var AllTypes = []TransactionType{
	TypeTransfer, TypeEwallet, TypePulsa, TypeGold, TypeToken, TypeSedekah,
}

// IsValid reports whether t is a recognised transaction type.
func (t TransactionType) IsValid() bool {
	switch t {
	case TypeTransfer, TypeEwallet, TypePulsa, TypeGold, TypeToken, TypeSedekah:
		return true
	}
	return false
}

// FieldName identifies a single slot of a transaction draft.
type FieldName string

const (
	FieldAmount        FieldName = "amount"
	FieldBank          FieldName = "bank"
	FieldAccountNumber FieldName = "accountNumber"
	FieldEwallet       FieldName = "ewallet"
	FieldPhoneNumber   FieldName = "phoneNumber"
	FieldProvider      FieldName = "provider"
	FieldGrams         FieldName = "grams"
	FieldMeterNumber   FieldName = "meterNumber"
)

// Draft is the in-progress structured transaction being assembled across
// conversation turns. It is the central mutable entity of one conversation:
// created on first extraction, mutated by the merger and the correction
// resolver, and destroyed on confirmation, cancellation, or session close.
//
// Invariant: Complete is true iff Type is set and MissingFields is empty, in
// which case every field required by the type's schema is present and passes
// its format rule. Type is immutable once fields from a prior turn have been
// merged in — an utterance encoding a different type replaces the draft
// entirely instead of merging.
type Draft struct {
	// Type is the transaction type, or empty while unclassified.
	Type TransactionType `json:"type,omitempty"`

	// Fields maps populated slot names to their normalised string values.
	// Amounts are plain digit strings ("100000"), names are canonical list
	// entries ("BCA", "GOPAY"), digit fields are digits only.
	Fields map[FieldName]string `json:"fields,omitempty"`

	// MissingFields lists the required slots not yet populated, in the fixed
	// prompt-priority order for the type.
	MissingFields []FieldName `json:"missingFields,omitempty"`

	// Complete reports whether the draft satisfies its type's schema.
	Complete bool `json:"complete"`

	// Prompt is the Indonesian follow-up question eliciting the missing
	// fields. Empty when Complete is true.
	Prompt string `json:"prompt,omitempty"`
}

// NewDraft returns an empty draft for the given type with an initialised
// field map.
func NewDraft(t TransactionType) *Draft {
	return &Draft{
		Type:   t,
		Fields: make(map[FieldName]string),
	}
}

// Field returns the value of name and whether it is populated.
func (d *Draft) Field(name FieldName) (string, bool) {
	if d == nil || d.Fields == nil {
		return "", false
	}
	v, ok := d.Fields[name]
	return v, ok && v != ""
}

// Set populates a single field, allocating the map if needed.
func (d *Draft) Set(name FieldName, value string) {
	if d.Fields == nil {
		d.Fields = make(map[FieldName]string)
	}
	d.Fields[name] = value
}

// Clone returns a deep copy of the draft. A nil receiver clones to nil.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := &Draft{
		Type:     d.Type,
		Complete: d.Complete,
		Prompt:   d.Prompt,
	}
	if d.Fields != nil {
		out.Fields = make(map[FieldName]string, len(d.Fields))
		for k, v := range d.Fields {
			out.Fields[k] = v
		}
	}
	if d.MissingFields != nil {
		out.MissingFields = append([]FieldName(nil), d.MissingFields...)
	}
	return out
}

// Context carries one conversation's partial transaction state across turns.
// It is created on the first utterance of a transaction and cleared on
// completion, cancellation, or session close.
type Context struct {
	// Draft is the partial transaction assembled so far.
	Draft *Draft

	// LastPrompt is the follow-up question most recently issued to the user.
	// The semantic extractor receives it so it can judge whether a new
	// utterance answers the question or starts an unrelated transaction.
	LastPrompt string

	// StartedAt is when the first utterance of this transaction arrived.
	StartedAt time.Time

	// Attempts counts extraction rounds spent on this transaction, including
	// the first.
	Attempts int
}

// Utterance is a single speech segment delivered by the speech-input
// collaborator. Interim utterances are display-only and superseded by later
// events; only final utterances enter extraction.
type Utterance struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal marks the segment as settled (append-only, authoritative)
	// rather than an interim guess.
	IsFinal bool

	// Timestamp marks when the segment was produced, relative to session
	// start.
	Timestamp time.Duration
}
