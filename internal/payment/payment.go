// Package payment is the downstream handoff boundary. On a confirmed
// transaction the engine emits the draft's public fields here; building the
// payment page URL is the extent of this package — execution, settlement,
// and token encryption belong to the payment service behind that URL.
package payment

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/jingga-app/jingga/pkg/types"
)

// Payload is the public shape handed to the payment boundary: the
// transaction type plus its type-specific fields, never the draft's internal
// bookkeeping.
type Payload struct {
	Type          types.TransactionType `json:"type"`
	Amount        string                `json:"amount,omitempty"`
	Bank          string                `json:"bank,omitempty"`
	AccountNumber string                `json:"accountNumber,omitempty"`
	Ewallet       string                `json:"ewallet,omitempty"`
	PhoneNumber   string                `json:"phoneNumber,omitempty"`
	Provider      string                `json:"provider,omitempty"`
	Grams         string                `json:"grams,omitempty"`
	MeterNumber   string                `json:"meterNumber,omitempty"`
}

// Build projects a confirmed draft onto its public payload. Only the fields
// belonging to the draft's type are carried over.
func Build(d *types.Draft) (Payload, error) {
	if d == nil || !d.Type.IsValid() {
		return Payload{}, fmt.Errorf("payment: draft has no valid type")
	}

	p := Payload{Type: d.Type}
	p.Amount, _ = d.Field(types.FieldAmount)

	switch d.Type {
	case types.TypeTransfer:
		p.Bank, _ = d.Field(types.FieldBank)
		p.AccountNumber, _ = d.Field(types.FieldAccountNumber)
	case types.TypeEwallet:
		p.Ewallet, _ = d.Field(types.FieldEwallet)
		p.PhoneNumber, _ = d.Field(types.FieldPhoneNumber)
	case types.TypePulsa:
		p.Provider, _ = d.Field(types.FieldProvider)
		p.PhoneNumber, _ = d.Field(types.FieldPhoneNumber)
	case types.TypeGold:
		p.Grams, _ = d.Field(types.FieldGrams)
	case types.TypeToken:
		p.MeterNumber, _ = d.Field(types.FieldMeterNumber)
	}

	return p, nil
}

// URLBuilder generates shareable payment page URLs carrying a
// base64-encoded payload.
type URLBuilder struct {
	baseURL string
}

// NewURLBuilder returns a builder rooted at baseURL, such as
// "https://pay.jingga.app".
func NewURLBuilder(baseURL string) *URLBuilder {
	return &URLBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

// PaymentURL encodes the payload into the /payment page URL.
func (b *URLBuilder) PaymentURL(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("payment: encode payload: %w", err)
	}
	token := base64.StdEncoding.EncodeToString(raw)
	return b.baseURL + "/payment?data=" + url.QueryEscape(token), nil
}

// Decode reverses PaymentURL's token encoding. Used by the payment page
// handler and by tests.
func Decode(token string) (Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Payload{}, fmt.Errorf("payment: decode token: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("payment: decode payload: %w", err)
	}
	if !p.Type.IsValid() {
		return Payload{}, fmt.Errorf("payment: invalid transaction type %q", p.Type)
	}
	return p, nil
}
