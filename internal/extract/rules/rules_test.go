package rules

import (
	"context"
	"testing"

	"github.com/jingga-app/jingga/pkg/types"
)

func TestParser_Extract_CompleteTransfer(t *testing.T) {
	p := NewParser()

	res, err := p.Extract(context.Background(), "transfer 100 ribu ke BCA 1234567890", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Classified {
		t.Fatal("Classified = false, want true")
	}

	d := res.Draft
	if d.Type != types.TypeTransfer {
		t.Errorf("type = %q, want transfer", d.Type)
	}
	if v, _ := d.Field(types.FieldAmount); v != "100000" {
		t.Errorf("amount = %q, want 100000", v)
	}
	if v, _ := d.Field(types.FieldBank); v != "BCA" {
		t.Errorf("bank = %q, want BCA", v)
	}
	if v, _ := d.Field(types.FieldAccountNumber); v != "1234567890" {
		t.Errorf("accountNumber = %q, want 1234567890", v)
	}
	if !d.Complete {
		t.Errorf("Complete = false, missing = %v", d.MissingFields)
	}
}

func TestParser_Extract_IncompletePulsa(t *testing.T) {
	p := NewParser()

	res, err := p.Extract(context.Background(), "beli pulsa 20000", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Classified {
		t.Fatal("Classified = false, want true")
	}

	d := res.Draft
	if d.Type != types.TypePulsa {
		t.Errorf("type = %q, want pulsa", d.Type)
	}
	if d.Complete {
		t.Error("Complete = true, want false")
	}
	if len(d.MissingFields) != 1 || d.MissingFields[0] != types.FieldPhoneNumber {
		t.Errorf("missing = %v, want [phoneNumber]", d.MissingFields)
	}
	if d.Prompt != "Ke nomor HP berapa?" {
		t.Errorf("prompt = %q, want Ke nomor HP berapa?", d.Prompt)
	}
	if _, ok := d.Field(types.FieldProvider); ok {
		t.Error("incomplete pulsa draft carries a provider")
	}
}

func TestParser_Extract_PulsaProviderFromPrefix(t *testing.T) {
	p := NewParser()

	res, _ := p.Extract(context.Background(), "beli pulsa 20 ribu ke 082312345678", nil)
	if !res.Classified {
		t.Fatal("Classified = false, want true")
	}
	d := res.Draft
	if !d.Complete {
		t.Fatalf("Complete = false, missing = %v", d.MissingFields)
	}
	if v, _ := d.Field(types.FieldProvider); v != "TELKOMSEL" {
		t.Errorf("provider = %q, want TELKOMSEL", v)
	}
}

func TestParser_Extract_EwalletNeedsWalletName(t *testing.T) {
	p := NewParser()

	// Top-up verb alone does not classify as ewallet.
	res, _ := p.Extract(context.Background(), "isi 50 ribu dong", nil)
	if res.Classified {
		t.Errorf("classified as %q, want unclassified", res.Draft.Type)
	}

	res, _ = p.Extract(context.Background(), "isi gopay 50 ribu", nil)
	if !res.Classified || res.Draft.Type != types.TypeEwallet {
		t.Fatalf("got %+v, want ewallet draft", res)
	}
	if v, _ := res.Draft.Field(types.FieldEwallet); v != "GOPAY" {
		t.Errorf("ewallet = %q, want GOPAY", v)
	}
}

func TestParser_Extract_TransferWinsOverPulsa(t *testing.T) {
	p := NewParser()

	res, _ := p.Extract(context.Background(), "transfer 100rb buat beli pulsa", nil)
	if !res.Classified || res.Draft.Type != types.TypeTransfer {
		t.Fatalf("type = %v, want transfer", res.Draft)
	}
}

func TestParser_Extract_GoldGrams(t *testing.T) {
	p := NewParser()

	// Explicit grams.
	res, _ := p.Extract(context.Background(), "beli emas 2 gram", nil)
	if !res.Classified || res.Draft.Type != types.TypeGold {
		t.Fatalf("got %+v, want gold draft", res)
	}
	if v, _ := res.Draft.Field(types.FieldGrams); v != "2" {
		t.Errorf("grams = %q, want 2", v)
	}

	// Grams estimated from the amount via the divisor.
	res, _ = p.Extract(context.Background(), "beli emas 2 juta", nil)
	if v, _ := res.Draft.Field(types.FieldGrams); v != "2" {
		t.Errorf("estimated grams = %q, want 2", v)
	}
	if !res.Draft.Complete {
		t.Errorf("gold by amount incomplete: %v", res.Draft.MissingFields)
	}
}

func TestParser_Extract_GoldCustomDivisor(t *testing.T) {
	p := NewParser(WithGramDivisor(500_000))

	res, _ := p.Extract(context.Background(), "beli emas 1 juta", nil)
	if v, _ := res.Draft.Field(types.FieldGrams); v != "2" {
		t.Errorf("grams = %q, want 2 with 500k divisor", v)
	}
}

func TestParser_Extract_Token(t *testing.T) {
	p := NewParser()

	res, _ := p.Extract(context.Background(), "beli token listrik 50 ribu meter 12345678901", nil)
	if !res.Classified || res.Draft.Type != types.TypeToken {
		t.Fatalf("got %+v, want token draft", res)
	}
	if v, _ := res.Draft.Field(types.FieldMeterNumber); v != "12345678901" {
		t.Errorf("meterNumber = %q, want 12345678901", v)
	}
	if !res.Draft.Complete {
		t.Errorf("token incomplete: %v", res.Draft.MissingFields)
	}
}

func TestParser_Extract_Unclassifiable(t *testing.T) {
	p := NewParser()

	for _, text := range []string{"halo apa kabar", "", "cuaca hari ini cerah"} {
		res, err := p.Extract(context.Background(), text, nil)
		if err != nil {
			t.Fatalf("Extract(%q): %v", text, err)
		}
		if res.Classified {
			t.Errorf("Extract(%q) classified as %q, want unclassified", text, res.Draft.Type)
		}
	}
}

func TestParser_Extract_KeywordWithoutFields(t *testing.T) {
	p := NewParser()

	// Classification succeeds but no field extracts — defer to semantic.
	res, _ := p.Extract(context.Background(), "aku mau transfer", nil)
	if res.Classified {
		t.Errorf("got %+v, want unclassified", res)
	}
}
