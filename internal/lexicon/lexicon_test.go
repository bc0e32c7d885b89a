package lexicon

import "testing"

func TestFindBank(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"transfer ke BCA", "BCA"},
		{"transfer ke bca dong", "BCA"},
		{"kirim ke mandiri", "MANDIRI"},
		{"ke cimb niaga ya", "CIMB NIAGA"},
		{"pakai seabank", "SEABANK"},
		{"ke bank antah berantah", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FindBank(tt.text); got != tt.want {
			t.Errorf("FindBank(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestFindBank_MultiWordBeforeSubstring(t *testing.T) {
	// "cimb niaga" must resolve to the compound entry, not bare CIMB.
	if got := FindBank("top up cimb niaga"); got != "CIMB NIAGA" {
		t.Errorf("FindBank = %q, want CIMB NIAGA", got)
	}
}

func TestFindEwallet(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"isi gopay", "GOPAY"},
		{"top up go pay", "GOPAY"},
		{"isi shopee pay dong", "SHOPEEPAY"},
		{"top up ovo", "OVO"},
		{"isi dana 50 ribu", "DANA"},
		{"isi link aja", "LINKAJA"},
		{"isi pulsa", ""},
	}
	for _, tt := range tests {
		if got := FindEwallet(tt.text); got != tt.want {
			t.Errorf("FindEwallet(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestFindEwallet_GopaylaterBeforeGopay(t *testing.T) {
	if got := FindEwallet("isi gopaylater"); got != "GOPAYLATER" {
		t.Errorf("FindEwallet = %q, want GOPAYLATER", got)
	}
}

func TestFindProvider(t *testing.T) {
	if got := FindProvider("pulsa telkomsel"); got != "TELKOMSEL" {
		t.Errorf("FindProvider = %q, want TELKOMSEL", got)
	}
	if got := FindProvider("beli pulsa"); got != "" {
		t.Errorf("FindProvider = %q, want empty", got)
	}
}

func TestProviderForPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  string
	}{
		{"082312345678", "TELKOMSEL"},
		{"081234567890", "TELKOMSEL"},
		{"085612345678", "INDOSAT"},
		{"087812345678", "XL"},
		{"083112345678", "AXIS"},
		{"089612345678", "TRI"},
		{"088112345678", "SMARTFREN"},
		{"099912345678", ""}, // unknown prefix
		{"08", ""},           // too short
		{"", ""},
	}
	for _, tt := range tests {
		if got := ProviderForPhone(tt.phone); got != tt.want {
			t.Errorf("ProviderForPhone(%q) = %q, want %q", tt.phone, got, tt.want)
		}
	}
}
