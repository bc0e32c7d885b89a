package dialogue

import (
	"fmt"
	"strings"
	"time"

	"github.com/jingga-app/jingga/pkg/types"
)

// ConfirmationText builds the spoken read-back of a complete draft, with the
// amount in words and digit fields spelled out so text-to-speech does not
// read an account number as one huge numeral.
func ConfirmationText(d *types.Draft) string {
	amount, _ := d.Field(types.FieldAmount)
	amountWords := AmountToWords(amount)

	switch d.Type {
	case types.TypeTransfer:
		bank, _ := d.Field(types.FieldBank)
		account, _ := d.Field(types.FieldAccountNumber)
		return fmt.Sprintf("Transfer %s rupiah ke %s, nomor rekening %s. Sudah benar?",
			amountWords, bank, SpellDigits(account))
	case types.TypeEwallet:
		wallet, _ := d.Field(types.FieldEwallet)
		phone, _ := d.Field(types.FieldPhoneNumber)
		return fmt.Sprintf("Top up %s %s rupiah ke nomor %s. Sudah benar?",
			wallet, amountWords, SpellDigits(phone))
	case types.TypePulsa:
		provider, _ := d.Field(types.FieldProvider)
		phone, _ := d.Field(types.FieldPhoneNumber)
		return fmt.Sprintf("Beli pulsa %s %s rupiah ke nomor %s. Sudah benar?",
			provider, amountWords, SpellDigits(phone))
	case types.TypeGold:
		grams, _ := d.Field(types.FieldGrams)
		return fmt.Sprintf("Beli emas %s gram senilai %s rupiah. Sudah benar?",
			grams, amountWords)
	case types.TypeToken:
		meter, _ := d.Field(types.FieldMeterNumber)
		return fmt.Sprintf("Token listrik %s rupiah untuk meter %s. Sudah benar?",
			amountWords, SpellDigits(meter))
	case types.TypeSedekah:
		return fmt.Sprintf("Sedekah %s rupiah. Sudah benar?", amountWords)
	}
	return "Sudah benar?"
}

// CorrectionPrompt asks which field of the draft is wrong, listing the
// correctable fields for the type.
func CorrectionPrompt(t types.TransactionType) string {
	switch t {
	case types.TypeTransfer:
		return "Yang mana yang salah? Bank, nomor rekening, atau nominal?"
	case types.TypeEwallet:
		return "Yang mana yang salah? E-wallet, nomor HP, atau nominal?"
	case types.TypePulsa:
		return "Yang mana yang salah? Provider, nomor HP, atau nominal?"
	case types.TypeGold:
		return "Yang mana yang salah? Jumlah gram atau nominal?"
	case types.TypeToken:
		return "Yang mana yang salah? Nomor meter atau nominal?"
	}
	return "Yang mana yang salah?"
}

// FieldValuePrompt asks for a replacement value, reading back the current
// value so the user hears what they are replacing. d may be nil.
func FieldValuePrompt(field types.FieldName, d *types.Draft) string {
	current, ok := "", false
	if d != nil {
		current, ok = d.Field(field)
	}
	if !ok {
		switch field {
		case types.FieldBank:
			return "Nama banknya?"
		case types.FieldAccountNumber:
			return "Nomor rekeningnya?"
		case types.FieldEwallet:
			return "Nama e-walletnya?"
		case types.FieldPhoneNumber:
			return "Nomor HPnya?"
		case types.FieldProvider:
			return "Nama providernya?"
		case types.FieldAmount:
			return "Nominalnya berapa?"
		case types.FieldGrams:
			return "Berapa gram?"
		case types.FieldMeterNumber:
			return "Nomor meternya?"
		}
		return "Yang benar apa?"
	}

	switch field {
	case types.FieldBank:
		return fmt.Sprintf("Sekarang %s. Bank yang baru?", current)
	case types.FieldAccountNumber:
		return fmt.Sprintf("Sekarang %s. Nomor rekening yang baru?", SpellDigits(current))
	case types.FieldEwallet:
		return fmt.Sprintf("Sekarang %s. E-wallet yang baru?", current)
	case types.FieldPhoneNumber:
		return fmt.Sprintf("Sekarang %s. Nomor HP yang baru?", SpellDigits(current))
	case types.FieldProvider:
		return fmt.Sprintf("Sekarang %s. Provider yang baru?", current)
	case types.FieldAmount:
		return fmt.Sprintf("Sekarang %s rupiah. Nominal yang baru?", AmountToWords(current))
	case types.FieldGrams:
		return fmt.Sprintf("Sekarang %s gram. Berapa gram yang baru?", current)
	case types.FieldMeterNumber:
		return fmt.Sprintf("Sekarang %s. Nomor meter yang baru?", SpellDigits(current))
	}
	return "Yang benar apa?"
}

var ones = []string{"", "satu", "dua", "tiga", "empat", "lima", "enam", "tujuh", "delapan", "sembilan"}

var teens = []string{"sepuluh", "sebelas", "dua belas", "tiga belas", "empat belas",
	"lima belas", "enam belas", "tujuh belas", "delapan belas", "sembilan belas"}

// NumberToWords spells a non-negative integer in Indonesian, up to the
// miliar range. Larger values fall back to the digit string.
func NumberToWords(n int64) string {
	if n == 0 {
		return "nol"
	}
	if n < 0 || n >= 1_000_000_000_000 {
		return fmt.Sprintf("%d", n)
	}
	return convertWords(n)
}

func convertWords(n int64) string {
	switch {
	case n == 0:
		return ""
	case n < 10:
		return ones[n]
	case n < 20:
		return teens[n-10]
	case n < 100:
		tens, rem := n/10, n%10
		head := ones[tens] + " puluh"
		if tens == 1 {
			head = "sepuluh"
		}
		return joinWords(head, convertWords(rem))
	case n < 1000:
		hundreds, rem := n/100, n%100
		head := ones[hundreds] + " ratus"
		if hundreds == 1 {
			head = "seratus"
		}
		return joinWords(head, convertWords(rem))
	case n < 1_000_000:
		thousands, rem := n/1000, n%1000
		head := convertWords(thousands) + " ribu"
		if thousands == 1 {
			head = "seribu"
		}
		return joinWords(head, convertWords(rem))
	case n < 1_000_000_000:
		millions, rem := n/1_000_000, n%1_000_000
		return joinWords(convertWords(millions)+" juta", convertWords(rem))
	default:
		billions, rem := n/1_000_000_000, n%1_000_000_000
		return joinWords(convertWords(billions)+" miliar", convertWords(rem))
	}
}

func joinWords(head, tail string) string {
	if tail == "" {
		return head
	}
	return head + " " + tail
}

// AmountToWords spells an amount digit string in Indonesian. Non-digit
// characters are stripped first; an empty or unparseable amount reads "nol".
func AmountToWords(amount string) string {
	var n int64
	seen := false
	for _, r := range amount {
		if r < '0' || r > '9' {
			continue
		}
		seen = true
		n = n*10 + int64(r-'0')
		if n >= 1_000_000_000_000 {
			return strings.TrimSpace(amount)
		}
	}
	if !seen {
		return "nol"
	}
	return NumberToWords(n)
}

var digitWords = []string{"nol", "satu", "dua", "tiga", "empat", "lima", "enam", "tujuh", "delapan", "sembilan"}

// SpellDigits spells a digit string digit by digit, grouped in threes with
// periods so text-to-speech inserts pauses instead of reading one large
// number.
func SpellDigits(s string) string {
	var words []string
	for _, r := range s {
		if r >= '0' && r <= '9' {
			words = append(words, digitWords[r-'0'])
		}
	}
	if len(words) == 0 {
		return ""
	}
	var groups []string
	for i := 0; i < len(words); i += 3 {
		end := min(i+3, len(words))
		groups = append(groups, strings.Join(words[i:end], " "))
	}
	return strings.Join(groups, ". ")
}

// SpeakDelay estimates how long to hold off re-opening the microphone after
// speaking message, proportional to its length. In accessibility mode the
// full per-character delay applies so screen readers finish; otherwise a
// minimal pause suffices.
func SpeakDelay(message string, accessibility bool) time.Duration {
	if accessibility {
		return time.Duration(len(message))*60*time.Millisecond + 500*time.Millisecond
	}
	return 200 * time.Millisecond
}
