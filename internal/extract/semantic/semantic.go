// Package semantic implements a language-model-based extraction stage that
// resolves utterances the rule parser cannot: free word order, spoken compound
// numbers, mid-sentence self-corrections, and answers that only make sense
// given the pending conversation context.
//
// The [Extractor] sends the sanitized utterance to an [llm.Provider] with a
// system prompt that fixes the output contract to a single JSON object. When
// the model response cannot be parsed, the extractor reports
// [extract.ErrUnavailable] so the dialogue layer can tell the user the
// assistant is temporarily degraded instead of silently dropping the turn.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jingga-app/jingga/internal/extract"
	"github.com/jingga-app/jingga/internal/validate"
	"github.com/jingga-app/jingga/pkg/provider/llm"
	"github.com/jingga-app/jingga/pkg/types"
)

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 1000
)

// systemPrompt fixes the extraction contract: transaction taxonomy, number
// grammar, self-correction handling, and the exact JSON shapes for complete
// and incomplete commands.
const systemPrompt = `You are a transaction extraction assistant for an Indonesian voice payment app.

Identify the transaction type and return ONLY a valid JSON object (no other text).

IMPORTANT: If the command is INCOMPLETE (missing required fields), return:
{
  "incomplete": true,
  "type": "transfer" (or other type if detectable),
  "partialData": { ...fields that were provided... },
  "missingFields": ["field1", "field2"],
  "message": "Friendly Indonesian question asking for the missing information"
}

Transaction Types and Required Fields:

1. BANK TRANSFER (requires: type, amount, bank, accountNumber):
{"type": "transfer", "amount": "100000", "bank": "BCA", "accountNumber": "1234567890"}

2. E-WALLET TOP UP (requires: type, amount, ewallet, phoneNumber):
{"type": "ewallet", "amount": "50000", "ewallet": "GOPAY", "phoneNumber": "082354614676"}

3. PULSA/CREDIT (requires: type, amount, phoneNumber):
{"type": "pulsa", "amount": "50000", "provider": "TELKOMSEL", "phoneNumber": "082354614676"}

4. GOLD PURCHASE (requires: type, amount OR grams):
{"type": "gold", "amount": "2000000", "grams": "2"}

5. PLN ELECTRICITY TOKEN (requires: type, amount, meterNumber):
{"type": "token", "amount": "50000", "meterNumber": "53871417245"}

Rules:
- Convert "ribu/rb/k" to 000, "juta/jt" to 000000
- Handle various number formats: "1.230.500" -> "1230500", "520.200" -> "520200", "100,000" -> "100000"
- Handle spoken Indonesian numbers correctly:
  * "lima ratus satu" = 500 + 1 = 501 (NOT 5001)
  * "dua ratus lima" = 200 + 5 = 205 (NOT 2005)
  * "seribu dua ratus" = 1000 + 200 = 1200
  * "lima ratus ribu" = 500 * 1000 = 500000
  * "satu juta dua ratus ribu" = 1000000 + 200000 = 1200000
  * "sepuluh ribu lima ratus" = 10000 + 500 = 10500
  * Pattern: [X ratus Y] means (X * 100) + Y, [X ribu Y] means (X * 1000) + Y
- Handle mixed formats: "1,5 juta" -> "1500000", "2.5jt" -> "2500000"
- Phone numbers and account numbers should be digits only
- Amount should be a plain number string without dots/commas (e.g., "1230500" not "1.230.500")
- For gold: if "gram" or "gr" mentioned, put in grams field; if only amount, calculate grams based on ~1jt per gram

SELF-CORRECTION HANDLING:
When users correct themselves mid-sentence, ALWAYS use the LATEST/CORRECTED value:
- Correction phrases: "oh maksud saya", "maksudnya", "bukan", "salah", "eh", "tunggu"
- Examples:
  * "transfer ke BCA 029329, oh maksud saya 029229" -> use "029229" (NOT "029329")
  * "100 ribu, eh 200 ribu" -> use "200000" (NOT "100000")
  * "gopay, bukan ovo" -> use "OVO" (NOT "GOPAY")
- When a correction is detected, discard the FIRST value and use the CORRECTED value only

Indonesian Banks (uppercase):
BCA, MANDIRI, BNI, BRI, CIMB, CIMB NIAGA, PERMATA, DANAMON, MEGA, BTN, BTPN, JENIUS, OCBC, OCBC NISP, HSBC, MAYBANK, UOB, PANIN, BUKOPIN, SINARMAS, BSI, MUAMALAT, COMMONWEALTH, CITIBANK, STANDARD CHARTERED, DBS, BANK JAGO, SEABANK, NEO COMMERCE, NOBU, ALLO BANK, SUPERBANK, LINE BANK, MOTION BANKING, BNC, DIGIBANK

E-wallets (uppercase):
GOPAY, OVO, DANA, SHOPEEPAY, LINKAJA, ISAKU, SAKUKU, DOKU, PAYPRO, KREDIVO, AKULAKU, BLUEPAY, TRUEMONEY, YUKK, ASTRAPAY, GOPAYLATER

Phone Providers (uppercase) - auto-detect from phone number prefix:
- TELKOMSEL: 0811, 0812, 0813, 0821, 0822, 0823, 0851, 0852, 0853
- INDOSAT: 0814, 0815, 0816, 0855, 0856, 0857, 0858
- XL: 0817, 0818, 0819, 0859, 0877, 0878
- AXIS: 0831, 0832, 0833, 0838
- TRI: 0895, 0896, 0897, 0898, 0899
- SMARTFREN: 0881, 0882, 0883, 0884, 0885, 0886, 0887, 0888, 0889

Note: For pulsa, if the user only provides a phone number without a provider name, auto-detect the provider from the prefix.

Examples of COMPLETE commands (do NOT include "message" or "incomplete" for complete commands):
"transfer 100 ribu ke BCA 1234567890" -> {"type": "transfer", "amount": "100000", "bank": "BCA", "accountNumber": "1234567890"}
"top up gopay 50rb ke 082354614676" -> {"type": "ewallet", "amount": "50000", "ewallet": "GOPAY", "phoneNumber": "082354614676"}
"beli pulsa telkomsel 50 ribu ke 082354614676" -> {"type": "pulsa", "amount": "50000", "provider": "TELKOMSEL", "phoneNumber": "082354614676"}

Examples of INCOMPLETE commands (use SHORT, DIRECT messages - just ask for the missing info):
"beli pulsa 20000" -> {"incomplete": true, "type": "pulsa", "partialData": {"amount": "20000"}, "missingFields": ["phoneNumber"], "message": "Ke nomor HP berapa?"}
"transfer 100 ribu" -> {"incomplete": true, "type": "transfer", "partialData": {"amount": "100000"}, "missingFields": ["bank", "accountNumber"], "message": "Ke bank apa dan nomor rekening berapa?"}
"token listrik 50 ribu" -> {"incomplete": true, "type": "token", "partialData": {"amount": "50000"}, "missingFields": ["meterNumber"], "message": "Nomor meter PLN-nya berapa?"}

If the text is not a transaction command at all, return {"type": "unknown"}.

IMPORTANT for incomplete messages: be SHORT and DIRECT. Do NOT start with "Oke" or repeat the transaction details. Just ask for the missing information.`

// llmResponse is the expected JSON structure returned by the LLM. Complete
// commands carry the data fields flat; incomplete commands nest them under
// partialData.
type llmResponse struct {
	Type          string                `json:"type"`
	Incomplete    bool                  `json:"incomplete"`
	PartialData   map[string]flexString `json:"partialData"`
	MissingFields []string              `json:"missingFields"`
	Message       string                `json:"message"`

	Amount        flexString `json:"amount"`
	Bank          string     `json:"bank"`
	AccountNumber flexString `json:"accountNumber"`
	Ewallet       string     `json:"ewallet"`
	PhoneNumber   flexString `json:"phoneNumber"`
	Provider      string     `json:"provider"`
	Grams         flexString `json:"grams"`
	MeterNumber   flexString `json:"meterNumber"`
}

// flexString tolerates models that emit bare numbers where the contract asks
// for number strings.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*f = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*f = flexString(num.String())
	return nil
}

// Option is a functional option for configuring an [Extractor].
type Option func(*Extractor)

// WithTemperature sets the LLM sampling temperature. Lower values produce
// more deterministic extraction. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(e *Extractor) {
		e.temperature = temp
	}
}

// WithMaxTokens caps the completion length. Default: 1000.
func WithMaxTokens(n int) Option {
	return func(e *Extractor) {
		e.maxTokens = n
	}
}

// Extractor uses an [llm.Provider] to extract transaction drafts from free
// Indonesian speech. It is safe for concurrent use.
//
// Model selection follows the one-provider-per-model pattern: to use a
// specific model for extraction, construct the [llm.Provider] with that model
// configured, rather than overriding per-request.
type Extractor struct {
	llm         llm.Provider
	temperature float64
	maxTokens   int
}

// New returns a new [Extractor] backed by the given [llm.Provider].
func New(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		llm:         provider,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract implements extract.Extractor.
//
// When convCtx carries a pending draft, the user message instructs the model
// to decide by content whether the utterance answers the pending question
// (merge with the partial data) or starts a new transaction (ignore the
// context). Transport failures and unparseable responses are reported as
// errors wrapping [extract.ErrUnavailable].
func (e *Extractor) Extract(ctx context.Context, text string, convCtx *types.Context) (extract.Result, error) {
	sanitized := extract.Sanitize(text)
	if sanitized == "" {
		return extract.Unclassified(), nil
	}

	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Temperature:  e.temperature,
		MaxTokens:    e.maxTokens,
		ForceJSON:    true,
		Messages: []llm.Message{
			{Role: "user", Content: buildUserMessage(sanitized, convCtx)},
		},
	}

	resp, err := e.llm.Complete(ctx, req)
	if err != nil {
		return extract.Unclassified(), fmt.Errorf("semantic: complete: %w: %w", extract.ErrUnavailable, err)
	}

	var r llmResponse
	if err := json.Unmarshal([]byte(stripMarkdown(resp.Content)), &r); err != nil {
		return extract.Unclassified(), fmt.Errorf("semantic: parse response: %w: %w", extract.ErrUnavailable, err)
	}

	t := types.TransactionType(strings.ToLower(strings.TrimSpace(r.Type)))
	if !t.IsValid() {
		return extract.Unclassified(), nil
	}

	draft := types.NewDraft(t)
	if r.Incomplete {
		for key, val := range r.PartialData {
			setField(draft, key, string(val))
		}
	} else {
		setField(draft, "amount", string(r.Amount))
		setField(draft, "bank", r.Bank)
		setField(draft, "accountNumber", string(r.AccountNumber))
		setField(draft, "ewallet", r.Ewallet)
		setField(draft, "phoneNumber", string(r.PhoneNumber))
		setField(draft, "provider", r.Provider)
		setField(draft, "grams", string(r.Grams))
		setField(draft, "meterNumber", string(r.MeterNumber))
	}

	if len(draft.Fields) == 0 {
		return extract.Unclassified(), nil
	}

	// Completeness is recomputed locally; the model's own missingFields and
	// message are advisory only.
	validate.Evaluate(draft)
	return extract.Classified(draft), nil
}

// buildUserMessage frames the utterance, prefixing the pending partial data
// and last question when a conversation is in flight.
func buildUserMessage(text string, convCtx *types.Context) string {
	if convCtx == nil || convCtx.Draft == nil || len(convCtx.Draft.Fields) == 0 {
		return fmt.Sprintf("Extract transaction data from this Indonesian text: %q", text)
	}

	partial, err := json.Marshal(convCtx.Draft.Fields)
	if err != nil {
		partial = []byte("{}")
	}

	return fmt.Sprintf(`CONTEXT: The user previously started a %s transaction with partial data: %s.
The user was asked: %q

Now the user has responded with new information: %q

IMPORTANT:
- If the new input appears to be answering the question (providing the missing information), MERGE it with the previous partial data.
- If the new input is a completely different transaction command, IGNORE the previous context and process it as a new transaction.
- Decide whether the input relates to the previous transaction or a new one based on the content.`,
		convCtx.Draft.Type, partial, convCtx.LastPrompt, text)
}

// setField stores a non-empty value under the field name key, if known.
func setField(d *types.Draft, key, val string) {
	val = strings.TrimSpace(val)
	if val == "" {
		return
	}
	switch types.FieldName(key) {
	case types.FieldAmount, types.FieldBank, types.FieldAccountNumber,
		types.FieldEwallet, types.FieldPhoneNumber, types.FieldProvider,
		types.FieldGrams, types.FieldMeterNumber:
		d.Set(types.FieldName(key), val)
	}
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models prepend and append to JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}

// Ensure Extractor implements extract.Extractor at compile time.
var _ extract.Extractor = (*Extractor)(nil)
