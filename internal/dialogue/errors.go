package dialogue

// ErrorKind classifies the non-fatal user-facing failures the conversation
// can produce. None of them terminate the conversation; each drives the
// machine back to listening once its message has been spoken.
type ErrorKind int

const (
	// ErrUnclassifiable means neither extractor determined a transaction
	// type. The user is asked to restate.
	ErrUnclassifiable ErrorKind = iota

	// ErrDisabledType means the type was recognised but is switched off in
	// configuration. Re-speaking the same command will not help.
	ErrDisabledType

	// ErrInvalidFormat means a field value failed its shape check, such as
	// a phone number that is not an Indonesian mobile number.
	ErrInvalidFormat

	// ErrExtractorUnavailable means the semantic extractor call failed.
	// The underlying cause is never exposed to the user.
	ErrExtractorUnavailable

	// ErrNoSpeech means the silence window elapsed with nothing
	// transcribed.
	ErrNoSpeech

	// ErrCorrectionUnresolved means the field or value in a correction
	// flow could not be parsed; the same sub-state re-prompts.
	ErrCorrectionUnresolved
)

// UserError pairs an error kind with its spoken Indonesian message.
type UserError struct {
	Kind    ErrorKind
	Message string
}

// Error implements error.
func (e *UserError) Error() string {
	return e.Message
}

// Retryable reports whether re-speaking the same utterance can succeed.
func (e *UserError) Retryable() bool {
	return e.Kind != ErrDisabledType
}

// NewUserError builds the UserError for kind with its canonical message.
func NewUserError(kind ErrorKind) *UserError {
	return &UserError{Kind: kind, Message: userMessage(kind)}
}

func userMessage(kind ErrorKind) string {
	switch kind {
	case ErrUnclassifiable:
		return `Hmm, aku belum paham maksudnya. Coba sebutkan dengan jelas ya, misalnya "transfer 100 ribu ke BCA 1234567890"`
	case ErrDisabledType:
		return "Maaf, jenis transaksi itu belum tersedia ya."
	case ErrInvalidFormat:
		return "Nomornya sepertinya belum benar. Coba sebutkan lagi ya."
	case ErrExtractorUnavailable:
		return "Waduh, aku lagi gangguan nih. Coba lagi sebentar ya!"
	case ErrNoSpeech:
		return "Ups, aku tidak mendengar suaramu. Coba bicara lebih jelas ya!"
	case ErrCorrectionUnresolved:
		return "Maaf, aku belum menangkap. Bisa ulangi?"
	}
	return "Duh, aku lagi ada masalah nih. Coba lagi ya!"
}
