// Package extract defines the contract shared by the two utterance
// extractors: the deterministic rule-based parser and the LLM-backed
// semantic fallback.
//
// A classification attempt yields a [Result] — a tagged value rather than an
// error — so that "this utterance names no known transaction" is an ordinary
// outcome every caller must handle, distinct from transport or parse
// failures which surface as errors.
package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/jingga-app/jingga/pkg/types"
)

// ErrUnavailable is returned by the semantic extractor when the backing
// model cannot be reached or its response cannot be interpreted. It is
// user-facing-generic: callers translate it into a retryable error message,
// never expose the underlying cause to the user.
var ErrUnavailable = errors.New("extract: semantic extractor unavailable")

// maxUtteranceLen caps sanitised utterance text, preventing pathological
// transcripts from reaching the prompt.
const maxUtteranceLen = 500

// Result is the outcome of a classification attempt.
//
// Exactly one of the two branches holds: either the extractor classified the
// utterance (Classified true, Draft non-nil) or it could not determine a
// transaction type (Classified false, Draft nil) and the caller must decide
// whether to defer to the semantic fallback.
type Result struct {
	Classified bool
	Draft      *types.Draft
}

// Classified wraps a draft in a positive Result.
func Classified(d *types.Draft) Result {
	return Result{Classified: true, Draft: d}
}

// Unclassified is the negative Result.
func Unclassified() Result {
	return Result{}
}

// Extractor converts finalized utterance text into a transaction draft.
//
// convCtx is the prior turn's conversation context, or nil on the first
// utterance of a transaction. Implementations that consult it must decide by
// content inspection — not turn position — whether the utterance continues
// the prior transaction or starts a new one.
//
// Implementations must be safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, text string, convCtx *types.Context) (Result, error)
}

// Sanitize strips characters usable for prompt injection from raw utterance
// text and caps its length. Applied before any extraction, rule-based or
// semantic, so both paths see identical input.
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '<', '>', '{', '}', '[', ']', '\\', '`', '$':
			continue
		}
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()
	if runes := []rune(s); len(runes) > maxUtteranceLen {
		s = string(runes[:maxUtteranceLen])
	}
	return strings.TrimSpace(s)
}
