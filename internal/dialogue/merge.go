package dialogue

import (
	"github.com/jingga-app/jingga/internal/validate"
	"github.com/jingga-app/jingga/pkg/types"
)

// Merge combines a prior conversation context with a fresh extraction into
// the draft for this turn.
//
// With no prior context the new extraction stands alone. When the types
// match, the prior partial data is the base and every field present in next
// overlays it, so newly stated values always win. When the types differ the
// prior context is discarded entirely: the utterance started an unrelated
// transaction, not a correction of the old one.
//
// Merge never mutates its inputs; the returned draft is freshly evaluated
// for completeness.
func Merge(prior *types.Context, next *types.Draft) *types.Draft {
	if next == nil {
		if prior == nil || prior.Draft == nil {
			return nil
		}
		out := prior.Draft.Clone()
		validate.Evaluate(out)
		return out
	}

	if prior == nil || prior.Draft == nil || prior.Draft.Type != next.Type {
		out := next.Clone()
		validate.Evaluate(out)
		return out
	}

	out := prior.Draft.Clone()
	for name, val := range next.Fields {
		if val != "" {
			out.Set(name, val)
		}
	}
	validate.Evaluate(out)
	return out
}
