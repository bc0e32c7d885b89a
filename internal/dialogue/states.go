// Package dialogue implements the slot-filling conversation engine: the
// per-conversation state machine, the turn-over-turn context merger, the
// post-confirmation correction resolver, and the Indonesian prompt
// generation.
//
// One [Conversation] owns one user's transaction flow. All state mutation
// happens on the conversation's single event loop goroutine; collaborators
// deliver utterances and timer firings as events, never touch the draft
// directly.
package dialogue

// State is the dialogue state machine position for one conversation.
type State int

const (
	// StateIdle means no conversation is active.
	StateIdle State = iota

	// StateListening means speech is being accumulated until the silence
	// window elapses.
	StateListening

	// StateExtracting means an extraction call is in flight. Utterance
	// events arriving in this state are dropped, never raced against the
	// pending call.
	StateExtracting

	// StateIncompletePrompt means a follow-up question for missing fields
	// has been issued and the engine is waiting for the answer.
	StateIncompletePrompt

	// StateConfirming means a complete draft has been read back and the
	// engine is waiting for a confirmation, correction, or cancel keyword.
	StateConfirming

	// StateCorrectingFieldSelect means the user rejected the confirmation
	// and the engine asked which field is wrong.
	StateCorrectingFieldSelect

	// StateCorrectingFieldValue means a correction target field is chosen
	// and the engine is waiting for its replacement value.
	StateCorrectingFieldValue

	// StateComplete is the per-transaction terminal success state. The
	// machine resets to StateListening immediately after the handoff.
	StateComplete

	// StateCancelled is the per-transaction terminal abort state. The
	// machine resets to StateListening for a new transaction.
	StateCancelled
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateExtracting:
		return "extracting"
	case StateIncompletePrompt:
		return "incomplete_prompt"
	case StateConfirming:
		return "confirming"
	case StateCorrectingFieldSelect:
		return "correcting_field_select"
	case StateCorrectingFieldValue:
		return "correcting_field_value"
	case StateComplete:
		return "complete"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
