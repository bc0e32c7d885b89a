// Package speech defines the contracts to the speech collaborators. Audio
// capture, speech-to-text, and text-to-speech all live outside this process;
// the dialogue engine only sees transcribed utterance events coming in and
// hands utterance strings going out.
package speech

import "github.com/jingga-app/jingga/pkg/types"

// EventKind discriminates the events an [Input] delivers.
type EventKind int

const (
	// EventUtterance carries a transcribed speech segment, interim or final.
	EventUtterance EventKind = iota

	// EventEnded signals the input session closed normally.
	EventEnded

	// EventError signals the input session failed. Err is set.
	EventError
)

// Event is a single occurrence on the speech input stream.
type Event struct {
	Kind      EventKind
	Utterance types.Utterance
	Err       error
}

// Input is the speech-capture collaborator. Interim utterances are
// display-only and superseded by later events; only final utterances enter
// extraction.
type Input interface {
	// Events returns the stream of utterance events. The channel is closed
	// after an EventEnded or EventError is delivered.
	Events() <-chan Event

	// Close terminates the input session. Safe to call more than once.
	Close() error
}

// Output is the speech-playback collaborator. The engine does not wait for
// playback completion before deciding its next state, only for a minimum
// elapsed-time heuristic proportional to message length.
type Output interface {
	// Speak queues text for playback. When interrupt is true any playback
	// in progress is cut off first.
	Speak(text string, interrupt bool)
}
