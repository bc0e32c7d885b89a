// Package mock provides test doubles for the speech contracts.
package mock

import (
	"sync"

	"github.com/jingga-app/jingga/pkg/speech"
)

// SpeakCall records a single invocation of Speak.
type SpeakCall struct {
	Text      string
	Interrupt bool
}

// Output is a mock implementation of speech.Output that records every
// spoken message.
type Output struct {
	mu sync.Mutex

	// SpeakCalls records every invocation of Speak in order.
	SpeakCalls []SpeakCall
}

// Speak records the call.
func (o *Output) Speak(text string, interrupt bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.SpeakCalls = append(o.SpeakCalls, SpeakCall{Text: text, Interrupt: interrupt})
}

// Spoken returns a copy of all spoken texts so far.
func (o *Output) Spoken() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.SpeakCalls))
	for i, c := range o.SpeakCalls {
		out[i] = c.Text
	}
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (o *Output) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.SpeakCalls = nil
}

// Input is a mock implementation of speech.Input fed by the test.
type Input struct {
	ch        chan speech.Event
	closeOnce sync.Once
}

// NewInput returns a mock input with the given event buffer size.
func NewInput(buffer int) *Input {
	return &Input{ch: make(chan speech.Event, buffer)}
}

// Emit delivers an event to the consumer.
func (i *Input) Emit(ev speech.Event) {
	i.ch <- ev
}

// Events implements speech.Input.
func (i *Input) Events() <-chan speech.Event {
	return i.ch
}

// Close implements speech.Input.
func (i *Input) Close() error {
	i.closeOnce.Do(func() { close(i.ch) })
	return nil
}

// Ensure the mocks implement the contracts at compile time.
var (
	_ speech.Output = (*Output)(nil)
	_ speech.Input  = (*Input)(nil)
)
